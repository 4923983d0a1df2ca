// internal/interactor/interactor.go

// Package interactor executes a single resolved action against the page and
// deals with the fallout: modals that open, views that need resetting, and
// reload epochs once too many suggestions have been burned through.
package interactor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/resolver"
)

// modalSelector matches any open dialog overlay.
const modalSelector = `[role="dialog"], .modal, .popup`

// documentLinkSelector is probed after tab clicks to see whether the
// interaction revealed downloads.
const documentLinkSelector = `a[href*=".pdf"]`

// closeButtonSelectors are tried in order before falling back to Escape.
var closeButtonSelectors = []string{
	`button[aria-label="Close"]`,
	`button[aria-label="Schließen"]`,
	`.modal-close`,
	`.close-button`,
}

// closeButtonTexts cover close buttons identifiable only by label.
var closeButtonTexts = []string{"×", "Schließen", "Close"}

// documentTabTexts are button labels that typically switch a modal to its
// document listing.
var documentTabTexts = []string{"Dokumente", "Details", "Unterlagen"}

const tabRoleSelector = `[role="tab"]`

// Pauses are the settle waits after state-changing interactions. The page
// needs time to render before the next query sees the result.
type Pauses struct {
	AfterModalClose time.Duration
	AfterReload     time.Duration
	AfterScroll     time.Duration
	AfterClick      time.Duration
	AfterTabClick   time.Duration
}

// DefaultPauses mirror the timing a human-paced exploration needs on slow
// server-rendered platforms.
func DefaultPauses() Pauses {
	return Pauses{
		AfterModalClose: time.Second,
		AfterReload:     2 * time.Second,
		AfterScroll:     time.Second,
		AfterClick:      2 * time.Second,
		AfterTabClick:   2 * time.Second,
	}
}

// phase is a step of the interaction state machine.
type phase int

const (
	phaseResetView phase = iota
	phaseSearching
	phaseInteracting
	phaseModalCheck
	phaseModalHandling
	phaseDone
)

// Interactor drives one action through the interaction state machine.
type Interactor struct {
	resolver       *resolver.Resolver
	logger         *zap.Logger
	resetThreshold int
	pauses         Pauses
}

// New creates an Interactor. resetThreshold is the tried-set size above
// which the next view reset reloads the page and clears the set.
func New(res *resolver.Resolver, resetThreshold int, pauses Pauses, logger *zap.Logger) *Interactor {
	return &Interactor{
		resolver:       res,
		logger:         logger.Named("interactor"),
		resetThreshold: resetThreshold,
		pauses:         pauses,
	}
}

// InteractWith resets the view, resolves the action and clicks the element,
// then handles any modal the click opened. It reports whether the attempt
// directly succeeded. A click that opens a modal counts only when a document
// tab inside it reveals links; an unproductive modal is closed and the
// attempt reported unsuccessful so the caller moves on to the next
// suggestion. Only reload failures are hard errors; everything else degrades
// to (false, nil).
func (i *Interactor) InteractWith(ctx context.Context, surface schemas.Surface, action schemas.Action, tried *resolver.TriedSet) (bool, error) {
	log := i.logger.With(zap.String("action", action.Key()))

	var element schemas.Element
	clicked := false

	for current := phaseResetView; current != phaseDone; {
		select {
		case <-ctx.Done():
			return clicked, ctx.Err()
		default:
		}

		switch current {
		case phaseResetView:
			if err := i.resetView(ctx, surface, tried, log); err != nil {
				return false, err
			}
			current = phaseSearching

		case phaseSearching:
			el, ok := i.resolver.Resolve(ctx, surface, action, tried)
			if !ok {
				return false, nil
			}
			element = el
			current = phaseInteracting

		case phaseInteracting:
			if !element.Visible() {
				log.Debug("Resolved element is not visible, skipping")
				return false, nil
			}
			if err := element.ScrollIntoView(ctx); err != nil {
				log.Debug("Scroll into view failed", zap.Error(err))
				return false, nil
			}
			i.settle(ctx, i.pauses.AfterScroll)

			if err := element.Click(ctx); err != nil {
				log.Debug("Click failed", zap.Error(err))
				return false, nil
			}
			clicked = true
			i.settle(ctx, i.pauses.AfterClick)
			current = phaseModalCheck

		case phaseModalCheck:
			if i.isModalOpen(ctx, surface) {
				current = phaseModalHandling
			} else {
				current = phaseDone
			}

		case phaseModalHandling:
			if !i.handleModal(ctx, surface, log) {
				log.Debug("Modal revealed no document links, reporting attempt as unsuccessful")
				clicked = false
			}
			current = phaseDone
		}
	}

	return clicked, nil
}

// resetView restores a workable page state before an interaction: any open
// modal is closed, and once the tried set outgrows the threshold the page is
// reloaded to start a fresh epoch.
func (i *Interactor) resetView(ctx context.Context, surface schemas.Surface, tried *resolver.TriedSet, log *zap.Logger) error {
	if i.isModalOpen(ctx, surface) {
		i.closeModal(ctx, surface, log)
		i.settle(ctx, i.pauses.AfterModalClose)
	}

	if tried.Len() > i.resetThreshold {
		log.Info("Tried element budget exhausted, reloading page to reset state",
			zap.Int("tried", tried.Len()))
		if err := surface.Reload(ctx); err != nil {
			return fmt.Errorf("view reset reload failed: %w", err)
		}
		if err := surface.WaitNetworkIdle(ctx); err != nil {
			log.Debug("Settle wait after reload failed", zap.Error(err))
		}
		tried.Clear()
		i.settle(ctx, i.pauses.AfterReload)
	}

	return nil
}

func (i *Interactor) isModalOpen(ctx context.Context, surface schemas.Surface) bool {
	modal, err := surface.Query(ctx, modalSelector)
	return err == nil && modal != nil
}

// closeModal tries the known close buttons, then label-matched buttons, then
// falls back to pressing Escape.
func (i *Interactor) closeModal(ctx context.Context, surface schemas.Surface, log *zap.Logger) {
	for _, selector := range closeButtonSelectors {
		button, err := surface.Query(ctx, selector)
		if err != nil || button == nil || !button.Visible() {
			continue
		}
		if err := button.Click(ctx); err == nil {
			log.Debug("Closed modal", zap.String("via", selector))
			return
		}
	}

	buttons, err := surface.QueryAll(ctx, "button")
	if err == nil {
		for _, button := range buttons {
			if !button.Visible() || !textMatchesAny(button.Text(), closeButtonTexts) {
				continue
			}
			if err := button.Click(ctx); err == nil {
				log.Debug("Closed modal", zap.String("via", "button text"))
				return
			}
		}
	}

	if err := surface.PressKey(ctx, "Escape"); err != nil {
		log.Debug("Escape key dispatch failed", zap.Error(err))
		return
	}
	log.Debug("Closed modal", zap.String("via", "Escape"))
}

// handleModal looks for document tabs inside the open modal and reports
// whether one of them revealed document links. A productive tab click leaves
// the modal open for the next snapshot; an unproductive modal is closed so
// it cannot block further exploration, and the caller treats the whole
// attempt as unsuccessful.
func (i *Interactor) handleModal(ctx context.Context, surface schemas.Surface, log *zap.Logger) bool {
	modal, err := surface.Query(ctx, modalSelector)
	if err != nil || modal == nil {
		return false
	}

	for _, tab := range i.modalTabs(ctx, modal) {
		if !tab.Visible() {
			continue
		}
		if err := tab.Click(ctx); err != nil {
			log.Debug("Tab click failed", zap.Error(err))
			continue
		}
		i.settle(ctx, i.pauses.AfterTabClick)

		links, err := surface.QueryAll(ctx, documentLinkSelector)
		if err == nil && len(links) > 0 {
			log.Info("Tab click revealed document links", zap.Int("links", len(links)))
			return true
		}
	}

	i.closeModal(ctx, surface, log)
	return false
}

// modalTabs collects candidate document tabs within the modal: buttons with
// known labels first, then anything with a tab role.
func (i *Interactor) modalTabs(ctx context.Context, modal schemas.Element) []schemas.Element {
	var tabs []schemas.Element

	buttons, err := modal.QueryAll(ctx, "button")
	if err == nil {
		for _, button := range buttons {
			if textMatchesAny(button.Text(), documentTabTexts) {
				tabs = append(tabs, button)
			}
		}
	}

	roleTabs, err := modal.QueryAll(ctx, tabRoleSelector)
	if err == nil {
		tabs = append(tabs, roleTabs...)
	}

	return tabs
}

func (i *Interactor) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func textMatchesAny(text string, needles []string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, needle := range needles {
		if strings.Contains(text, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
