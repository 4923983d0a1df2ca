// internal/explorer/explorer.go

// Package explorer runs the bounded exploration loop: snapshot the page, ask
// the oracle what to try, execute one suggestion, repeat. The loop ends when
// the iteration budget runs out, the oracle has nothing more to offer, or no
// suggestion leads to an interaction.
package explorer

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/inspector"
	"github.com/xkilldash9x/doctrail/internal/interactor"
	"github.com/xkilldash9x/doctrail/internal/resolver"
)

// Explorer orchestrates one exploration run against a browser surface.
type Explorer struct {
	inspector     *inspector.Inspector
	oracle        schemas.Oracle
	interactor    *interactor.Interactor
	logger        *zap.Logger
	maxIterations int
}

func New(insp *inspector.Inspector, oracle schemas.Oracle, inter *interactor.Interactor, maxIterations int, logger *zap.Logger) *Explorer {
	return &Explorer{
		inspector:     insp,
		oracle:        oracle,
		interactor:    inter,
		logger:        logger.Named("explorer"),
		maxIterations: maxIterations,
	}
}

// Explore navigates to startURL and iterates until a stop condition fires.
// It returns every document link discovered along the way, absolutized
// against the start URL, deduplicated and sorted. Links gathered before an
// error are always returned alongside it.
func (e *Explorer) Explore(ctx context.Context, surface schemas.Surface, startURL string) ([]string, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL %q: %w", startURL, err)
	}

	found := newLinkSet()

	if err := surface.Navigate(ctx, startURL); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", startURL, err)
	}
	if err := surface.WaitNetworkIdle(ctx); err != nil {
		e.logger.Debug("Initial settle wait failed", zap.Error(err))
	}

	tried := resolver.NewTriedSet()

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return found.list(), err
		}

		log := e.logger.With(zap.Int("iteration", iteration))
		snapshot := e.inspector.Build(ctx, surface)

		content, err := surface.PageContent(ctx)
		if err != nil {
			log.Debug("Page content capture failed, analyzing without it", zap.Error(err))
			content = ""
		}

		analysis, err := e.oracle.Analyze(ctx, content, snapshot, fmt.Sprintf("Iteration %d", iteration))
		if err != nil {
			log.Warn("Oracle analysis failed, stopping exploration", zap.Error(err))
			break
		}
		if analysis == nil {
			log.Warn("Oracle produced no usable analysis, stopping exploration")
			break
		}

		e.collectLinks(base, snapshot.DocumentLinks, found, log)

		if len(analysis.Actions) == 0 {
			log.Info("Oracle suggested no further actions, stopping exploration")
			break
		}

		if !e.tryActions(ctx, surface, analysis.Actions, tried, log) {
			log.Info("No suggested action led to an interaction, stopping exploration")
			break
		}
	}

	return found.list(), nil
}

// tryActions executes suggestions in descending priority order, stopping at
// the first one that results in a click. Ties keep the oracle's order.
func (e *Explorer) tryActions(ctx context.Context, surface schemas.Surface, actions []schemas.Action, tried *resolver.TriedSet, log *zap.Logger) bool {
	ordered := make([]schemas.Action, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Priority > ordered[b].Priority
	})

	for _, action := range ordered {
		clicked, err := e.interactor.InteractWith(ctx, surface, action, tried)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			log.Warn("Interaction failed", zap.String("action", action.Key()), zap.Error(err))
			continue
		}
		if clicked {
			log.Debug("Interaction succeeded", zap.String("action", action.Key()))
			return true
		}
	}
	return false
}

func (e *Explorer) collectLinks(base *url.URL, links []schemas.DocumentLink, found *linkSet, log *zap.Logger) {
	for _, link := range links {
		absolute, ok := resolveLink(base, link.Href)
		if !ok {
			log.Debug("Skipping malformed document link", zap.String("href", link.Href))
			continue
		}
		if found.add(absolute) {
			log.Info("Document link discovered", zap.String("url", absolute))
		}
	}
}

// resolveLink absolutizes a possibly relative href against the start URL.
func resolveLink(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// linkSet deduplicates discovered links.
type linkSet struct {
	seen map[string]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]struct{})}
}

// add reports whether the link was new.
func (s *linkSet) add(link string) bool {
	if _, ok := s.seen[link]; ok {
		return false
	}
	s.seen[link] = struct{}{}
	return true
}

// list returns the links in sorted order for deterministic output.
func (s *linkSet) list() []string {
	links := make([]string, 0, len(s.seen))
	for link := range s.seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}
