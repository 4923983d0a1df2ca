// internal/inspector/inspector.go

// Package inspector builds bounded structural snapshots of the current page.
// A snapshot never fails as a whole: any query that errors just leaves its
// category empty, so one broken selector cannot sink an iteration.
package inspector

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/llmutil"
)

// interestingSelectors are heuristic patterns for info icons, detail markers
// and document hints commonly seen on procurement platforms.
var interestingSelectors = []string{
	`[class*="info"]`,
	`[class*="detail"]`,
	`[class*="dokument"]`,
	`[title*="info"]`,
	`[title*="detail"]`,
	`[aria-label*="info"]`,
	`[aria-label*="detail"]`,
	`i.fa-info`,
	`.info-icon`,
}

// documentLinkSelector matches anchors whose target looks like a PDF.
const documentLinkSelector = `a[href*=".pdf"]`

// Inspector builds PageSnapshots from a browser surface.
type Inspector struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger.Named("inspector")}
}

// Build assembles a snapshot of the page's tables, buttons, heuristic
// matches, and document links. Individual query failures are logged and
// skipped.
func (i *Inspector) Build(ctx context.Context, surface schemas.Surface) schemas.PageSnapshot {
	return schemas.PageSnapshot{
		TableRows:           i.inspectTableRows(ctx, surface),
		Buttons:             i.inspectButtons(ctx, surface),
		InterestingElements: i.inspectInterestingElements(ctx, surface),
		DocumentLinks:       i.findDocumentLinks(ctx, surface),
	}
}

func (i *Inspector) inspectTableRows(ctx context.Context, surface schemas.Surface) []schemas.RowInfo {
	rows, err := surface.QueryAll(ctx, "tr")
	if err != nil {
		i.logger.Debug("Table row query failed", zap.Error(err))
		return nil
	}

	infos := make([]schemas.RowInfo, 0, len(rows))
	for _, row := range rows {
		buttons, err := row.QueryAll(ctx, `button, [role="button"]`)
		if err != nil {
			i.logger.Debug("Row button query failed", zap.Error(err))
			continue
		}
		links, err := row.QueryAll(ctx, "a")
		if err != nil {
			i.logger.Debug("Row link query failed", zap.Error(err))
			continue
		}

		infos = append(infos, schemas.RowInfo{
			Text:       llmutil.Truncate(row.Text(), schemas.TextTruncateLimit),
			HasButtons: len(buttons) > 0,
			HasLinks:   len(links) > 0,
		})
	}
	return infos
}

func (i *Inspector) inspectButtons(ctx context.Context, surface schemas.Surface) []schemas.ButtonInfo {
	buttons, err := surface.QueryAll(ctx, `button, [role="button"]`)
	if err != nil {
		i.logger.Debug("Button query failed", zap.Error(err))
		return nil
	}

	infos := make([]schemas.ButtonInfo, 0, len(buttons))
	for _, button := range buttons {
		infos = append(infos, schemas.ButtonInfo{
			Text:    llmutil.Truncate(button.Text(), schemas.TextTruncateLimit),
			Visible: button.Visible(),
			Classes: button.Attr("class"),
		})
	}
	return infos
}

func (i *Inspector) inspectInterestingElements(ctx context.Context, surface schemas.Surface) []schemas.InterestingElement {
	var infos []schemas.InterestingElement
	for _, selector := range interestingSelectors {
		elements, err := surface.QueryAll(ctx, selector)
		if err != nil {
			i.logger.Debug("Interesting element query failed",
				zap.String("selector", selector), zap.Error(err))
			continue
		}
		for _, el := range elements {
			infos = append(infos, schemas.InterestingElement{
				Category: selector,
				Text:     llmutil.Truncate(el.Text(), schemas.TextTruncateLimit),
				Visible:  el.Visible(),
			})
		}
	}
	return infos
}

func (i *Inspector) findDocumentLinks(ctx context.Context, surface schemas.Surface) []schemas.DocumentLink {
	links, err := surface.QueryAll(ctx, documentLinkSelector)
	if err != nil {
		i.logger.Debug("Document link query failed", zap.Error(err))
		return nil
	}

	infos := make([]schemas.DocumentLink, 0, len(links))
	for _, link := range links {
		if !link.Visible() {
			continue
		}
		href := link.Attr("href")
		if href == "" {
			continue
		}
		infos = append(infos, schemas.DocumentLink{
			Text: llmutil.Truncate(link.Text(), schemas.TextTruncateLimit),
			Href: href,
		})
	}
	return infos
}
