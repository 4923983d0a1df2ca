// internal/browser/element.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/doctrail/api/schemas"
)

// elementHandle implements schemas.Element for a node captured during
// discovery. State accessors report the snapshot taken at capture time;
// interactions target the live page via the element's discovery tag.
type elementHandle struct {
	session *Session
	data    nodeData
}

func newElementHandle(s *Session, data nodeData) *elementHandle {
	return &elementHandle{session: s, data: data}
}

// selector targets the element by the tag assigned during discovery.
func (e *elementHandle) selector() string {
	return fmt.Sprintf(`[data-doctrail-id=%q]`, e.data.TagID)
}

func (e *elementHandle) Text() string    { return e.data.Text }
func (e *elementHandle) TagName() string { return e.data.Tag }
func (e *elementHandle) Visible() bool   { return e.data.Visible }

func (e *elementHandle) Attr(name string) string {
	return e.data.Attrs[name]
}

func (e *elementHandle) Attributes() map[string]string {
	attrs := make(map[string]string, len(e.data.Attrs))
	for k, v := range e.data.Attrs {
		attrs[k] = v
	}
	return attrs
}

func (e *elementHandle) BoundingBox() (schemas.Rect, bool) {
	return e.data.Rect, e.data.HasRect
}

// Click clicks the element on the live page. Fails if the element was
// detached by a navigation since discovery.
func (e *elementHandle) Click(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.session.run(clickCtx, chromedp.Click(e.selector(), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click on %s failed: %w", e.describe(), err)
	}
	return nil
}

// ScrollIntoView scrolls the element into the viewport.
func (e *elementHandle) ScrollIntoView(ctx context.Context) error {
	scrollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.session.run(scrollCtx, chromedp.ScrollIntoView(e.selector(), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("scroll to %s failed: %w", e.describe(), err)
	}
	return nil
}

// QueryAll searches the element's descendants.
func (e *elementHandle) QueryAll(ctx context.Context, selector string) ([]schemas.Element, error) {
	return e.session.QueryAll(ctx, scopeSelector(e.selector(), selector))
}

// scopeSelector prefixes every top-level alternative of a selector list with
// the ancestor selector. Prefixing the raw string would bind the ancestor to
// the first alternative only, letting the rest match page-wide.
func scopeSelector(prefix, selector string) string {
	parts := splitSelectorList(selector)
	for i, part := range parts {
		parts[i] = prefix + " " + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// splitSelectorList splits a selector list on commas outside brackets,
// parentheses and quoted strings.
func splitSelectorList(selector string) []string {
	var parts []string
	var quote rune
	depth := 0
	start := 0
	for i, r := range selector {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, selector[start:i])
			start = i + 1
		}
	}
	return append(parts, selector[start:])
}

func (e *elementHandle) describe() string {
	if e.data.Text != "" {
		return fmt.Sprintf("<%s> %q", e.data.Tag, e.data.Text)
	}
	return fmt.Sprintf("<%s>", e.data.Tag)
}
