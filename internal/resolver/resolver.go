// internal/resolver/resolver.go

// Package resolver maps oracle action suggestions onto live page elements.
// Suggestions arrive as loose identifiers (element text, a CSS fragment, an
// attribute value), so resolution walks a layered list of locator strategies
// from most to least specific and takes the first visible match.
package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
)

// genericCandidateSelector is the pool searched by the text strategies when
// the action kind gives no narrower scope.
const genericCandidateSelector = `a, button, [role="button"], [role="tab"], tr, td, span, div, i`

// Resolver locates elements for oracle-suggested actions.
type Resolver struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("resolver")}
}

// Resolve finds a visible element for the action. Actions already in the
// tried set are skipped without touching the page. A successful find marks
// the action as tried, whether or not the subsequent interaction succeeds.
func (r *Resolver) Resolve(ctx context.Context, surface schemas.Surface, action schemas.Action, tried *TriedSet) (schemas.Element, bool) {
	key := action.Key()
	if tried.Contains(key) {
		r.logger.Debug("Skipping already tried action", zap.String("action", key))
		return nil, false
	}

	for _, strategy := range r.strategies(action) {
		el := strategy.locate(ctx, surface)
		if el == nil {
			continue
		}
		r.logger.Debug("Resolved action",
			zap.String("action", key),
			zap.String("strategy", strategy.name))
		tried.Add(key)
		return el, true
	}

	r.logger.Debug("No element found for action", zap.String("action", key))
	return nil, false
}

type strategy struct {
	name   string
	locate func(ctx context.Context, surface schemas.Surface) schemas.Element
}

// strategies builds the ordered locator list for an action.
func (r *Resolver) strategies(action schemas.Action) []strategy {
	identifier := strings.TrimSpace(action.Identifier)
	var list []strategy

	// A CSS-looking identifier is usable as a selector directly.
	if strings.HasPrefix(identifier, ".") || strings.HasPrefix(identifier, "#") || strings.HasPrefix(identifier, "[") {
		list = append(list, strategy{
			name:   "direct_selector",
			locate: bySelector(identifier),
		})
	}

	if identifier != "" {
		if scope := kindSelector(action.Kind); scope != "" {
			list = append(list, strategy{
				name:   "kind_scoped_text",
				locate: byText(scope, identifier),
			})
		}
		list = append(list,
			strategy{name: "generic_text", locate: byText(genericCandidateSelector, identifier)},
			strategy{name: "title_attribute", locate: bySelector(`[title*=` + quoteCSS(identifier) + `]`)},
			strategy{name: "aria_label", locate: bySelector(`[aria-label*=` + quoteCSS(identifier) + `]`)},
		)
	}

	// Kind fallbacks fire when nothing matched the identifier at all.
	switch action.Kind {
	case schemas.KindButton:
		list = append(list,
			strategy{name: "any_button", locate: bySelector(`button, [role="button"]`)},
			strategy{name: "any_btn_class", locate: bySelector(`[class*="btn"]`)},
		)
	case schemas.KindRow:
		list = append(list, strategy{name: "any_row", locate: bySelector("tr")})
	}

	return list
}

// kindSelector scopes text search to elements plausible for the kind.
func kindSelector(kind schemas.ElementKind) string {
	switch kind {
	case schemas.KindButton:
		return `button, [role="button"]`
	case schemas.KindLink:
		return "a"
	case schemas.KindTab:
		return `[role="tab"], button`
	case schemas.KindRow:
		return "tr"
	case schemas.KindIcon:
		return `i, [class*="icon"]`
	default:
		return ""
	}
}

// bySelector returns the first visible element matching the selector.
func bySelector(selector string) func(context.Context, schemas.Surface) schemas.Element {
	return func(ctx context.Context, surface schemas.Surface) schemas.Element {
		elements, err := surface.QueryAll(ctx, selector)
		if err != nil {
			return nil
		}
		return firstVisible(elements, nil)
	}
}

// byText returns the first visible candidate whose text contains the
// identifier, case-insensitively.
func byText(scope, identifier string) func(context.Context, schemas.Surface) schemas.Element {
	needle := strings.ToLower(identifier)
	return func(ctx context.Context, surface schemas.Surface) schemas.Element {
		elements, err := surface.QueryAll(ctx, scope)
		if err != nil {
			return nil
		}
		return firstVisible(elements, func(el schemas.Element) bool {
			return strings.Contains(strings.ToLower(el.Text()), needle)
		})
	}
}

func firstVisible(elements []schemas.Element, match func(schemas.Element) bool) schemas.Element {
	for _, el := range elements {
		if !el.Visible() {
			continue
		}
		if match != nil && !match(el) {
			continue
		}
		return el
	}
	return nil
}

// quoteCSS wraps a value for use inside an attribute selector.
func quoteCSS(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
