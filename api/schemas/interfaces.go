// File: api/schemas/interfaces.go
package schemas

import "context"

// Surface is the minimal browser surface the exploration engine drives.
// Implementations own page lifecycle; the engine never sees raw CDP state.
type Surface interface {
	// Navigate loads the given URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current page, invalidating all prior Elements.
	Reload(ctx context.Context) error
	// WaitNetworkIdle blocks until in-flight network activity quiets down
	// or the context expires. Timing out is not an error.
	WaitNetworkIdle(ctx context.Context) error
	// CurrentURL reports the page URL after any redirects.
	CurrentURL(ctx context.Context) (string, error)
	// PageContent returns the full serialized HTML of the page.
	PageContent(ctx context.Context) (string, error)
	// QueryAll returns all elements matching the CSS selector. A selector
	// that matches nothing yields an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Query returns the first match, or (nil, nil) when nothing matches.
	Query(ctx context.Context, selector string) (Element, error)
	// PressKey dispatches a keyboard key (e.g. "Escape") to the page.
	PressKey(ctx context.Context, key string) error
}

// Element is a handle to a single DOM element captured by a Surface query.
// Accessors report state as of capture time; Click and ScrollIntoView act on
// the live page and fail if the element has since been detached.
type Element interface {
	Text() string
	TagName() string
	// Attr returns the named attribute, or "" when absent.
	Attr(name string) string
	Attributes() map[string]string
	Visible() bool
	BoundingBox() (Rect, bool)

	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	// QueryAll searches the element's descendants.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Oracle decides what to interact with next given a page snapshot.
type Oracle interface {
	// Analyze returns the oracle's read of the page. A nil analysis with a
	// nil error means the oracle could not produce anything usable; callers
	// treat that as a soft stop rather than a failure.
	Analyze(ctx context.Context, pageContent string, snapshot PageSnapshot, iterationLabel string) (*PageAnalysis, error)
}

// LLMClient is a thin provider adapter beneath the Oracle.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
