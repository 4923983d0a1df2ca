// File: api/schemas/schemas.go
package schemas

// TextTruncateLimit bounds every free-text field captured into a PageSnapshot.
// Snapshots are serialized into oracle prompts, so unbounded text would blow
// up the prompt size on content-heavy pages.
const TextTruncateLimit = 100

// PageSnapshot is a structured, bounded summary of the current page state.
// It is rebuilt fresh every iteration and discarded after the oracle call.
type PageSnapshot struct {
	TableRows           []RowInfo            `json:"table_rows"`
	Buttons             []ButtonInfo         `json:"buttons"`
	InterestingElements []InterestingElement `json:"interesting_elements"`
	DocumentLinks       []DocumentLink       `json:"document_links"`
}

// RowInfo summarizes a single table row and whether it contains anything
// interactive worth drilling into.
type RowInfo struct {
	Text       string `json:"text"`
	HasButtons bool   `json:"has_buttons"`
	HasLinks   bool   `json:"has_links"`
}

// ButtonInfo summarizes a button-like element on the page.
type ButtonInfo struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
	Classes string `json:"classes"`
}

// InterestingElement is an element matched by one of the heuristic selector
// patterns (info icons, detail markers, document hints).
type InterestingElement struct {
	// Category is the selector pattern that matched the element.
	Category string `json:"category"`
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
}

// DocumentLink is an anchor whose target path indicates a document.
type DocumentLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ElementKind classifies the UI element an Action targets. The set is open:
// unknown kinds fall through to the generic locator strategies.
type ElementKind string

const (
	KindButton ElementKind = "button"
	KindRow    ElementKind = "row"
	KindLink   ElementKind = "link"
	KindTab    ElementKind = "tab"
	KindIcon   ElementKind = "icon"
)

// Action is an oracle-suggested, not-yet-resolved instruction to interact
// with some element on the page.
type Action struct {
	Kind       ElementKind `json:"element_type"`
	Identifier string      `json:"identifier"`
	Rationale  string      `json:"reason"`
	// Priority ranges 1..5, 5 highest. Execution order is descending
	// priority with ties kept in oracle-provided order.
	Priority int `json:"priority"`
}

// Key returns the identity under which an action is tracked in the tried set.
func (a Action) Key() string {
	return string(a.Kind) + ":" + a.Identifier
}

// PageAnalysis is the Decision Oracle's verdict on a snapshot: a ranked list
// of candidate actions plus free-text reasoning. A nil *PageAnalysis means
// the oracle produced no usable analysis at all, which is distinct from an
// analysis with an empty action list.
type PageAnalysis struct {
	Actions  []Action `json:"actions"`
	Analysis string   `json:"analysis"`
}

// Rect is an element bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GenerationOptions tunes a single LLM generation call.
type GenerationOptions struct {
	Temperature     float32
	ForceJSONFormat bool
}

// GenerationRequest is a provider-agnostic LLM generation request.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}
