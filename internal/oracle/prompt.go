// internal/oracle/prompt.go
package oracle

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/llmutil"
)

// pageTextLimit caps how much extracted page text is included in a prompt.
const pageTextLimit = 2000

const systemPrompt = `You are an expert at navigating procurement and tender platforms to locate
document downloads. You analyze structured page summaries and suggest which
elements to interact with next. You always respond with a single JSON object
and nothing else.`

const responseFormatExample = `{
  "actions": [
    {
      "element_type": "button/row/link/tab/icon",
      "identifier": "exact text or distinctive attribute",
      "reason": "why this element looks promising",
      "priority": 1-5 (5 highest)
    }
  ],
  "analysis": "your reasoning about the page structure and suggested approach"
}`

// buildUserPrompt renders the page snapshot into the analysis prompt.
func buildUserPrompt(snapshot schemas.PageSnapshot, pageText, state string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Analyze this webpage for potential paths to PDF documents. You are helping to find tender/bid documents
("Ausschreibungsunterlagen", "Vergabeunterlagen") on a procurement platform.

Current state: %s

Page Structure:
1. Table Rows Found: %d
2. Interactive Buttons: %d
3. Interesting Elements: %d
4. Current Document Links: %d

Detailed Elements:

Tables:
%s

Buttons:
%s

Interesting Elements:
%s
`,
		state,
		len(snapshot.TableRows),
		len(snapshot.Buttons),
		len(snapshot.InterestingElements),
		len(snapshot.DocumentLinks),
		formatTableRows(snapshot.TableRows),
		formatButtons(snapshot.Buttons),
		formatInterestingElements(snapshot.InterestingElements),
	)

	if pageText != "" {
		fmt.Fprintf(&b, "\nPage Text Excerpt:\n%s\n", llmutil.Truncate(pageText, pageTextLimit))
	}

	fmt.Fprintf(&b, `
Strategy:
1. Look for info buttons ("i") or detail buttons near tender titles
2. Check for elements containing words like "Unterlagen", "Dokumente", "Details"
3. Consider table rows that might be clickable to reveal more information
4. Examine any elements marked as information or detail indicators

Return a JSON response in this exact format:
%s

Focus on finding interactive elements that could lead to document sections.
`, responseFormatExample)

	return b.String()
}

func formatTableRows(rows []schemas.RowInfo) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("- Row: %s (Has buttons: %t, Has links: %t)",
			row.Text, row.HasButtons, row.HasLinks))
	}
	return strings.Join(lines, "\n")
}

func formatButtons(buttons []schemas.ButtonInfo) string {
	lines := make([]string, 0, len(buttons))
	for _, button := range buttons {
		lines = append(lines, fmt.Sprintf("- Button: %s (Visible: %t, Classes: %s)",
			button.Text, button.Visible, button.Classes))
	}
	return strings.Join(lines, "\n")
}

func formatInterestingElements(elements []schemas.InterestingElement) string {
	lines := make([]string, 0, len(elements))
	for _, el := range elements {
		lines = append(lines, fmt.Sprintf("- %s: %s (Visible: %t)",
			el.Category, el.Text, el.Visible))
	}
	return strings.Join(lines, "\n")
}

// ExtractText strips markup from an HTML document, returning the visible text
// with runs of whitespace collapsed. Script and style contents are skipped.
// Malformed HTML yields whatever text the tolerant parser can recover.
func ExtractText(pageHTML string) string {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if fields := strings.Fields(n.Data); len(fields) > 0 {
				parts = append(parts, strings.Join(fields, " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}
