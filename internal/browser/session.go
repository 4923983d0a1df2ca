// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session is a single isolated browser tab. It implements schemas.Surface.
type Session struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	network   config.NetworkConfig
	logger    *zap.Logger
	release   func()

	closeOnce sync.Once
}

// combineContext derives a context from the chromedp tab context that is also
// cancelled when the caller's context expires. chromedp actions must run on
// the tab context to find their target, but cancellation belongs to the caller.
func combineContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.network.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating", zap.String("url", url))
	if err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Reload reloads the current page. All previously captured element handles
// are invalid afterwards.
func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.network.NavigationTimeout)
	defer cancel()

	if err := s.run(navCtx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("page reload failed: %w", err)
	}
	return nil
}

// WaitNetworkIdle waits for the page to settle: the body must be ready and a
// quiet period must pass without the context expiring. Expiry of the caller's
// context during the quiet wait is reported; the quiet period itself always
// completes otherwise.
func (s *Session) WaitNetworkIdle(ctx context.Context) error {
	if err := s.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for page settle failed: %w", err)
	}
	quiet := s.network.QuietPeriod
	if quiet <= 0 {
		return nil
	}
	select {
	case <-time.After(quiet):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentURL reports the page URL after any redirects.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return url, nil
}

// PageContent returns the serialized HTML of the page.
func (s *Session) PageContent(ctx context.Context) (string, error) {
	var content string
	if err := s.run(ctx, chromedp.OuterHTML("html", &content, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture page content: %w", err)
	}
	return content, nil
}

// PressKey dispatches a keyboard key to the page.
func (s *Session) PressKey(ctx context.Context, key string) error {
	code := key
	switch key {
	case "Escape":
		code = kb.Escape
	case "Enter":
		code = kb.Enter
	case "Tab":
		code = kb.Tab
	}
	if err := s.run(ctx, chromedp.KeyEvent(code)); err != nil {
		return fmt.Errorf("failed to press key %q: %w", key, err)
	}
	return nil
}

// QueryAll returns all elements matching the CSS selector. Matched elements
// are tagged in the DOM so later interactions can target them precisely; the
// tags disappear on the next navigation or reload.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]schemas.Element, error) {
	nodes, err := s.discover(ctx, selector)
	if err != nil {
		return nil, err
	}

	elements := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, newElementHandle(s, n))
	}
	return elements, nil
}

// Query returns the first element matching the selector, or (nil, nil) when
// nothing matches.
func (s *Session) Query(ctx context.Context, selector string) (schemas.Element, error) {
	elements, err := s.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

// Close releases the tab.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.tabCancel()
		if s.release != nil {
			s.release()
		}
	})
}

// nodeData is the per-element record produced by the discovery script.
type nodeData struct {
	TagID   string            `json:"tagId"`
	Tag     string            `json:"tag"`
	Text    string            `json:"text"`
	Attrs   map[string]string `json:"attrs"`
	Visible bool              `json:"visible"`
	HasRect bool              `json:"hasRect"`
	Rect    schemas.Rect      `json:"rect"`
}

// discoveryScriptTemplate runs in the page. It snapshots every element
// matching the selector and tags each one with a unique data attribute so a
// follow-up CSS query can find exactly that element again. An invalid
// selector yields an empty result instead of an exception.
const discoveryScriptTemplate = `(() => {
	const selector = %s;
	const maxTextLength = %d;
	const out = [];

	const isVisible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
			return false;
		}
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};

	let nodes;
	try {
		nodes = document.querySelectorAll(selector);
	} catch (e) {
		return out;
	}

	nodes.forEach((el) => {
		let tagId = el.getAttribute('data-doctrail-id');
		if (!tagId) {
			window.__doctrailSeq = (window.__doctrailSeq || 0) + 1;
			tagId = 'dt-' + window.__doctrailSeq + '-' + Date.now().toString(36);
			el.setAttribute('data-doctrail-id', tagId);
		}

		const attrs = {};
		for (const a of el.attributes) {
			attrs[a.name] = a.value;
		}

		let text = (el.textContent || '').replace(/\s+/g, ' ').trim();
		if (text.length > maxTextLength) {
			text = text.substring(0, maxTextLength);
		}

		const rect = el.getBoundingClientRect();
		out.push({
			tagId: tagId,
			tag: el.tagName.toLowerCase(),
			text: text,
			attrs: attrs,
			visible: isVisible(el),
			hasRect: rect.width > 0 || rect.height > 0,
			rect: {x: rect.x, y: rect.y, width: rect.width, height: rect.height}
		});
	});

	return out;
})()`

// maxCapturedTextLength bounds the text snapshotted per element. Snapshot
// consumers truncate further for their own purposes.
const maxCapturedTextLength = 300

func (s *Session) discover(ctx context.Context, selector string) ([]nodeData, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selector: %w", err)
	}
	script := fmt.Sprintf(discoveryScriptTemplate, string(quoted), maxCapturedTextLength)

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var results []nodeData
	if err := s.run(queryCtx, chromedp.Evaluate(script, &results)); err != nil {
		return nil, fmt.Errorf("element discovery failed for %q: %w", selector, err)
	}
	return results, nil
}
