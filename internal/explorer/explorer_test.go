// internal/explorer/explorer_test.go
package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/inspector"
	"github.com/xkilldash9x/doctrail/internal/interactor"
	"github.com/xkilldash9x/doctrail/internal/mocks"
	"github.com/xkilldash9x/doctrail/internal/resolver"
)

// fakeOracle replays scripted analyses in order. Once the script runs out it
// reports an empty analysis.
type fakeOracle struct {
	script []*schemas.PageAnalysis
	errs   []error
	calls  int
	states []string
}

func (f *fakeOracle) Analyze(_ context.Context, _ string, _ schemas.PageSnapshot, label string) (*schemas.PageAnalysis, error) {
	f.states = append(f.states, label)
	idx := f.calls
	f.calls++

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.script) {
		return f.script[idx], nil
	}
	return &schemas.PageAnalysis{}, nil
}

func newTestExplorer(oracle schemas.Oracle, maxIterations int) *Explorer {
	logger := zap.NewNop()
	inter := interactor.New(resolver.New(logger), 5, interactor.Pauses{}, logger)
	return New(inspector.New(logger), oracle, inter, maxIterations, logger)
}

func pdfLink(text, href string) *mocks.FakeElement {
	return &mocks.FakeElement{
		Tag: "a", TextContent: text, IsVisible: true,
		Attrs: map[string]string{"href": href},
	}
}

func TestExplore(t *testing.T) {
	t.Run("collects and absolutizes links until oracle is done", func(t *testing.T) {
		surface := mocks.NewFakeSurface()
		surface.Add(`a[href*=".pdf"]`,
			pdfLink("LV", "/docs/lv.pdf"),
			pdfLink("Bekanntmachung", "https://other.example/b.pdf"),
		)
		surface.Add(`button, [role="button"]`, &mocks.FakeElement{Tag: "button", TextContent: "Details", IsVisible: true})

		oracle := &fakeOracle{script: []*schemas.PageAnalysis{
			{Actions: []schemas.Action{{Kind: schemas.KindButton, Identifier: "Details", Priority: 4}}},
			{Actions: nil, Analysis: "nothing left"},
		}}

		links, err := newTestExplorer(oracle, 20).Explore(context.Background(), surface, "https://vergabe.example/dashboard")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://other.example/b.pdf",
			"https://vergabe.example/docs/lv.pdf",
		}, links)
		assert.Equal(t, []string{"https://vergabe.example/dashboard"}, surface.Navigations)
		assert.Equal(t, []string{"Iteration 1", "Iteration 2"}, oracle.states)
	})

	t.Run("duplicate links across iterations are reported once", func(t *testing.T) {
		surface := mocks.NewFakeSurface()
		surface.Add(`a[href*=".pdf"]`, pdfLink("LV", "/docs/lv.pdf"))
		surface.Add(`button, [role="button"]`,
			&mocks.FakeElement{Tag: "button", TextContent: "Mehr", IsVisible: true},
			&mocks.FakeElement{Tag: "button", TextContent: "Weiter", IsVisible: true},
		)

		oracle := &fakeOracle{script: []*schemas.PageAnalysis{
			{Actions: []schemas.Action{{Kind: schemas.KindButton, Identifier: "Mehr", Priority: 3}}},
			{Actions: []schemas.Action{{Kind: schemas.KindButton, Identifier: "Weiter", Priority: 3}}},
			{},
		}}

		links, err := newTestExplorer(oracle, 20).Explore(context.Background(), surface, "https://vergabe.example/")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://vergabe.example/docs/lv.pdf"}, links)
	})

	t.Run("nil analysis stops before collecting that iteration", func(t *testing.T) {
		surface := mocks.NewFakeSurface()
		surface.Add(`a[href*=".pdf"]`, pdfLink("LV", "/docs/lv.pdf"))

		oracle := &fakeOracle{script: []*schemas.PageAnalysis{nil}}

		links, err := newTestExplorer(oracle, 20).Explore(context.Background(), surface, "https://vergabe.example/")
		require.NoError(t, err)
		assert.Empty(t, links)
		assert.Equal(t, 1, oracle.calls)
	})

	t.Run("oracle error ends the run but keeps earlier links", func(t *testing.T) {
		surface := mocks.NewFakeSurface()
		surface.Add(`a[href*=".pdf"]`, pdfLink("LV", "/docs/lv.pdf"))
		surface.Add(`button, [role="button"]`, &mocks.FakeElement{Tag: "button", TextContent: "Details", IsVisible: true})

		oracle := &fakeOracle{
			script: []*schemas.PageAnalysis{
				{Actions: []schemas.Action{{Kind: schemas.KindButton, Identifier: "Details", Priority: 2}}},
			},
			errs: []error{nil, errors.New("llm unavailable")},
		}

		links, err := newTestExplorer(oracle, 20).Explore(context.Background(), surface, "https://vergabe.example/")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://vergabe.example/docs/lv.pdf"}, links)
	})

	t.Run("stops when no action leads to an interaction", func(t *testing.T) {
		surface := mocks.NewFakeSurface()

		oracle := &fakeOracle{script: []*schemas.PageAnalysis{
			{Actions: []schemas.Action{{Kind: schemas.KindLink, Identifier: "ghost", Priority: 5}}},
		}}

		_, err := newTestExplorer(oracle, 20).Explore(context.Background(), surface, "https://vergabe.example/")
		require.NoError(t, err)
		assert.Equal(t, 1, oracle.calls)
	})

	t.Run("iteration budget bounds the loop", func(t *testing.T) {
		surface := mocks.NewFakeSurface()

		// A fresh resolvable suggestion on every iteration, so only the
		// budget can end the run.
		oracle := &fakeOracle{}
		for n := 0; n < 10; n++ {
			ident := fmt.Sprintf("step%d", n)
			surface.Add(`button, [role="button"]`, &mocks.FakeElement{Tag: "button", TextContent: ident, IsVisible: true})
			oracle.script = append(oracle.script, &schemas.PageAnalysis{
				Actions: []schemas.Action{{Kind: schemas.KindButton, Identifier: ident, Priority: 1}},
			})
		}

		_, err := newTestExplorer(oracle, 3).Explore(context.Background(), surface, "https://vergabe.example/")
		require.NoError(t, err)
		assert.Equal(t, 3, oracle.calls)
	})

	t.Run("navigation failure is a hard error", func(t *testing.T) {
		surface := mocks.NewFakeSurface()
		surface.NavigateErr = errors.New("dns failure")

		_, err := newTestExplorer(&fakeOracle{}, 20).Explore(context.Background(), surface, "https://unreachable.example/")
		require.Error(t, err)
	})

	t.Run("invalid start url is rejected", func(t *testing.T) {
		_, err := newTestExplorer(&fakeOracle{}, 20).Explore(context.Background(), mocks.NewFakeSurface(), "://bad")
		require.Error(t, err)
	})
}

func TestTryActionsOrdering(t *testing.T) {
	surface := mocks.NewFakeSurface()
	e := newTestExplorer(&fakeOracle{}, 1)

	// None of these resolve, so every direct selector gets queried; the
	// query log exposes the execution order.
	actions := []schemas.Action{
		{Kind: schemas.KindIcon, Identifier: ".p2", Priority: 2},
		{Kind: schemas.KindIcon, Identifier: ".p5a", Priority: 5},
		{Kind: schemas.KindIcon, Identifier: ".p1", Priority: 1},
		{Kind: schemas.KindIcon, Identifier: ".p5b", Priority: 5},
	}

	ok := e.tryActions(context.Background(), surface, actions, resolver.NewTriedSet(), zap.NewNop())
	assert.False(t, ok)

	var order []string
	for _, q := range surface.Queries {
		switch q {
		case ".p2", ".p5a", ".p1", ".p5b":
			order = append(order, q)
		}
	}
	assert.Equal(t, []string{".p5a", ".p5b", ".p2", ".p1"}, order)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolveLink(t *testing.T) {
	base := mustParse(t, "https://host.example/app/dashboard")

	t.Run("relative path resolves against base", func(t *testing.T) {
		link, ok := resolveLink(base, "/docs/x.pdf")
		require.True(t, ok)
		assert.Equal(t, "https://host.example/docs/x.pdf", link)
	})

	t.Run("absolute href is untouched", func(t *testing.T) {
		link, ok := resolveLink(base, "https://cdn.example/y.pdf")
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example/y.pdf", link)
	})

	t.Run("malformed href is dropped", func(t *testing.T) {
		_, ok := resolveLink(base, "://%%")
		assert.False(t, ok)
	})
}
