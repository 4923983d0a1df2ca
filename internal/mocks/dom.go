// File: internal/mocks/dom.go

// Package mocks provides deterministic in-memory fakes of the browser
// surface for unit tests. A FakeSurface is a selector-to-elements map; click
// hooks let tests mutate the fake page the way a real interaction would.
package mocks

import (
	"context"

	"github.com/xkilldash9x/doctrail/api/schemas"
)

// FakeElement is a scriptable schemas.Element.
type FakeElement struct {
	Tag         string
	TextContent string
	Attrs       map[string]string
	IsVisible   bool
	Box         schemas.Rect
	HasBox      bool

	// Children serves descendant queries, keyed by selector.
	Children map[string][]*FakeElement

	// OnClick runs on every successful click, letting tests mutate the page.
	OnClick  func()
	ClickErr error

	Clicks  int
	Scrolls int
}

var _ schemas.Element = (*FakeElement)(nil)

func (e *FakeElement) Text() string    { return e.TextContent }
func (e *FakeElement) TagName() string { return e.Tag }
func (e *FakeElement) Visible() bool   { return e.IsVisible }

func (e *FakeElement) Attr(name string) string {
	return e.Attrs[name]
}

func (e *FakeElement) Attributes() map[string]string {
	attrs := make(map[string]string, len(e.Attrs))
	for k, v := range e.Attrs {
		attrs[k] = v
	}
	return attrs
}

func (e *FakeElement) BoundingBox() (schemas.Rect, bool) {
	return e.Box, e.HasBox
}

func (e *FakeElement) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) ScrollIntoView(context.Context) error {
	e.Scrolls++
	return nil
}

func (e *FakeElement) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	return toElements(e.Children[selector]), nil
}

// FakeSurface is a scriptable schemas.Surface backed by a selector map.
type FakeSurface struct {
	// Elements maps a selector to the elements it matches.
	Elements map[string][]*FakeElement
	// QueryErrs forces QueryAll to fail for specific selectors.
	QueryErrs map[string]error

	URL  string
	HTML string

	NavigateErr error
	ReloadErr   error
	// OnReload runs on every successful reload.
	OnReload func()

	Navigations []string
	Reloads     int
	KeyPresses  []string
	IdleWaits   int
	// Queries records every selector passed to QueryAll, in order.
	Queries []string
}

var _ schemas.Surface = (*FakeSurface)(nil)

// NewFakeSurface returns an empty fake page.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{
		Elements:  make(map[string][]*FakeElement),
		QueryErrs: make(map[string]error),
	}
}

// Add registers elements under a selector.
func (s *FakeSurface) Add(selector string, elements ...*FakeElement) {
	s.Elements[selector] = append(s.Elements[selector], elements...)
}

// Remove clears all elements under a selector.
func (s *FakeSurface) Remove(selector string) {
	delete(s.Elements, selector)
}

func (s *FakeSurface) Navigate(_ context.Context, url string) error {
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.Navigations = append(s.Navigations, url)
	s.URL = url
	return nil
}

func (s *FakeSurface) Reload(context.Context) error {
	if s.ReloadErr != nil {
		return s.ReloadErr
	}
	s.Reloads++
	if s.OnReload != nil {
		s.OnReload()
	}
	return nil
}

func (s *FakeSurface) WaitNetworkIdle(context.Context) error {
	s.IdleWaits++
	return nil
}

func (s *FakeSurface) CurrentURL(context.Context) (string, error) {
	return s.URL, nil
}

func (s *FakeSurface) PageContent(context.Context) (string, error) {
	return s.HTML, nil
}

func (s *FakeSurface) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	s.Queries = append(s.Queries, selector)
	if err, ok := s.QueryErrs[selector]; ok {
		return nil, err
	}
	return toElements(s.Elements[selector]), nil
}

func (s *FakeSurface) Query(ctx context.Context, selector string) (schemas.Element, error) {
	elements, err := s.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

func (s *FakeSurface) PressKey(_ context.Context, key string) error {
	s.KeyPresses = append(s.KeyPresses, key)
	return nil
}

func toElements(fakes []*FakeElement) []schemas.Element {
	elements := make([]schemas.Element, 0, len(fakes))
	for _, f := range fakes {
		elements = append(elements, f)
	}
	return elements
}
