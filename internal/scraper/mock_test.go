package scraper

import (
	"context"
	"fmt"
	"time"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/internal/browser"
)

// fakePage is a scripted browser.Page for driving the engine without Chrome.
// Lookups miss instantly instead of honoring timeouts, which keeps the
// navigation tests fast.
type fakePage struct {
	visible    map[string]bool   // "sel#idx" → visible
	counts     map[string]int    // sel → match count
	countFns   map[string]func() int
	texts      map[string]string // "sel#idx" → text
	attrs      map[string]string // "sel#idx#name" → value
	tags       map[string]string // "sel#idx" → tag name
	inTablist  map[string]bool
	nestedHits map[string]int
	outerHTML  map[string]string
	descText   map[string]string // "sel#idx#child"
	descAttr   map[string]string // "sel#idx#child#name"
	descAttrs  map[string][]string
	bodyText   string

	feedHTML string
	scrollFn func(round, stepPx int) browser.FeedState
	rounds   int

	navigated []string
	clicked   []string
	clickErrs map[string]error // "sel#idx" → error returned by Click
	typed     string
}

var _ browser.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		visible:    map[string]bool{},
		counts:     map[string]int{},
		countFns:   map[string]func() int{},
		texts:      map[string]string{},
		attrs:      map[string]string{},
		tags:       map[string]string{},
		inTablist:  map[string]bool{},
		nestedHits: map[string]int{},
		outerHTML:  map[string]string{},
		descText:   map[string]string{},
		descAttr:   map[string]string{},
		descAttrs:  map[string][]string{},
		clickErrs:  map[string]error{},
	}
}

func key(sel string, index int) string {
	return fmt.Sprintf("%s#%d", sel, index)
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	if f.visible[key(sel, 0)] {
		return nil
	}
	return fmt.Errorf("not visible: %s", sel)
}

func (f *fakePage) Visible(_ context.Context, sel string, index int) (bool, error) {
	return f.visible[key(sel, index)], nil
}

func (f *fakePage) Count(_ context.Context, sel string) (int, error) {
	if fn, ok := f.countFns[sel]; ok {
		return fn(), nil
	}
	return f.counts[sel], nil
}

func (f *fakePage) Text(_ context.Context, sel string, index int) (string, error) {
	return f.texts[key(sel, index)], nil
}

func (f *fakePage) Attribute(_ context.Context, sel string, index int, name string) (string, error) {
	return f.attrs[key(sel, index)+"#"+name], nil
}

func (f *fakePage) TagName(_ context.Context, sel string, index int) (string, error) {
	if tag, ok := f.tags[key(sel, index)]; ok {
		return tag, nil
	}
	return "BUTTON", nil
}

func (f *fakePage) InTablist(_ context.Context, sel string, index int) (bool, error) {
	return f.inTablist[key(sel, index)], nil
}

func (f *fakePage) NestedDivTextCount(_ context.Context, sel string, index int, _ []string) (int, error) {
	return f.nestedHits[key(sel, index)], nil
}

func (f *fakePage) OuterHTML(_ context.Context, sel string, index int) (string, error) {
	return f.outerHTML[key(sel, index)], nil
}

func (f *fakePage) DescendantText(_ context.Context, sel string, index int, childSel string) (string, error) {
	return f.descText[key(sel, index)+"#"+childSel], nil
}

func (f *fakePage) DescendantAttr(_ context.Context, sel string, index int, childSel, name string) (string, error) {
	return f.descAttr[key(sel, index)+"#"+childSel+"#"+name], nil
}

func (f *fakePage) DescendantAttrs(_ context.Context, sel string, index int, childSel, name string) ([]string, error) {
	return f.descAttrs[key(sel, index)+"#"+childSel+"#"+name], nil
}

func (f *fakePage) Click(_ context.Context, sel string, index int) error {
	if err := f.clickErrs[key(sel, index)]; err != nil {
		return err
	}
	f.clicked = append(f.clicked, key(sel, index))
	return nil
}

func (f *fakePage) DescendantClick(_ context.Context, sel string, index int, childSel string) error {
	f.clicked = append(f.clicked, key(sel, index)+">"+childSel)
	return nil
}

func (f *fakePage) ClearInput(_ context.Context, _ string) error {
	f.typed = ""
	return nil
}

func (f *fakePage) TypeChar(_ context.Context, _ string, ch rune) error {
	f.typed += string(ch)
	return nil
}

func (f *fakePage) ScrollFeedStep(_ context.Context, _ []string, stepPx int) (browser.FeedState, error) {
	f.rounds++
	if f.scrollFn != nil {
		return f.scrollFn(f.rounds, stepPx), nil
	}
	return browser.FeedState{}, nil
}

func (f *fakePage) CaptureFeedHTML(_ context.Context, _ []string) (string, error) {
	return f.feedHTML, nil
}

func (f *fakePage) BodyTextContains(_ context.Context, terms []string) (bool, error) {
	for _, term := range terms {
		if term != "" && helpers.FoldContains(f.bodyText, term) {
			return true, nil
		}
	}
	return false, nil
}
