package browser

import (
	"context"
	"time"
)

// FeedState is a snapshot of the reviews feed geometry and content size at
// one instant. Rebuilt on every scroll round, never cached.
type FeedState struct {
	Found        bool `json:"found"`
	Scrolled     bool `json:"scrolled"`
	AtBottom     bool `json:"at_bottom"`
	ScrollTop    int  `json:"scroll_top"`
	ScrollHeight int  `json:"scroll_height"`
	ClientHeight int  `json:"client_height"`
	ReviewCount  int  `json:"review_count"`
}

// Page is the browser capability the extraction engine drives. The engine
// issues only these primitives and assumes single-writer access to the page;
// concurrent sessions must hold independent Page handles.
type Page interface {
	// Navigate loads url and waits for the document to be interactive
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the first match of sel is visible or the
	// timeout elapses
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	// Visible reports whether the index-th match of sel is currently visible
	Visible(ctx context.Context, sel string, index int) (bool, error)
	// Count returns how many elements match sel
	Count(ctx context.Context, sel string) (int, error)
	// Text returns the rendered text of the index-th match, "" when absent
	Text(ctx context.Context, sel string, index int) (string, error)
	// Attribute returns the named attribute of the index-th match, "" when
	// absent
	Attribute(ctx context.Context, sel string, index int, name string) (string, error)
	// TagName returns the upper-case tag name of the index-th match
	TagName(ctx context.Context, sel string, index int) (string, error)
	// InTablist reports whether the index-th match sits inside a tablist
	InTablist(ctx context.Context, sel string, index int) (bool, error)
	// NestedDivTextCount counts div descendants of the index-th match whose
	// text contains any of the terms (case-insensitive)
	NestedDivTextCount(ctx context.Context, sel string, index int, terms []string) (int, error)
	// OuterHTML returns the full markup of the index-th match, "" when absent
	OuterHTML(ctx context.Context, sel string, index int) (string, error)
	// DescendantText returns the text of the first childSel descendant of
	// the index-th match of sel
	DescendantText(ctx context.Context, sel string, index int, childSel string) (string, error)
	// DescendantAttr returns the named attribute of the first childSel
	// descendant of the index-th match of sel
	DescendantAttr(ctx context.Context, sel string, index int, childSel, name string) (string, error)
	// DescendantAttrs returns the named attribute of every childSel
	// descendant of the index-th match of sel, in document order
	DescendantAttrs(ctx context.Context, sel string, index int, childSel, name string) ([]string, error)
	// Click scrolls the index-th match into view and clicks it
	Click(ctx context.Context, sel string, index int) error
	// DescendantClick clicks the first childSel descendant of the index-th
	// match of sel
	DescendantClick(ctx context.Context, sel string, index int, childSel string) error
	// ClearInput empties the first input matching sel
	ClearInput(ctx context.Context, sel string) error
	// TypeChar sends one character to the first input matching sel
	TypeChar(ctx context.Context, sel string, ch rune) error
	// ScrollFeedStep locates the scrollable ancestor of the first review
	// card and scrolls it by stepPx, returning the resulting geometry
	ScrollFeedStep(ctx context.Context, cardSelectors []string, stepPx int) (FeedState, error)
	// CaptureFeedHTML returns the outerHTML of the scrollable reviews
	// container, or a synthetic wrapper around the bare cards when no
	// scrollable ancestor exists
	CaptureFeedHTML(ctx context.Context, cardSelectors []string) (string, error)
	// BodyTextContains reports whether the page body text contains any of
	// the terms (case-insensitive)
	BodyTextContains(ctx context.Context, terms []string) (bool, error)
}
