package scraper

import (
	"context"
	"time"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/internal/browser"
	"jortega/reviewscout/pkg/errors"
)

// Element addresses one concrete element on the live page: the index-th
// match of a selector that won the pattern race for its role.
type Element struct {
	Selector string
	Index    int
}

// Collection addresses a nonempty set of matches for one selector
type Collection struct {
	Selector string
	Size     int
}

// Resolver tries each pattern of a role in order until one matches. A single
// pattern miss is swallowed and the next pattern tried; only a full-role miss
// surfaces, as ElementNotFound carrying the attempted patterns.
type Resolver struct {
	page browser.Page
}

// NewResolver creates a resolver over one page handle
func NewResolver(page browser.Page) *Resolver {
	return &Resolver{page: page}
}

// FirstVisible returns the first visible match across the role's patterns,
// giving each pattern the full timeout before moving on
func (r *Resolver) FirstVisible(ctx context.Context, role Role, timeout time.Duration) (Element, error) {
	tried := make([]string, 0, len(catalog[role]))

	for _, sel := range Patterns(role) {
		tried = append(tried, sel)
		if err := r.page.WaitVisible(ctx, sel, timeout); err != nil {
			if ctx.Err() != nil {
				return Element{}, ctx.Err()
			}
			continue
		}
		return Element{Selector: sel}, nil
	}

	return Element{}, errors.NewElementNotFound(string(role), tried)
}

// FirstVisibleOptional is FirstVisible returning absence instead of failing
func (r *Resolver) FirstVisibleOptional(ctx context.Context, role Role, timeout time.Duration) (Element, bool) {
	el, err := r.FirstVisible(ctx, role, timeout)
	if err != nil {
		return Element{}, false
	}
	return el, true
}

// Collection returns the first pattern of the role with a nonzero match count
func (r *Resolver) Collection(ctx context.Context, role Role) (Collection, bool) {
	for _, sel := range Patterns(role) {
		count, err := r.page.Count(ctx, sel)
		if err != nil || count == 0 {
			continue
		}
		return Collection{Selector: sel, Size: count}, true
	}
	return Collection{}, false
}

// AnyVisible reports whether any pattern of the role has a visible first match
func (r *Resolver) AnyVisible(ctx context.Context, role Role) bool {
	for _, sel := range Patterns(role) {
		visible, err := r.page.Visible(ctx, sel, 0)
		if err != nil {
			continue
		}
		if visible {
			return true
		}
	}
	return false
}

// Text returns the cleaned text of the first pattern yielding nonempty text
func (r *Resolver) Text(ctx context.Context, role Role) string {
	for _, sel := range Patterns(role) {
		text, err := r.page.Text(ctx, sel, 0)
		if err != nil {
			continue
		}
		if cleaned := helpers.CleanText(text); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// Attribute returns the named attribute from the first pattern carrying a
// nonempty value
func (r *Resolver) Attribute(ctx context.Context, role Role, name string) string {
	for _, sel := range Patterns(role) {
		count, err := r.page.Count(ctx, sel)
		if err != nil || count == 0 {
			continue
		}
		value, err := r.page.Attribute(ctx, sel, 0, name)
		if err != nil {
			continue
		}
		if cleaned := helpers.CleanText(value); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// CollectTexts gathers up to limit distinct texts across the role's
// patterns, deduplicated after folding, original spelling preserved
func (r *Resolver) CollectTexts(ctx context.Context, role Role, limit int) []string {
	values := make([]string, 0, limit)
	seen := make(map[string]struct{})

	for _, sel := range Patterns(role) {
		count, err := r.page.Count(ctx, sel)
		if err != nil {
			continue
		}
		if count > limit {
			count = limit
		}

		for idx := 0; idx < count; idx++ {
			text, err := r.page.Text(ctx, sel, idx)
			if err != nil {
				continue
			}
			cleaned := helpers.CleanText(text)
			if cleaned == "" {
				continue
			}

			key := helpers.Fold(cleaned)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			values = append(values, cleaned)

			if len(values) >= limit {
				return values
			}
		}
	}

	return values
}
