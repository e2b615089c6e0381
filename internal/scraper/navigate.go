package scraper

import (
	"context"
	"time"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/pkg/errors"
)

var (
	consentTerms     = []string{"aceptar todo", "accept all", "i agree", "estoy de acuerdo"}
	limitedViewTerms = []string{"vista limitada de google maps", "limited view of google maps"}
	reviewTextTerms  = []string{"rese", "review"}

	// UI strings that mention reviews without being an entry point
	entrypointBlocklist = []string{
		"aviso legal",
		"avisos legales",
		"mas informacion sobre los avisos legales",
		"publicas en google maps",
		"public reviews",
		"escribir una resena",
		"write a review",
		"resumen de resenas",
		"review summary",
		"acciones en la resena",
		"compartir resena",
		"share review",
	}
)

// Open navigates to the maps home page and waits for the search control,
// dismissing the consent interstitial when it appears
func (s *Session) Open(ctx context.Context) error {
	if err := s.page.Navigate(ctx, s.cfg.MapsURL); err != nil {
		return err
	}

	if _, ok := s.res.FirstVisibleOptional(ctx, RoleSearchInput, 8*time.Second); ok {
		return nil
	}

	if err := s.dismissConsentIfPresent(ctx); err != nil {
		return err
	}
	if _, ok := s.res.FirstVisibleOptional(ctx, RoleSearchInput, 9*time.Second); ok {
		return nil
	}

	// Locale-pinned URL sometimes loops on consent; retry on the plain one.
	if err := s.page.Navigate(ctx, "https://www.google.com/maps"); err != nil {
		return err
	}
	if err := s.dismissConsentIfPresent(ctx); err != nil {
		return err
	}
	if _, ok := s.res.FirstVisibleOptional(ctx, RoleSearchInput, 9*time.Second); ok {
		return nil
	}

	return errors.NewElementNotFound(string(RoleSearchInput), Patterns(RoleSearchInput))
}

// SearchBusiness types the query, submits the search, and drives the page to
// the listing-ready state, opening the first result when a results list
// appears instead of a direct listing
func (s *Session) SearchBusiness(ctx context.Context, query string) error {
	input, err := s.res.FirstVisible(ctx, RoleSearchInput, s.cfg.Timeout)
	if err != nil {
		return err
	}
	if err := s.humanClick(ctx, input); err != nil {
		return err
	}
	if err := s.humanType(ctx, input.Selector, query); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.randDuration(200*time.Millisecond, 600*time.Millisecond)); err != nil {
		return err
	}

	button, err := s.res.FirstVisible(ctx, RoleSearchButton, s.cfg.Timeout)
	if err != nil {
		return err
	}
	if err := s.humanClick(ctx, button); err != nil {
		return err
	}

	state, err := s.waitForSearchState(ctx)
	if err != nil {
		return err
	}
	if state == searchStateResults {
		if err := s.openFirstResult(ctx); err != nil {
			return err
		}
	}

	return s.waitForListingReady(ctx)
}

const (
	searchStateListing = "listing"
	searchStateResults = "results"
)

// waitForSearchState polls until the page shows either a ready listing or a
// nonempty results list
func (s *Session) waitForSearchState(ctx context.Context) (string, error) {
	deadline := time.Now().Add(s.cfg.SearchTimeout)

	for time.Now().Before(deadline) {
		if s.res.AnyVisible(ctx, RoleListingReady) {
			return searchStateListing, nil
		}

		if s.res.AnyVisible(ctx, RoleResultsFeed) {
			if _, ok := s.res.Collection(ctx, RoleResultItems); ok {
				return searchStateResults, nil
			}
		}

		if err := s.sleep(ctx, 200*time.Millisecond); err != nil {
			return "", err
		}
	}

	return "", errors.NewSearchTimeout("search did not reach listing or results state")
}

// openFirstResult clicks the first clickable result, trying up to 5
// candidates per pattern and falling back to an anchor child when the
// candidate itself rejects the click
func (s *Session) openFirstResult(ctx context.Context) error {
	for _, sel := range Patterns(RoleResultItems) {
		total, err := s.page.Count(ctx, sel)
		if err != nil || total == 0 {
			continue
		}
		if total > 5 {
			total = 5
		}

		for idx := 0; idx < total; idx++ {
			visible, err := s.page.Visible(ctx, sel, idx)
			if err != nil || !visible {
				continue
			}

			if err := s.humanClick(ctx, Element{Selector: sel, Index: idx}); err == nil {
				return s.sleep(ctx, s.randDuration(450*time.Millisecond, 900*time.Millisecond))
			}

			// Fall back to the anchor inside this candidate, not the
			// idx-th anchor page-wide.
			const anchorChild = "a[href*='/maps/place/']"
			if href, err := s.page.DescendantAttr(ctx, sel, idx, anchorChild, "href"); err == nil && href != "" {
				if err := s.humanClickDescendant(ctx, Element{Selector: sel, Index: idx}, anchorChild); err == nil {
					return s.sleep(ctx, s.randDuration(450*time.Millisecond, 900*time.Millisecond))
				}
			}
		}
	}

	return errors.NewNoOpenableResult("could not open any candidate from the results feed")
}

// waitForListingReady polls until a listing-ready signal appears
func (s *Session) waitForListingReady(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.SearchTimeout)

	for time.Now().Before(deadline) {
		if s.res.AnyVisible(ctx, RoleListingReady) {
			return nil
		}
		if err := s.sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}

	return errors.NewSearchTimeout("listing did not become ready after search")
}

// EnsureReviewsOpen drives the page into the reviews-panel-open state.
// Returns (false, nil) when the listing simply has no reviews entry point --
// that is a terminal success for the lookup, not a failure. A limited-view
// profile returns a ReviewsUnavailable error instead, since reviews do not
// exist for it and retrying is pointless.
func (s *Session) EnsureReviewsOpen(ctx context.Context) (bool, error) {
	if ok, err := s.waitForReviewsReady(ctx, 2200*time.Millisecond); err != nil || ok {
		return ok, err
	}

	if limited, err := s.isLimitedView(ctx); err == nil && limited {
		return false, errors.NewReviewsUnavailable("profile is served in limited view")
	}

	if !s.hasReviewEntrypoint(ctx) {
		return false, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		if el, ok := s.findValidReviewsTab(ctx); ok {
			if err := s.humanClick(ctx, el); err != nil {
				return false, err
			}
			if err := s.sleep(ctx, s.randDuration(900*time.Millisecond, 1700*time.Millisecond)); err != nil {
				return false, err
			}
		}
		if ok, err := s.waitForReviewsReady(ctx, 4500*time.Millisecond); err != nil || ok {
			return ok, err
		}

		if el, ok := s.findValidReviewButton(ctx, RoleReviewsButton); ok {
			if err := s.humanClick(ctx, el); err != nil {
				return false, err
			}
			if err := s.sleep(ctx, s.randDuration(900*time.Millisecond, 1700*time.Millisecond)); err != nil {
				return false, err
			}
		}
		if ok, err := s.waitForReviewsReady(ctx, 5500*time.Millisecond); err != nil || ok {
			return ok, err
		}

		// Last resort for this attempt: any valid entry point, tab first.
		if el, ok := s.findAnyReviewEntrypoint(ctx); ok {
			if err := s.humanClick(ctx, el); err != nil {
				return false, err
			}
			if ok, err := s.waitForReviewsReady(ctx, 5000*time.Millisecond); err != nil || ok {
				return ok, err
			}
		}
	}

	return s.waitForReviewsReady(ctx, 2500*time.Millisecond)
}

// waitForReviewsReady polls for a panel-specific affordance (sort, filter,
// in-panel search), or for a selected reviews tab with cards already present
func (s *Session) waitForReviewsReady(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if s.res.AnyVisible(ctx, RoleReviewsPanelReady) {
			// Cards sometimes render only after the first nudge of the
			// container.
			if _, err := s.page.ScrollFeedStep(ctx, Patterns(RoleReviewCards), 0); err != nil {
				return false, err
			}
			if err := s.sleep(ctx, 700*time.Millisecond); err != nil {
				return false, err
			}
			return true, nil
		}

		if s.isReviewsTabSelected(ctx) && s.reviewCount(ctx) > 0 {
			return true, nil
		}

		if err := s.sleep(ctx, 220*time.Millisecond); err != nil {
			return false, err
		}
	}

	return false, nil
}

const selectedTabSelector = "[role='tablist'] button[role='tab'][aria-selected='true']"

func (s *Session) isReviewsTabSelected(ctx context.Context) bool {
	total, err := s.page.Count(ctx, selectedTabSelector)
	if err != nil {
		return false
	}
	if total > 6 {
		total = 6
	}

	for idx := 0; idx < total; idx++ {
		if isReviewEntrypointText(s.candidateLabel(ctx, Element{Selector: selectedTabSelector, Index: idx})) {
			return true
		}
	}
	return false
}

func (s *Session) hasReviewEntrypoint(ctx context.Context) bool {
	if _, ok := s.findValidReviewsTab(ctx); ok {
		return true
	}
	if _, ok := s.findValidReviewButton(ctx, RoleReviewsButton); ok {
		return true
	}
	_, ok := s.findAnyReviewEntrypoint(ctx)
	return ok
}

var reviewsTablistSelectors = []string{
	"div[role='main'] [role='tablist'] button[role='tab']",
	"[role='tablist'] button[role='tab']",
}

// findValidReviewsTab scans tabs inside tablists for a genuine reviews tab
func (s *Session) findValidReviewsTab(ctx context.Context) (Element, bool) {
	for _, sel := range reviewsTablistSelectors {
		total, err := s.page.Count(ctx, sel)
		if err != nil {
			continue
		}
		if total > 12 {
			total = 12
		}

		for idx := 0; idx < total; idx++ {
			el := Element{Selector: sel, Index: idx}
			if s.isValidReviewButton(ctx, el, true) {
				return el, true
			}
		}
	}
	return Element{}, false
}

func (s *Session) findValidReviewButton(ctx context.Context, role Role) (Element, bool) {
	for _, sel := range Patterns(role) {
		total, err := s.page.Count(ctx, sel)
		if err != nil {
			continue
		}
		if total > 10 {
			total = 10
		}

		for idx := 0; idx < total; idx++ {
			el := Element{Selector: sel, Index: idx}
			if s.isValidReviewButton(ctx, el, false) {
				return el, true
			}
		}
	}
	return Element{}, false
}

func (s *Session) findAnyReviewEntrypoint(ctx context.Context) (Element, bool) {
	if el, ok := s.findValidReviewsTab(ctx); ok {
		return el, true
	}
	return s.findValidReviewButton(ctx, RoleReviewsButton)
}

// isValidReviewButton filters candidates down to actual BUTTON elements that
// nest review-related text and whose label is not on the blocklist
func (s *Session) isValidReviewButton(ctx context.Context, el Element, mustBeInTablist bool) bool {
	visible, err := s.page.Visible(ctx, el.Selector, el.Index)
	if err != nil || !visible {
		return false
	}

	tag, err := s.page.TagName(ctx, el.Selector, el.Index)
	if err != nil || tag != "BUTTON" {
		return false
	}

	if mustBeInTablist {
		inside, err := s.page.InTablist(ctx, el.Selector, el.Index)
		if err != nil || !inside {
			return false
		}
	}

	hits, err := s.page.NestedDivTextCount(ctx, el.Selector, el.Index, reviewTextTerms)
	if err != nil || hits == 0 {
		return false
	}

	return isReviewEntrypointText(s.candidateLabel(ctx, el))
}

func (s *Session) candidateLabel(ctx context.Context, el Element) string {
	aria, _ := s.page.Attribute(ctx, el.Selector, el.Index, "aria-label")
	text, _ := s.page.Text(ctx, el.Selector, el.Index)
	return helpers.CleanText(aria + " " + text)
}

func isReviewEntrypointText(label string) bool {
	folded := helpers.Fold(helpers.CleanText(label))
	if folded == "" {
		return false
	}
	if !containsAny(folded, reviewTextTerms) {
		return false
	}
	return !containsAny(folded, entrypointBlocklist)
}

func containsAny(folded string, terms []string) bool {
	for _, term := range terms {
		if helpers.FoldContains(folded, term) {
			return true
		}
	}
	return false
}

// clickExpandButtons expands truncated review texts, bounded by maxClicks
func (s *Session) clickExpandButtons(ctx context.Context, maxClicks int) (int, error) {
	clicks := 0

	for _, sel := range Patterns(RoleReviewExpand) {
		total, err := s.page.Count(ctx, sel)
		if err != nil || total == 0 {
			continue
		}

		for idx := 0; idx < total; idx++ {
			if clicks >= maxClicks {
				return clicks, nil
			}

			visible, err := s.page.Visible(ctx, sel, idx)
			if err != nil || !visible {
				continue
			}
			if err := s.humanClick(ctx, Element{Selector: sel, Index: idx}); err != nil {
				continue
			}
			clicks++
			if err := s.sleep(ctx, s.randDuration(300*time.Millisecond, 900*time.Millisecond)); err != nil {
				return clicks, err
			}
		}
	}

	return clicks, nil
}

func (s *Session) isLimitedView(ctx context.Context) (bool, error) {
	return s.page.BodyTextContains(ctx, limitedViewTerms)
}

// dismissConsentIfPresent clicks through the consent interstitial when its
// accept control is on the page
func (s *Session) dismissConsentIfPresent(ctx context.Context) error {
	const candidateSel = "button, [role='button'], [role='tab']"

	total, err := s.page.Count(ctx, candidateSel)
	if err != nil {
		return nil
	}
	if total > 12 {
		total = 12
	}

	for idx := 0; idx < total; idx++ {
		el := Element{Selector: candidateSel, Index: idx}
		if !containsAny(helpers.Fold(s.candidateLabel(ctx, el)), consentTerms) {
			continue
		}
		visible, err := s.page.Visible(ctx, el.Selector, el.Index)
		if err != nil || !visible {
			continue
		}
		if err := s.humanClick(ctx, el); err != nil {
			continue
		}
		return s.sleep(ctx, s.randDuration(1200*time.Millisecond, 2200*time.Millisecond))
	}

	return nil
}
