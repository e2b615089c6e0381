package scraper

import (
	"context"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/models"
	"jortega/reviewscout/pkg/errors"
)

// Result is everything one lookup produces. Reviews keep DOM/snapshot order
// at capture time. Snapshot is set only by the scroll-copy strategy and lets
// the caller re-parse without re-scrolling.
type Result struct {
	Listing  models.Listing
	Reviews  []models.Review
	Snapshot string
}

// Scrape runs the whole pass for one business query: navigate, search,
// extract the listing, then pull reviews with the configured strategy.
// A ReviewsUnavailable error still carries the listing in the result.
func (s *Session) Scrape(ctx context.Context, query string) (*Result, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	if err := s.SearchBusiness(ctx, query); err != nil {
		return nil, err
	}

	listing, err := s.ExtractListing(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Listing: listing}

	reviews, snapshot, err := s.ExtractReviews(ctx, s.cfg.Strategy)
	res.Reviews = reviews
	res.Snapshot = snapshot
	if err != nil {
		return res, err
	}

	s.log.Info().
		Str("business", listing.BusinessName).
		Int("reviews", len(reviews)).
		Str("strategy", string(s.cfg.Strategy)).
		Msg("Extraction pass finished")
	return res, nil
}

// ExtractReviews pulls reviews with the given strategy. The scroll-copy
// strategy also returns the raw feed snapshot it parsed.
func (s *Session) ExtractReviews(ctx context.Context, strategy models.Strategy) ([]models.Review, string, error) {
	switch strategy {
	case models.StrategyInteractive:
		reviews, err := s.extractReviewsInteractive(ctx)
		return reviews, "", err
	default:
		snapshot, err := s.CollectSnapshot(ctx, ScrollParams{})
		if err != nil {
			return nil, "", err
		}
		return ReviewsFromSnapshot(snapshot, 0), snapshot, nil
	}
}

// extractReviewsInteractive reads fields element by element from the live
// page after a light scroll pass
func (s *Session) extractReviewsInteractive(ctx context.Context) ([]models.Review, error) {
	if err := s.ScrollReviews(ctx, 10); err != nil {
		return nil, err
	}

	opened, err := s.EnsureReviewsOpen(ctx)
	if err != nil || !opened {
		return nil, err
	}

	if _, err := s.clickExpandButtons(ctx, 8); err != nil {
		return nil, err
	}

	cards, ok := s.res.Collection(ctx, RoleReviewCards)
	if !ok {
		return nil, nil
	}

	reviews := make([]models.Review, 0, cards.Size)
	for idx := 0; idx < cards.Size; idx++ {
		review, err := s.extractCardLive(ctx, cards.Selector, idx)
		if err != nil {
			logIncompleteCard(review.ReviewID, err)
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (s *Session) extractCardLive(ctx context.Context, cardSel string, idx int) (models.Review, error) {
	var review models.Review

	reviewID, _ := s.page.Attribute(ctx, cardSel, idx, "data-review-id")
	review.ReviewID = helpers.CleanText(reviewID)

	author, _ := s.page.DescendantText(ctx, cardSel, idx, "div.d4r55")
	review.Author = helpers.CleanText(author)
	if review.Author == "" {
		label, _ := s.page.Attribute(ctx, cardSel, idx, "aria-label")
		review.Author = helpers.CleanText(label)
	}

	for _, ratingSel := range Patterns(RoleRatingLabel) {
		label, err := s.page.DescendantAttr(ctx, cardSel, idx, ratingSel, "aria-label")
		if err != nil {
			continue
		}
		if review.Rating = ParseRating(label); review.Rating != nil {
			break
		}
	}

	relTime, _ := s.page.DescendantText(ctx, cardSel, idx, "span.rsqaWe")
	review.RelativeTime = helpers.CleanText(relTime)

	text, _ := s.page.DescendantText(ctx, cardSel, idx, ".MyEned .wiI7pd")
	review.Text = helpers.CleanText(text)

	styles, err := s.page.DescendantAttrs(ctx, cardSel, idx, Patterns(RoleReviewPhotos)[0], "style")
	if err == nil {
		seen := make(map[string]struct{})
		for _, style := range styles {
			for _, url := range extractStyleURLs(style) {
				if _, dup := seen[url]; dup {
					continue
				}
				seen[url] = struct{}{}
				review.Photos = append(review.Photos, url)
			}
		}
	}

	if cardHTML, err := s.page.OuterHTML(ctx, cardSel, idx); err == nil {
		review.OwnerReply = ExtractOwnerReply(cardHTML)
	}

	var missing []string
	if review.Author == "" {
		missing = append(missing, "author")
	}
	if review.Rating == nil {
		missing = append(missing, "rating")
	}
	if review.RelativeTime == "" {
		missing = append(missing, "relative_time")
	}
	if review.Text == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return review, errors.NewParseIncomplete(missing)
	}
	return review, nil
}
