package scraper

import (
	"context"

	"jortega/reviewscout/models"
)

// ExtractListing pulls the business-level fields from the ready listing
// page. Accessible labels win over visible text where both exist; labels
// survive visual redesigns better.
func (s *Session) ExtractListing(ctx context.Context) (models.Listing, error) {
	if err := s.waitForListingReady(ctx); err != nil {
		return models.Listing{}, err
	}

	listing := models.Listing{
		BusinessName: s.res.Text(ctx, RoleBusinessName),
		Address:      s.res.Text(ctx, RoleListingAddress),
		Phone:        s.res.Text(ctx, RoleListingPhone),
		Website:      s.res.Text(ctx, RoleListingWebsite),
	}

	ratingSource := s.res.Attribute(ctx, RoleListingRating, "aria-label")
	if ratingSource == "" {
		ratingSource = s.res.Text(ctx, RoleListingRating)
	}
	listing.OverallRating = ParseRating(ratingSource)

	reviewsSource := s.res.Attribute(ctx, RoleListingTotalReviews, "aria-label")
	if reviewsSource == "" {
		reviewsSource = s.res.Text(ctx, RoleListingTotalReviews)
	}
	listing.TotalReviews = ParseTotalReviews(reviewsSource)

	for _, candidate := range s.res.CollectTexts(ctx, RoleListingCategories, 30) {
		if IsProbableCategory(candidate) {
			listing.Categories = append(listing.Categories, candidate)
		}
	}

	return listing, nil
}
