package scraper

// Role names a semantic UI element the engine needs to find
type Role string

const (
	RoleSearchInput  Role = "search_input"
	RoleSearchButton Role = "search_button"

	RoleResultsFeed Role = "results_feed"
	RoleResultItems Role = "result_items"

	RoleListingReady        Role = "listing_ready"
	RoleBusinessName        Role = "business_name"
	RoleListingAddress      Role = "listing_address"
	RoleListingWebsite      Role = "listing_website"
	RoleListingPhone        Role = "listing_phone"
	RoleListingRating       Role = "listing_rating"
	RoleListingTotalReviews Role = "listing_total_reviews"
	RoleListingCategories   Role = "listing_categories"

	RoleReviewsTab        Role = "reviews_tab"
	RoleReviewsButton     Role = "reviews_button"
	RoleReviewsPanelReady Role = "reviews_panel_ready"

	RoleReviewCards  Role = "review_cards"
	RoleAuthorName   Role = "author_name"
	RoleRatingLabel  Role = "rating_label"
	RoleRelativeTime Role = "relative_time"
	RoleReviewText   Role = "review_text"
	RoleReviewExpand Role = "review_expand"
	RoleReviewPhotos Role = "review_photos"

	RoleOwnerReplyTime Role = "owner_reply_time"
	RoleOwnerReplyText Role = "owner_reply_text"
)

// catalog maps each role to an ordered list of structural patterns. Order
// encodes confidence discovered empirically, so the first match wins.
// Patterns lean on behavior attributes and roles rather than concrete ids,
// which churn on every page rollout.
var catalog = map[Role][]string{
	RoleSearchInput: {
		"div[role='search'] input[role='combobox'][name='q']",
		"form[jsaction*='searchboxFormSubmit'] input[name='q']",
		"div[role='search'] input[role='combobox']",
	},
	RoleSearchButton: {
		"div[role='search'] button[jsaction*='omnibox.search']",
		"div[role='search'] button[aria-label*='busqueda' i]",
		"div[role='search'] button[aria-label*='search' i]",
	},
	RoleResultsFeed: {
		"div[role='feed']",
		"div[aria-label*='Resultados' i][role='feed']",
		"div[aria-label*='Results' i][role='feed']",
	},
	RoleResultItems: {
		"div[role='feed'] a[href*='/maps/place/']",
		"div[role='feed'] a.hfpxzc",
		"div[role='feed'] [jsaction*='pane.result'] a[href*='/maps/place/']",
		"div[role='feed'] [data-result-index]",
	},
	RoleListingReady: {
		"h1.DUwDvf",
		"button[role='tab'][aria-label*='rese' i]",
		"button[role='tab'][aria-label*='review' i]",
		"div[jsaction*='reviewChart.moreReviews']",
		"button[data-item-id='address']",
	},
	RoleBusinessName: {
		"h1.DUwDvf",
		"h1[class*='DUwDvf']",
	},
	RoleListingAddress: {
		"button[data-item-id='address'] .Io6YTe",
		"button[data-item-id='address']",
	},
	RoleListingWebsite: {
		"button[data-item-id='authority'] .Io6YTe",
		"button[data-item-id='authority']",
	},
	RoleListingPhone: {
		"button[data-item-id^='phone:'] .Io6YTe",
		"button[data-item-id^='phone:']",
	},
	RoleListingRating: {
		"div.F7nice [aria-label*='estrella' i]",
		"div[role='img'][aria-label*='estrella' i]",
		"div[role='img'][aria-label*='star' i]",
	},
	RoleListingTotalReviews: {
		"div.F7nice [aria-label*='rese' i]",
		"button[jsaction*='reviewChart.moreReviews']",
		"button[aria-label*='rese' i]",
	},
	RoleListingCategories: {
		"button[jsaction*='.category']",
		"button[jsaction*='pane.wfvdle'][aria-label*='rest' i]",
		"div.fontBodyMedium button",
	},
	RoleReviewsTab: {
		"button[role='tab'][aria-label*='rese' i]",
		"button[role='tab'][aria-label*='review' i]",
		"button[role='tab'][jsaction*='tabs.tabClick'][aria-label*='rese' i]",
		"button[role='tab'][jsaction*='tabs.tabClick'][aria-label*='review' i]",
	},
	RoleReviewsButton: {
		"button[jsaction*='reviewChart.moreReviews']",
		"div[jsaction*='reviewChart.moreReviews'] button",
		"button[jsaction*='.reviewChart.moreReviews']",
		"button[aria-label*='más rese' i]",
		"button[aria-label*='mas rese' i]",
		"button[aria-label*='more review' i]",
	},
	RoleReviewsPanelReady: {
		"button[aria-label*='ordenar rese' i]",
		"button[aria-label*='sort review' i]",
		"input[aria-label*='buscar rese' i]",
		"input[aria-label*='search review' i]",
		"div[role='radiogroup'][aria-label*='filtrar rese' i]",
		"div[role='radiogroup'][aria-label*='filter review' i]",
	},
	RoleReviewCards: {
		"div.jftiEf[data-review-id]",
		"div[data-review-id].jftiEf",
		"div.jftiEf.fontBodyMedium",
		"div.jftiEf",
		"div[data-review-id][jsaction*='.review.in']",
		"div[jsaction*='.review.in'][data-review-id]",
	},
	RoleAuthorName: {
		"div.d4r55",
		"[aria-label][data-review-id]",
	},
	RoleRatingLabel: {
		"span.kvMYJc[role='img']",
		"[role='img'][aria-label*='estrella' i]",
		"[role='img'][aria-label*='star' i]",
	},
	RoleRelativeTime: {
		"span.rsqaWe",
	},
	RoleReviewText: {
		".MyEned .wiI7pd",
		"div.MyEned span.wiI7pd",
	},
	RoleReviewExpand: {
		"button[jsaction*='.review.expandReview']",
	},
	RoleReviewPhotos: {
		"button[data-photo-index][data-review-id]",
	},
	RoleOwnerReplyTime: {
		"span.DZSIDd",
		".DZSIDd",
	},
	RoleOwnerReplyText: {
		"span.wiI7pd",
		".wiI7pd",
	},
}

// Patterns returns the ordered pattern list for a role. The slice is shared;
// callers must not mutate it.
func Patterns(role Role) []string {
	return catalog[role]
}
