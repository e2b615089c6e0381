package models

import "time"

// Listing holds business-level fields read from the ready listing page.
// Numeric fields are nullable because the source page may omit them.
type Listing struct {
	BusinessName  string   `json:"business_name,omitempty"`
	Address       string   `json:"address,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Website       string   `json:"website,omitempty"`
	OverallRating *float64 `json:"overall_rating,omitempty"`
	TotalReviews  *int     `json:"total_reviews,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

// Business is the stored aggregate for one scraped business
type Business struct {
	ID               string    `json:"id"`
	Query            string    `json:"query"`
	Source           string    `json:"source"`
	Listing          Listing   `json:"listing"`
	Stats            Stats     `json:"stats"`
	ReviewCount      int       `json:"review_count"`
	LatestAnalysisID string    `json:"latest_analysis_id,omitempty"`
	LastScraped      time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
