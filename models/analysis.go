package models

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"jortega/reviewscout/helpers"
)

// TimeBucket groups a relative-time phrase into a coarse recency class.
type TimeBucket string

const (
	BucketRecent  TimeBucket = "recent"
	BucketMedium  TimeBucket = "medium"
	BucketOld     TimeBucket = "old"
	BucketUnknown TimeBucket = "unknown"
)

// ProcessedReview is a scraped review after normalization: whitespace and
// control characters cleaned, the rating coerced to a number, the owner
// reply flattened to plain text and the relative time classified.
type ProcessedReview struct {
	ReviewID       string     `json:"review_id,omitempty"`
	Source         string     `json:"source"`
	Author         string     `json:"author_name"`
	Rating         float64    `json:"rating"`
	RelativeTime   string     `json:"relative_time"`
	Text           string     `json:"text"`
	OwnerReply     string     `json:"owner_reply"`
	OwnerReplyTime string     `json:"owner_reply_relative_time"`
	Photos         []string   `json:"photos,omitempty"`
	HasText        bool       `json:"has_text"`
	HasOwnerReply  bool       `json:"has_owner_reply"`
	TimeBucket     TimeBucket `json:"relative_time_bucket"`
}

// Fingerprint returns the stable cross-run identity used for upserts.
func (p *ProcessedReview) Fingerprint(businessID string) string {
	parts := []string{
		businessID,
		p.Source,
		p.ReviewID,
		helpers.Fold(p.Author),
		strconv.FormatFloat(p.Rating, 'f', 1, 64),
		helpers.Fold(p.RelativeTime),
		helpers.Fold(p.Text),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// SentimentCounts tallies reviews by rating-derived sentiment.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Stats summarizes one batch of processed reviews.
type Stats struct {
	AvgRating          float64                        `json:"avg_rating"`
	RatingDistribution map[int]int                    `json:"rating_distribution"`
	ResponseRate       float64                        `json:"response_rate"`
	TotalWithText      int                            `json:"total_with_text"`
	SentimentByTime    map[TimeBucket]SentimentCounts `json:"sentiment_by_time"`
}

// ReviewAnalysis is the stored result of one analysis pass over a
// business's processed reviews.
type ReviewAnalysis struct {
	ID                  string    `json:"id,omitempty"`
	BusinessID          string    `json:"business_id,omitempty"`
	OverallSentiment    string    `json:"overall_sentiment"`
	MainTopics          []string  `json:"main_topics"`
	Strengths           []string  `json:"strengths"`
	Weaknesses          []string  `json:"weaknesses"`
	SuggestedOwnerReply string    `json:"suggested_owner_reply"`
	Stats               Stats     `json:"stats"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
}
