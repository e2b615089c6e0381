package models

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"jortega/reviewscout/helpers"
)

// OwnerReply is the business owner's response attached to a review card
type OwnerReply struct {
	Text         string `json:"text"`
	RelativeTime string `json:"relative_time,omitempty"`
}

// Review is one extracted review card. Absent string fields are "",
// absent rating is nil. Photos are excluded from identity on purpose:
// the page lazy-loads them, so their URLs churn between visits.
type Review struct {
	ReviewID     string      `json:"review_id,omitempty"`
	Author       string      `json:"author,omitempty"`
	Rating       *float64    `json:"rating,omitempty"`
	RelativeTime string      `json:"relative_time,omitempty"`
	Text         string      `json:"text,omitempty"`
	Photos       []string    `json:"photos,omitempty"`
	OwnerReply   *OwnerReply `json:"owner_reply,omitempty"`
	ScrapedAt    time.Time   `json:"scraped_at,omitempty"`
}

// Identity returns the dedup key for a card within one extraction run.
// The page's own review id wins when present.
func (r *Review) Identity() string {
	if r.ReviewID != "" {
		return r.ReviewID
	}
	h := sha1.New()
	h.Write([]byte(helpers.Fold(r.Author)))
	h.Write([]byte("|"))
	h.Write([]byte(r.ratingKey()))
	h.Write([]byte("|"))
	text := helpers.Fold(helpers.CleanText(r.Text))
	if len(text) > 160 {
		text = text[:160]
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the stable cross-run identity used for upserts.
func (r *Review) Fingerprint(business, source string) string {
	parts := []string{
		business,
		source,
		r.ReviewID,
		helpers.Fold(r.Author),
		r.ratingKey(),
		helpers.Fold(r.RelativeTime),
		helpers.Fold(helpers.CleanText(r.Text)),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (r *Review) ratingKey() string {
	if r.Rating == nil {
		return ""
	}
	return strconv.FormatFloat(*r.Rating, 'f', 1, 64)
}

// HasText reports whether the review body is non-empty after trimming
func (r *Review) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}
