package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/models"
)

var (
	controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	firstNumberPattern  = regexp.MustCompile(`\d+`)
)

var (
	recentInstantTerms = []string{"just now", "moments ago", "hace un momento"}
	recentUnitTerms    = []string{
		"day", "days", "week", "weeks", "hour", "hours", "minute", "minutes",
		"dia", "dias", "semana", "semanas", "hora", "horas", "minuto", "minutos",
	}
	monthTerms = []string{"month", "months", "mes", "meses"}
	yearTerms  = []string{"year", "years", "ano", "anos"}
)

// Preprocessor normalizes scraped reviews before analysis and persistence.
type Preprocessor struct{}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Process flattens and cleans scraped reviews. Ratings are coerced to a
// plain number, owner replies to text, and each relative-time phrase is
// grouped into a recency bucket.
func (p *Preprocessor) Process(source string, reviews []models.Review) []models.ProcessedReview {
	processed := make([]models.ProcessedReview, 0, len(reviews))

	for _, review := range reviews {
		item := models.ProcessedReview{
			ReviewID:     review.ReviewID,
			Source:       source,
			Author:       CleanText(review.Author),
			Rating:       CoerceRating(review.Rating),
			RelativeTime: CleanText(review.RelativeTime),
			Text:         CleanText(review.Text),
			Photos:       review.Photos,
		}
		if review.OwnerReply != nil {
			item.OwnerReply = CleanText(review.OwnerReply.Text)
			item.OwnerReplyTime = CleanText(review.OwnerReply.RelativeTime)
		}
		item.HasText = item.Text != ""
		item.HasOwnerReply = item.OwnerReply != ""
		item.TimeBucket = RelativeTimeBucket(item.RelativeTime)

		processed = append(processed, item)
	}

	return processed
}

// ComputeStats aggregates a batch of processed reviews. An empty batch
// yields zeroed stats rather than NaN averages.
func (p *Preprocessor) ComputeStats(reviews []models.ProcessedReview) models.Stats {
	stats := models.Stats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		SentimentByTime:    map[models.TimeBucket]models.SentimentCounts{},
	}
	if len(reviews) == 0 {
		return stats
	}

	var ratingSum float64
	var withReply int
	for _, item := range reviews {
		ratingSum += item.Rating
		if item.HasText {
			stats.TotalWithText++
		}
		if item.HasOwnerReply {
			withReply++
		}

		star := int(math.Round(item.Rating))
		if star < 1 {
			star = 1
		} else if star > 5 {
			star = 5
		}
		stats.RatingDistribution[star]++

		bucket := item.TimeBucket
		if bucket == "" {
			bucket = RelativeTimeBucket(item.RelativeTime)
		}
		counts := stats.SentimentByTime[bucket]
		switch {
		case item.Rating >= 4.0:
			counts.Positive++
		case item.Rating <= 2.0:
			counts.Negative++
		default:
			counts.Neutral++
		}
		stats.SentimentByTime[bucket] = counts
	}

	total := float64(len(reviews))
	stats.AvgRating = round(ratingSum/total, 2)
	stats.ResponseRate = round(float64(withReply)/total, 4)
	return stats
}

// CleanText collapses whitespace and strips control characters.
func CleanText(text string) string {
	return helpers.CleanText(controlCharsPattern.ReplaceAllString(text, " "))
}

// CoerceRating flattens a scraped rating. Missing ratings become 0.
func CoerceRating(rating *float64) float64 {
	if rating == nil {
		return 0.0
	}
	return *rating
}

// RelativeTimeBucket classifies phrases like "2 months ago" or "hace 3
// años" into recent, medium or old. Unrecognized phrases are unknown.
func RelativeTimeBucket(relativeTime string) models.TimeBucket {
	if relativeTime == "" {
		return models.BucketUnknown
	}

	value := helpers.Fold(relativeTime)

	if containsAnyTerm(value, recentInstantTerms) {
		return models.BucketRecent
	}

	amount := 1
	if match := firstNumberPattern.FindString(value); match != "" {
		if parsed, err := strconv.Atoi(match); err == nil {
			amount = parsed
		}
	}

	if containsAnyTerm(value, recentUnitTerms) {
		return models.BucketRecent
	}

	if containsAnyTerm(value, monthTerms) {
		switch {
		case amount < 3:
			return models.BucketRecent
		case amount <= 12:
			return models.BucketMedium
		default:
			return models.BucketOld
		}
	}

	if containsAnyTerm(value, yearTerms) {
		if amount <= 1 {
			return models.BucketMedium
		}
		return models.BucketOld
	}

	return models.BucketUnknown
}

func containsAnyTerm(value string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(value, term) {
			return true
		}
	}
	return false
}

func round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
