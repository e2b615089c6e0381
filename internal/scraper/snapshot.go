package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/models"
	"jortega/reviewscout/pkg/errors"
)

func logIncompleteCard(reviewID string, err error) {
	logger.Debug("Card %s parsed with missing fields: %v", reviewID, err)
}

// RawReviewCard is one card's markup fragment cut out of a feed snapshot.
// Transient: it exists only between boundary detection and field parsing.
type RawReviewCard struct {
	ReviewID string
	HTML     string
}

var (
	cardOpenTagPattern = regexp.MustCompile(`(?i)<div\b[^>]*\bdata-review-id\s*=\s*['"]([^"']+)['"][^>]*>`)
	divTagPattern      = regexp.MustCompile(`(?i)</?div\b[^>]*>`)

	ownerReplyMarkerPattern = regexp.MustCompile(`(?i)(Respuesta del propietario|Owner response|Response from the owner)`)
	ownerReplyTimePattern   = regexp.MustCompile(`(?is)<span[^>]*class=['"][^'"]*DZSIDd[^'"]*['"][^>]*>(.*?)</span>`)
	ownerReplyTextPattern   = regexp.MustCompile(`(?is)<span[^>]*class=['"][^'"]*wiI7pd[^'"]*['"][^>]*>(.*?)</span>`)

	ratingLabelTerms = []string{"estrella", "star"}
)

// ExtractCards splits a feed snapshot into per-review fragments. Boundaries
// come from balanced div counting starting at the tag carrying the review
// identifier, so arbitrarily deep nested markup stays inside its card.
// Duplicate identifiers keep the first occurrence; unclosed tags are skipped.
func ExtractCards(snapshot string) []RawReviewCard {
	var cards []RawReviewCard
	seen := make(map[string]struct{})

	for _, loc := range cardOpenTagPattern.FindAllStringSubmatchIndex(snapshot, -1) {
		reviewID := helpers.CleanText(snapshot[loc[2]:loc[3]])
		if reviewID == "" {
			continue
		}
		if _, dup := seen[reviewID]; dup {
			continue
		}

		depth := 1
		endIndex := -1
		for _, div := range divTagPattern.FindAllStringIndex(snapshot[loc[1]:], -1) {
			token := snapshot[loc[1]+div[0] : loc[1]+div[1]]
			if strings.HasPrefix(strings.ToLower(token), "</div") {
				depth--
			} else {
				depth++
			}
			if depth == 0 {
				endIndex = loc[1] + div[1]
				break
			}
		}
		if endIndex < 0 {
			continue
		}

		cards = append(cards, RawReviewCard{
			ReviewID: reviewID,
			HTML:     snapshot[loc[0]:endIndex],
		})
		seen[reviewID] = struct{}{}
	}

	return cards
}

// ParseCard extracts the typed fields from one card fragment. A card missing
// some fields still yields a usable Review alongside a ParseIncomplete error;
// callers log it and keep going, since inconsistently rendered optional
// elements are the page's steady state, not a failure.
func ParseCard(card RawReviewCard) (models.Review, error) {
	review := models.Review{ReviewID: card.ReviewID}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(card.HTML))
	if err != nil {
		return review, errors.NewParseIncomplete([]string{"author", "rating", "relative_time", "text"})
	}

	if review.ReviewID == "" {
		review.ReviewID = helpers.CleanText(doc.Find("[data-review-id]").First().AttrOr("data-review-id", ""))
	}

	review.Author = helpers.CleanText(doc.Find("div.d4r55").First().Text())

	if label := firstAttrContaining(doc, "aria-label", ratingLabelTerms); label != "" {
		review.Rating = ParseRating(label)
	}

	review.RelativeTime = helpers.CleanText(doc.Find("span.rsqaWe").First().Text())

	review.Text = helpers.CleanText(doc.Find(".MyEned .wiI7pd").First().Text())
	if review.Text == "" {
		review.Text = helpers.CleanText(doc.Find("span.wiI7pd").First().Text())
	}

	review.Photos = collectStyleURLs(doc)
	review.OwnerReply = ExtractOwnerReply(card.HTML)

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

// ExtractOwnerReply finds the owner-reply marker phrase and reads the reply
// timestamp and text from the markup after it. A marker with no extractable
// reply text yields no reply at all, never a partial one.
func ExtractOwnerReply(cardHTML string) *models.OwnerReply {
	marker := ownerReplyMarkerPattern.FindStringIndex(cardHTML)
	if marker == nil {
		return nil
	}

	afterMarker := cardHTML[marker[1]:]

	var replyTime string
	if m := ownerReplyTimePattern.FindStringSubmatch(afterMarker); m != nil {
		replyTime = stripMarkup(m[1])
	}

	var replyText string
	if m := ownerReplyTextPattern.FindStringSubmatch(afterMarker); m != nil {
		replyText = stripMarkup(m[1])
	}
	if replyText == "" {
		return nil
	}

	return &models.OwnerReply{Text: replyText, RelativeTime: replyTime}
}

// ReviewsFromSnapshot runs card splitting and field parsing over a full feed
// snapshot. limit <= 0 means no limit.
func ReviewsFromSnapshot(snapshot string, limit int) []models.Review {
	if snapshot == "" {
		return nil
	}

	cards := ExtractCards(snapshot)
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}

	reviews := make([]models.Review, 0, len(cards))
	for _, card := range cards {
		review, err := ParseCard(card)
		if err != nil {
			logIncompleteCard(card.ReviewID, err)
		}
		reviews = append(reviews, review)
	}
	return reviews
}

func firstAttrContaining(doc *goquery.Document, attr string, terms []string) string {
	var found string
	doc.Find("[" + attr + "]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		value := helpers.CleanText(sel.AttrOr(attr, ""))
		if value == "" {
			return true
		}
		folded := helpers.Fold(value)
		for _, term := range terms {
			if strings.Contains(folded, term) {
				found = value
				return false
			}
		}
		return true
	})
	return found
}

func collectStyleURLs(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]struct{})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		for _, url := range extractStyleURLs(sel.AttrOr("style", "")) {
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			urls = append(urls, url)
		}
	})
	return urls
}
