package scraper

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"jortega/reviewscout/helpers"
)

var (
	decimalPattern  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	digitRunPattern = regexp.MustCompile(`\d[\d.,\s]*`)
	anyDigitPattern = regexp.MustCompile(`\d`)
	markupPattern   = regexp.MustCompile(`<[^>]+>`)
	styleURLPattern = regexp.MustCompile(`url\(([^)]+)\)`)
)

// ParseRating pulls the first decimal out of a star label, accepting a comma
// as decimal separator. Values outside [0,5] are unparseable, not clamped:
// "7 stars" is noise from some other counter, not a rating.
func ParseRating(value string) *float64 {
	if value == "" {
		return nil
	}

	match := decimalPattern.FindString(helpers.Fold(value))
	if match == "" {
		return nil
	}

	rating, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	if rating < 0 || rating > 5 {
		return nil
	}
	return &rating
}

// ParseTotalReviews extracts every digit run from a label, strips
// thousands-separator noise, and prefers the largest candidate >= 10.
// Small numbers in the same label are usually unrelated counters, photo
// counts most often.
func ParseTotalReviews(value string) *int {
	if value == "" {
		return nil
	}

	var numbers []int
	for _, run := range digitRunPattern.FindAllString(value, -1) {
		var digits strings.Builder
		for _, ch := range run {
			if ch >= '0' && ch <= '9' {
				digits.WriteRune(ch)
			}
		}
		if digits.Len() == 0 {
			continue
		}
		n, err := strconv.Atoi(digits.String())
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil
	}

	best := -1
	for _, n := range numbers {
		if n >= 10 && n > best {
			best = n
		}
	}
	if best < 0 {
		for _, n := range numbers {
			if n > best {
				best = n
			}
		}
	}
	return &best
}

// categoryBlocklist holds folded UI strings that show up among category
// candidates but never are categories
var categoryBlocklist = map[string]struct{}{
	"copiar":               {},
	"guardar":              {},
	"compartir":            {},
	"como llegar":          {},
	"escribir una resena":  {},
	"resenas":              {},
	"informacion":          {},
	"vista general":        {},
	"carta":                {},
	"ordenar":              {},
	"buscar resenas":       {},
	"reviews":              {},
}

// IsProbableCategory filters category candidates: short, digit-free, and
// not a known action label or section header
func IsProbableCategory(value string) bool {
	folded := helpers.Fold(helpers.CleanText(value))
	if folded == "" {
		return false
	}
	if len(folded) > 35 {
		return false
	}
	if anyDigitPattern.MatchString(folded) {
		return false
	}
	_, blocked := categoryBlocklist[folded]
	return !blocked
}

// stripMarkup removes tags, entity-decodes, and collapses whitespace
func stripMarkup(value string) string {
	withoutTags := markupPattern.ReplaceAllString(value, " ")
	return helpers.CleanText(html.UnescapeString(withoutTags))
}

// extractStyleURLs pulls url(...) references out of a style attribute value
func extractStyleURLs(style string) []string {
	if style == "" {
		return nil
	}

	var urls []string
	for _, match := range styleURLPattern.FindAllStringSubmatch(style, -1) {
		cleaned := strings.Trim(strings.TrimSpace(match[1]), `'"`)
		cleaned = html.UnescapeString(cleaned)
		if cleaned != "" {
			urls = append(urls, cleaned)
		}
	}
	return urls
}
