package scrapers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/models"
)

// parseJSONLD extracts reviews from every application/ld+json block in the
// document. Recognized structures: a bare Review, a Product / Organization /
// LocalBusiness carrying a nested review field (single or array), and a
// @graph array whose members carry review fields. A malformed block is logged
// and skipped; it never aborts the whole parse.
func parseJSONLD(doc *goquery.Document, source models.TestimonialSource) []models.ScrapedReview {
	var reviews []models.ScrapedReview
	now := time.Now().UTC().UnixMilli()

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(script.Text()), &raw); err != nil {
			logrus.Warnf("Failed to parse JSON-LD block: %v", err)
			return
		}

		for _, candidate := range collectReviewCandidates(raw) {
			review, ok := mapJSONLDReview(candidate, len(reviews), now, source)
			if !ok {
				continue
			}
			reviews = append(reviews, review)
		}
	})

	return reviews
}

// collectReviewCandidates flattens the recognized JSON-LD shapes into a list
// of raw review objects.
func collectReviewCandidates(raw map[string]interface{}) []map[string]interface{} {
	var candidates []map[string]interface{}

	appendReviews := func(value interface{}) {
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					candidates = append(candidates, m)
				}
			}
		case map[string]interface{}:
			candidates = append(candidates, v)
		}
	}

	switch raw["@type"] {
	case "Review":
		candidates = append(candidates, raw)
	case "Product", "Organization", "LocalBusiness":
		if raw["review"] != nil {
			appendReviews(raw["review"])
		}
	default:
		if graph, ok := raw["@graph"].([]interface{}); ok {
			for _, item := range graph {
				node, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if node["review"] != nil {
					appendReviews(node["review"])
				}
			}
		}
	}

	return candidates
}

// mapJSONLDReview converts one raw review object into canonical form. A
// review lacking both body and headline is invalid and discarded.
func mapJSONLDReview(raw map[string]interface{}, index int, fetchedAt int64, source models.TestimonialSource) (models.ScrapedReview, bool) {
	content := stringField(raw, "reviewBody")
	title := stringField(raw, "headline")
	if title == "" {
		title = stringField(raw, "name")
	}

	if content == "" && title == "" {
		return models.ScrapedReview{}, false
	}

	date := stringField(raw, "datePublished")
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}

	return models.ScrapedReview{
		ID:      fmt.Sprintf("json-ld-%d-%d", index, fetchedAt),
		Author:  jsonLDAuthor(raw["author"]),
		Content: content,
		Rating:  jsonLDRating(raw["reviewRating"]),
		Date:    date,
		Title:   title,
		Source:  source,
	}, true
}

// jsonLDAuthor handles both the object form ({"name": ...}) and the raw
// string form of the author field.
func jsonLDAuthor(value interface{}) string {
	switch v := value.(type) {
	case map[string]interface{}:
		if name, ok := v["name"].(string); ok && name != "" {
			return name
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "Anonymous"
}

// jsonLDRating parses reviewRating.ratingValue, which sites emit as either a
// number or a string. Defaults to 5 when absent or unparseable.
func jsonLDRating(value interface{}) int {
	rating, ok := value.(map[string]interface{})
	if !ok {
		return 5
	}

	switch v := rating["ratingValue"].(type) {
	case float64:
		if r := int(v); r >= 1 && r <= 5 {
			return r
		}
	case string:
		if r, err := strconv.Atoi(v); err == nil && r >= 1 && r <= 5 {
			return r
		}
	}
	return 5
}

func stringField(raw map[string]interface{}, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}
