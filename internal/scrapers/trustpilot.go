package scrapers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/models"
	"github.com/proveen/testimonial-bot/internal/proxy"
)

// TrustpilotScraper extracts reviews from a Trustpilot company page fetched
// through the proxy chain. JSON-LD structured data is tried first because it
// is higher fidelity when present and avoids fragile selector coupling; the
// heuristic HTML parser only runs when JSON-LD yields nothing.
type TrustpilotScraper struct {
	fetcher *proxy.Fetcher
}

var _ Scraper = (*TrustpilotScraper)(nil)

// NewTrustpilotScraper creates a Trustpilot scraper over the given fetcher.
func NewTrustpilotScraper(fetcher *proxy.Fetcher) *TrustpilotScraper {
	return &TrustpilotScraper{fetcher: fetcher}
}

func (t *TrustpilotScraper) Platform() models.ReviewPlatform {
	return models.PlatformTrustpilot
}

// Scrape fetches the page and runs the parser fallback chain. Fetch and parse
// errors propagate to the caller; a page that parses but holds no reviews
// returns an empty list.
func (t *TrustpilotScraper) Scrape(ctx context.Context, pageURL string) ([]models.ScrapedReview, error) {
	if !strings.Contains(pageURL, "trustpilot.com") {
		return nil, fmt.Errorf("%w: expected a trustpilot.com URL", ErrInvalidSourceURL)
	}

	logrus.Infof("Fetching %s via proxy chain", pageURL)
	html, err := t.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trustpilot page: %w", err)
	}
	logrus.Debugf("Fetched %d bytes of HTML", len(html))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Trustpilot HTML: %w", err)
	}

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	if len(reviews) > 0 {
		logrus.Infof("Found %d reviews via JSON-LD", len(reviews))
		return dedupeReviews(reviews), nil
	}

	logrus.Info("No JSON-LD reviews found, falling back to HTML scraping")
	return dedupeReviews(t.parseReviewCards(doc)), nil
}

var firstDigitPattern = regexp.MustCompile(`(\d)`)

// parseReviewCards runs the heuristic structural parser. Candidate containers
// come from a primary selector with a secondary fallback; a candidate without
// a star-rating indicator is not a review card and is skipped silently.
func (t *TrustpilotScraper) parseReviewCards(doc *goquery.Document) []models.ScrapedReview {
	cards := doc.Find("article")
	if cards.Length() == 0 {
		// Older page semantics.
		cards = doc.Find(`[class*="card"]`)
	}

	var reviews []models.ScrapedReview
	now := time.Now().UTC()

	cards.Each(func(index int, card *goquery.Selection) {
		starImg := card.Find(`img[alt*="stars"], img[src*="stars"]`).First()
		ratingDiv := card.Find(`[class*="star-rating"], [class*="starRating"]`).First()
		if starImg.Length() == 0 && ratingDiv.Length() == 0 {
			return
		}

		id, ok := card.Attr("data-service-review-card-id")
		if !ok || id == "" {
			id = fmt.Sprintf("scraped-%d-%d", index, now.UnixMilli())
		}

		author := firstText(card, "[data-consumer-name-typography]", `[class*="consumer-name"]`, ".consumer-information__name")
		if author == "" {
			author = "Anonymous"
		}

		rating := 5
		if alt, ok := starImg.Attr("alt"); ok {
			if match := firstDigitPattern.FindString(alt); match != "" {
				if r, err := strconv.Atoi(match); err == nil {
					rating = r
				}
			}
		}

		title := firstText(card, "h2", "[data-service-review-title-typography]", `[class*="review-content__title"]`)
		contentText := firstText(card, "[data-service-review-text-typography]", `[class*="review-content__text"]`)

		// A card with neither title nor content is not a valid review.
		if title == "" && contentText == "" {
			return
		}

		content := contentText
		if title != "" {
			content = title + "\n\n" + contentText
		}

		date := now.Format(time.RFC3339)
		if datetime, ok := card.Find("time").First().Attr("datetime"); ok && datetime != "" {
			date = datetime
		}

		avatar, _ := card.Find("aside img, .consumer-information__picture img").First().Attr("src")

		reviews = append(reviews, models.ScrapedReview{
			ID:      id,
			Author:  author,
			Content: content,
			Rating:  rating,
			Date:    date,
			Avatar:  avatar,
			Title:   title,
			Source:  models.SourceTrustpilot,
		})
	})

	return reviews
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element, in priority order.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(sel.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// dedupeReviews drops duplicate reviews produced across parser strategies.
// Generated IDs are unique per block, so identity is author plus content.
func dedupeReviews(reviews []models.ScrapedReview) []models.ScrapedReview {
	seen := make(map[string]bool)
	var unique []models.ScrapedReview

	for _, review := range reviews {
		key := review.Author + "\x00" + review.Content
		if !seen[key] {
			seen[key] = true
			unique = append(unique, review)
		}
	}

	return unique
}
