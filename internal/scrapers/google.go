package scrapers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/models"
	"github.com/proveen/testimonial-bot/internal/places"
	"github.com/proveen/testimonial-bot/internal/proxy"
)

// GoogleScraper extracts Google reviews. The primary path resolves a place ID
// from the input and fetches reviews through the Places API. When no Places
// API key is configured it falls back to scraping the Maps page HTML through
// the proxy chain, which is brittle against Google's obfuscated markup but
// needs no credentials.
type GoogleScraper struct {
	loader  *places.Loader
	fetcher *proxy.Fetcher
}

var _ Scraper = (*GoogleScraper)(nil)

// NewGoogleScraper creates a Google scraper.
func NewGoogleScraper(loader *places.Loader, fetcher *proxy.Fetcher) *GoogleScraper {
	return &GoogleScraper{loader: loader, fetcher: fetcher}
}

func (g *GoogleScraper) Platform() models.ReviewPlatform {
	return models.PlatformGoogle
}

func (g *GoogleScraper) Scrape(ctx context.Context, urlOrPlaceID string) ([]models.ScrapedReview, error) {
	if g.loader != nil && g.loader.Enabled() {
		return g.scrapeViaPlacesAPI(ctx, urlOrPlaceID)
	}

	logrus.Warn("Places API key not configured, falling back to HTML scraping")
	return g.scrapeViaHTML(ctx, urlOrPlaceID)
}

var (
	// Maps share links embed the place ID in a !1s...! token.
	embeddedTokenPattern = regexp.MustCompile(`!1s([^!]+)!`)
	placePathPattern     = regexp.MustCompile(`/place/([^/@]+)`)
	barePlaceIDPattern   = regexp.MustCompile(`(ChIJ[a-zA-Z0-9_-]+)`)
)

// ExtractPlaceID resolves a Google place ID from a Maps URL or a raw ID. The
// strategies run in priority order: the embedded !1s...! token, a
// /place/ChIJ... path segment, a bare ChIJ... token anywhere in the string,
// and finally the input itself when it already looks like a place ID.
func ExtractPlaceID(input string) (string, error) {
	if match := embeddedTokenPattern.FindStringSubmatch(input); len(match) > 1 && match[1] != "" {
		return match[1], nil
	}

	if match := placePathPattern.FindStringSubmatch(input); len(match) > 1 && strings.HasPrefix(match[1], "ChIJ") {
		return match[1], nil
	}

	if match := barePlaceIDPattern.FindStringSubmatch(input); len(match) > 1 {
		return match[1], nil
	}

	if strings.HasPrefix(input, "ChIJ") && len(input) > 20 {
		return input, nil
	}

	return "", ErrPlaceIDNotFound
}

func isGoogleURL(input string) bool {
	return strings.Contains(input, "google.com") || strings.Contains(input, "goo.gl") || strings.Contains(input, "maps")
}

func (g *GoogleScraper) scrapeViaPlacesAPI(ctx context.Context, urlOrPlaceID string) ([]models.ScrapedReview, error) {
	placeID := urlOrPlaceID
	if isGoogleURL(urlOrPlaceID) {
		extracted, err := ExtractPlaceID(urlOrPlaceID)
		if err != nil {
			return nil, err
		}
		placeID = extracted
	}

	client, err := g.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load Places client: %w", err)
	}

	logrus.Infof("Fetching reviews for place %s via Places API", placeID)
	place, err := client.FetchReviews(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch place reviews: %w", err)
	}

	reviews := mapPlaceReviews(place.Reviews, placeID)
	if len(reviews) == 0 {
		logrus.Warnf("No reviews found for place %s (%s)", placeID, place.DisplayName.Text)
	}

	return reviews, nil
}

// mapPlaceReviews converts Places API reviews into canonical form. Reviews
// lacking text are dropped.
func mapPlaceReviews(apiReviews []places.Review, placeID string) []models.ScrapedReview {
	var reviews []models.ScrapedReview
	now := time.Now().UTC()

	for index, review := range apiReviews {
		if review.Text.Text == "" {
			continue
		}

		rating := review.Rating
		if rating < 1 || rating > 5 {
			rating = 5
		}

		author := review.AuthorAttribution.DisplayName
		if author == "" {
			author = "Anonymous"
		}

		date := now.Format(time.RFC3339)
		if review.PublishTime != "" {
			if parsed, err := dateparse.ParseAny(review.PublishTime); err == nil {
				date = parsed.UTC().Format(time.RFC3339)
			}
		}

		reviews = append(reviews, models.ScrapedReview{
			ID:      fmt.Sprintf("google-review-%s-%d-%d", placeID, index, now.UnixMilli()),
			Author:  author,
			Content: review.Text.Text,
			Rating:  rating,
			Date:    date,
			Avatar:  review.AuthorAttribution.PhotoURI,
			Source:  models.SourceGoogle,
			URL:     review.AuthorAttribution.URI,
		})
	}

	return reviews
}

var starLabelPattern = regexp.MustCompile(`(\d+)`)

func (g *GoogleScraper) scrapeViaHTML(ctx context.Context, pageURL string) ([]models.ScrapedReview, error) {
	if !strings.Contains(pageURL, "google.com") && !strings.Contains(pageURL, "goo.gl") {
		return nil, fmt.Errorf("%w: expected a google.com or goo.gl URL", ErrInvalidSourceURL)
	}

	logrus.Infof("Fetching %s via proxy chain", pageURL)
	html, err := g.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google reviews page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google reviews HTML: %w", err)
	}

	return dedupeReviews(g.parseReviewBlocks(doc)), nil
}

// parseReviewBlocks scrapes the obfuscated Maps markup. The jftiEf class and
// data-review-id attribute mark review blocks in the current layout; both are
// expected to break when Google changes markup.
func (g *GoogleScraper) parseReviewBlocks(doc *goquery.Document) []models.ScrapedReview {
	var reviews []models.ScrapedReview
	now := time.Now().UTC()

	doc.Find(`.jftiEf, [data-review-id]`).Each(func(index int, block *goquery.Selection) {
		id, ok := block.Attr("data-review-id")
		if !ok || id == "" {
			id = fmt.Sprintf("google-review-%d-%d", index, now.UnixMilli())
		}

		author := strings.TrimSpace(block.Find(".d4r55").First().Text())
		if author == "" {
			author = "Anonymous"
		}

		content := strings.TrimSpace(block.Find(".wiI7pd").First().Text())
		if content == "" {
			return
		}

		rating := 5
		ratingEl := block.Find(`[role="img"][aria-label*="star"]`).First()
		if label, ok := ratingEl.Attr("aria-label"); ok {
			if match := starLabelPattern.FindString(label); match != "" {
				if r, err := strconv.Atoi(match); err == nil {
					rating = r
				}
			}
		}

		// Maps only shows relative dates ("2 months ago"); the fetch time is
		// substituted rather than doing relative-date math.
		avatar, _ := block.Find("img.NBa7we").First().Attr("src")

		reviews = append(reviews, models.ScrapedReview{
			ID:      id,
			Author:  author,
			Content: content,
			Rating:  rating,
			Date:    now.Format(time.RFC3339),
			Avatar:  avatar,
			Source:  models.SourceGoogle,
		})
	})

	return reviews
}
