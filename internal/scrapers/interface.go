package scrapers

import (
	"context"
	"errors"

	"github.com/proveen/testimonial-bot/internal/models"
)

// Scraper is the contract every review platform scraper implements.
type Scraper interface {
	Platform() models.ReviewPlatform
	// Scrape fetches and normalizes all reviews reachable from the given URL
	// (or platform-specific identifier). It returns an error only on total
	// failure; an empty result with nil error means the page parsed but held
	// no extractable reviews.
	Scrape(ctx context.Context, url string) ([]models.ScrapedReview, error)
}

var (
	// ErrInvalidSourceURL means the input URL does not belong to the expected
	// platform. Surfaced to the user as "check the URL"; never retried.
	ErrInvalidSourceURL = errors.New("invalid source URL")

	// ErrPlaceIDNotFound means no Google place ID could be extracted from the
	// input URL.
	ErrPlaceIDNotFound = errors.New("could not extract place ID from URL")
)
