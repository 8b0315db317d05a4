package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/models"
	"github.com/proveen/testimonial-bot/internal/notifications"
	"github.com/proveen/testimonial-bot/internal/scrapers"
	"github.com/proveen/testimonial-bot/internal/store"
)

const (
	sourcesTable      = "review_sources"
	testimonialsTable = "testimonials"
)

// ErrDuplicateSource means a source of the same platform already exists for
// the brand. At most one source per platform per brand is allowed.
var ErrDuplicateSource = errors.New("a source of this type already exists for the brand")

// ErrUnsupportedPlatform means no scraper is registered for the requested
// platform.
var ErrUnsupportedPlatform = errors.New("unsupported review platform")

// Service manages review sources: creation, scraping, periodic refresh, and
// conversion of scraped reviews into persisted testimonials.
type Service struct {
	store    store.RowStore
	notifier notifications.NotificationInterface
	scrapers map[models.ReviewPlatform]scrapers.Scraper

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds scraping metrics.
type Metrics struct {
	TotalReviews    int            `json:"total_reviews"`
	LastRefresh     time.Time      `json:"last_refresh"`
	LastRefreshTime string         `json:"last_refresh_duration"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	ErrorCount      int            `json:"error_count"`
}

// NewService creates a reviews service over the given scrapers.
func NewService(rowStore store.RowStore, notifier notifications.NotificationInterface, scraperList ...scrapers.Scraper) *Service {
	byPlatform := make(map[models.ReviewPlatform]scrapers.Scraper, len(scraperList))
	for _, s := range scraperList {
		byPlatform[s.Platform()] = s
	}

	return &Service{
		store:    rowStore,
		notifier: notifier,
		scrapers: byPlatform,
		metrics: &Metrics{
			SourceMetrics: make(map[string]int),
		},
	}
}

// Scrape runs the scraper for one platform against a URL without touching
// persistence. Used for the preview step before a source is confirmed.
func (s *Service) Scrape(ctx context.Context, platform models.ReviewPlatform, url string) ([]models.ScrapedReview, error) {
	scraper, ok := s.scrapers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return scraper.Scrape(ctx, url)
}

// AddSource scrapes the URL and persists a new review source on success.
// The one-source-per-platform-per-brand invariant is enforced here, before
// creation.
func (s *Service) AddSource(ctx context.Context, platform models.ReviewPlatform, url, brandID string, autoRefresh bool) (*models.ReviewSource, error) {
	var existing []models.ReviewSource
	filters := map[string]string{"type": string(platform)}
	if brandID != "" {
		filters["brand_id"] = brandID
	}
	if err := s.store.Select(ctx, sourcesTable, filters, &existing); err != nil {
		return nil, fmt.Errorf("failed to check existing sources: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateSource
	}

	reviews, err := s.Scrape(ctx, platform, url)
	if err != nil {
		return nil, err
	}

	source := &models.ReviewSource{
		ID:          uuid.NewString(),
		Type:        platform,
		URL:         url,
		LastUpdated: time.Now().UnixMilli(),
		Reviews:     reviews,
		AutoRefresh: autoRefresh,
		BrandID:     brandID,
	}

	if err := s.store.Insert(ctx, sourcesTable, source); err != nil {
		return nil, fmt.Errorf("failed to persist review source: %w", err)
	}

	logrus.Infof("Added %s review source with %d reviews", platform, len(reviews))
	return source, nil
}

// RefreshSource re-scrapes one source and persists the fresh review list.
// Failures are reported to the operator channel and returned.
func (s *Service) RefreshSource(ctx context.Context, source *models.ReviewSource) error {
	reviews, err := s.Scrape(ctx, source.Type, source.URL)
	if err != nil {
		if s.notifier != nil {
			s.notifier.NotifyRefreshFailure(*source, err)
		}
		return fmt.Errorf("failed to refresh source %s: %w", source.ID, err)
	}

	source.Reviews = reviews
	source.LastUpdated = time.Now().UnixMilli()

	if err := s.store.Update(ctx, sourcesTable, source.ID, source); err != nil {
		return fmt.Errorf("failed to persist refreshed source %s: %w", source.ID, err)
	}

	logrus.Infof("Refreshed %s source %s: %d reviews", source.Type, source.ID, len(reviews))
	return nil
}

// RefreshAll re-scrapes every auto-refresh source. Sources are processed
// strictly in sequence to avoid hammering the public proxies concurrently.
func (s *Service) RefreshAll(ctx context.Context) error {
	start := time.Now()

	var sources []models.ReviewSource
	if err := s.store.Select(ctx, sourcesTable, nil, &sources); err != nil {
		return fmt.Errorf("failed to load review sources: %w", err)
	}

	totalReviews := 0
	errorCount := 0
	perSource := make(map[string]int)

	for i := range sources {
		source := &sources[i]
		if !source.AutoRefresh {
			continue
		}

		if err := s.RefreshSource(ctx, source); err != nil {
			logrus.Errorf("Refresh failed for %s source %s: %v", source.Type, source.ID, err)
			errorCount++
			continue
		}

		totalReviews += len(source.Reviews)
		perSource[string(source.Type)] += len(source.Reviews)
	}

	s.updateMetrics(totalReviews, perSource, time.Since(start), errorCount)
	logrus.Infof("Refresh run completed in %v (%d reviews, %d errors)", time.Since(start), totalReviews, errorCount)
	return nil
}

// RefreshSourceByID loads one source and refreshes it.
func (s *Service) RefreshSourceByID(ctx context.Context, sourceID string) (*models.ReviewSource, error) {
	var rows []models.ReviewSource
	if err := s.store.Select(ctx, sourcesTable, map[string]string{"id": sourceID}, &rows); err != nil {
		return nil, fmt.Errorf("failed to load source %s: %w", sourceID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("review source %s not found", sourceID)
	}

	source := &rows[0]
	if err := s.RefreshSource(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

// ListSources returns every configured review source, optionally filtered by
// brand.
func (s *Service) ListSources(ctx context.Context, brandID string) ([]models.ReviewSource, error) {
	filters := map[string]string{}
	if brandID != "" {
		filters["brand_id"] = brandID
	}

	var sources []models.ReviewSource
	if err := s.store.Select(ctx, sourcesTable, filters, &sources); err != nil {
		return nil, fmt.Errorf("failed to load review sources: %w", err)
	}
	return sources, nil
}

// ToggleAutoRefresh flips the auto-refresh flag for one source.
func (s *Service) ToggleAutoRefresh(ctx context.Context, sourceID string) (bool, error) {
	var rows []models.ReviewSource
	if err := s.store.Select(ctx, sourcesTable, map[string]string{"id": sourceID}, &rows); err != nil {
		return false, fmt.Errorf("failed to load source %s: %w", sourceID, err)
	}
	if len(rows) == 0 {
		return false, fmt.Errorf("review source %s not found", sourceID)
	}

	source := rows[0]
	source.AutoRefresh = !source.AutoRefresh

	if err := s.store.Update(ctx, sourcesTable, source.ID, source); err != nil {
		return false, fmt.Errorf("failed to update source %s: %w", sourceID, err)
	}

	return source.AutoRefresh, nil
}

// DeleteSource removes a source. Its scraped reviews live on the source row,
// so deleting the row removes them with it.
func (s *Service) DeleteSource(ctx context.Context, sourceID string) error {
	if err := s.store.Delete(ctx, sourcesTable, sourceID); err != nil {
		return fmt.Errorf("failed to delete source %s: %w", sourceID, err)
	}
	return nil
}

// SaveTestimonial converts a scraped review into a testimonial and persists
// it.
func (s *Service) SaveTestimonial(ctx context.Context, review models.ScrapedReview, brandID string) (models.Testimonial, error) {
	testimonial := models.ConvertToTestimonial(review)
	testimonial.BrandID = brandID

	if err := s.store.Insert(ctx, testimonialsTable, testimonial); err != nil {
		return models.Testimonial{}, fmt.Errorf("failed to persist testimonial: %w", err)
	}

	return testimonial, nil
}

func (s *Service) updateMetrics(totalReviews int, perSource map[string]int, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalReviews = totalReviews
	s.metrics.LastRefresh = time.Now()
	s.metrics.LastRefreshTime = duration.String()
	s.metrics.SourceMetrics = perSource
	s.metrics.ErrorCount = errorCount
}

// GetMetrics returns current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
