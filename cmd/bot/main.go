package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/config"
	"github.com/proveen/testimonial-bot/internal/creative"
	"github.com/proveen/testimonial-bot/internal/models"
	"github.com/proveen/testimonial-bot/internal/notifications"
	"github.com/proveen/testimonial-bot/internal/places"
	"github.com/proveen/testimonial-bot/internal/proxy"
	"github.com/proveen/testimonial-bot/internal/reviews"
	"github.com/proveen/testimonial-bot/internal/scheduler"
	"github.com/proveen/testimonial-bot/internal/scrapers"
	"github.com/proveen/testimonial-bot/internal/storage"
	"github.com/proveen/testimonial-bot/internal/store"
)

const creativesTable = "creatives"

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting testimonial bot")

	rowStore := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceToken)
	notificationService := notifications.NewService(cfg)

	// Review acquisition pipeline
	fetcher := proxy.NewFetcher()
	placesLoader := places.NewLoader(cfg.GoogleMapsAPIKey)
	reviewsService := reviews.NewService(rowStore, notificationService,
		scrapers.NewTrustpilotScraper(fetcher),
		scrapers.NewGoogleScraper(placesLoader, fetcher),
	)

	// Creative generation pipeline
	creativeService := creative.NewService(cfg.WiroAPIKey, cfg.WiroAPISecret,
		creative.WithFallbackNotifier(notificationService))

	// Blob storage for mirroring generated images is optional; without it the
	// vendor CDN URL is persisted as-is.
	var imageStorage storage.BlobStorage
	if cfg.StorageAccount != "" {
		imageStorage, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
	}

	schedulerService := scheduler.NewService(cfg, reviewsService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(reviewsService)).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scrape", scrapeHandler(reviewsService)).Methods("POST")
	api.HandleFunc("/sources", listSourcesHandler(reviewsService)).Methods("GET")
	api.HandleFunc("/sources", addSourceHandler(reviewsService)).Methods("POST")
	api.HandleFunc("/sources/{id}/refresh", refreshSourceHandler(reviewsService)).Methods("POST")
	api.HandleFunc("/sources/{id}/toggle", toggleSourceHandler(reviewsService)).Methods("POST")
	api.HandleFunc("/sources/{id}", deleteSourceHandler(reviewsService)).Methods("DELETE")
	api.HandleFunc("/testimonials", saveTestimonialHandler(reviewsService)).Methods("POST")
	api.HandleFunc("/creatives", generateCreativeHandler(creativeService, rowStore, imageStorage)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generation polls for up to a minute
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(reviewsService.GetMetrics()))
	}
}

type scrapeRequest struct {
	Platform models.ReviewPlatform `json:"platform"`
	URL      string                `json:"url"`
}

func scrapeHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := reviewsService.Scrape(r.Context(), req.Platform, req.URL)
		if err != nil {
			writeScrapeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": result})
	}
}

type addSourceRequest struct {
	Platform    models.ReviewPlatform `json:"platform"`
	URL         string                `json:"url"`
	BrandID     string                `json:"brand_id,omitempty"`
	AutoRefresh bool                  `json:"auto_refresh"`
}

func addSourceHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		source, err := reviewsService.AddSource(r.Context(), req.Platform, req.URL, req.BrandID, req.AutoRefresh)
		if err != nil {
			if errors.Is(err, reviews.ErrDuplicateSource) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeScrapeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, source)
	}
}

func listSourcesHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := reviewsService.ListSources(r.Context(), r.URL.Query().Get("brand_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
	}
}

func refreshSourceHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, err := reviewsService.RefreshSourceByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeScrapeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, source)
	}
}

func toggleSourceHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := reviewsService.ToggleAutoRefresh(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"auto_refresh": enabled})
	}
}

func deleteSourceHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reviewsService.DeleteSource(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type saveTestimonialRequest struct {
	Review  models.ScrapedReview `json:"review"`
	BrandID string               `json:"brand_id,omitempty"`
}

func saveTestimonialHandler(reviewsService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveTestimonialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Review.Content == "" {
			writeError(w, http.StatusBadRequest, "review content must not be empty")
			return
		}

		testimonial, err := reviewsService.SaveTestimonial(r.Context(), req.Review, req.BrandID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, testimonial)
	}
}

type generateCreativeRequest struct {
	Input       models.WiroAIInput  `json:"input"`
	BrandConfig *models.BrandConfig `json:"brand_config,omitempty"`
	Title       string              `json:"title"`
	Subtitle    string              `json:"subtitle,omitempty"`
}

func generateCreativeHandler(creativeService *creative.Service, rowStore store.RowStore, imageStorage storage.BlobStorage) http.HandlerFunc {
	imageClient := resty.New().SetTimeout(30 * time.Second)

	return func(w http.ResponseWriter, r *http.Request) {
		var req generateCreativeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		output, err := creativeService.GenerateContent(r.Context(), req.Input, req.BrandConfig)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Mirror vendor CDN assets into our own storage when configured so
		// creatives survive vendor-side expiry.
		if imageStorage != nil && !output.Simulated {
			if mirrored, err := mirrorImage(imageClient, imageStorage, output.ImageURL); err != nil {
				logrus.Warnf("Failed to mirror generated image, keeping CDN URL: %v", err)
			} else {
				output.ImageURL = mirrored
			}
		}

		record := models.NewGeneratedCreative(uuid.NewString(), req.Title, req.Subtitle, req.Input, output)
		if err := rowStore.Insert(r.Context(), creativesTable, record); err != nil {
			logrus.Errorf("Failed to persist creative: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to persist creative")
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

func mirrorImage(client *resty.Client, imageStorage storage.BlobStorage, imageURL string) (string, error) {
	resp, err := client.R().Get(imageURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("image fetch returned status %d", resp.StatusCode())
	}

	filename := path.Base(strings.Split(imageURL, "?")[0])
	if filename == "" || filename == "." || filename == "/" {
		filename = "creative.png"
	}
	filename = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filename)

	return imageStorage.UploadImage(filename, resp.Body(), resp.Header().Get("Content-Type"))
}

func writeScrapeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scrapers.ErrInvalidSourceURL), errors.Is(err, scrapers.ErrPlaceIDNotFound),
		errors.Is(err, reviews.ErrUnsupportedPlatform):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, "failed to fetch reviews, check the URL or retry later")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
