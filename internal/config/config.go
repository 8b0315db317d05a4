package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Wiro AI image generation credentials
	WiroAPIKey    string
	WiroAPISecret string

	// Google Places API (review import)
	GoogleMapsAPIKey string

	// Supabase persistence
	SupabaseURL          string
	SupabaseAnonKey      string
	SupabaseServiceToken string

	// Azure Storage for generated creative images
	StorageAccount   string
	StorageContainer string

	// Review source auto-refresh schedule: "hourly" or "daily"
	RefreshSchedule string

	// Operator notification channels
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		WiroAPIKey:    getEnv("WIRO_API_KEY", ""),
		WiroAPISecret: getEnv("WIRO_API_SECRET", ""),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:      getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceToken: getEnv("SUPABASE_SERVICE_TOKEN", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "creatives"),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "daily"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RefreshSchedule != "hourly" && c.RefreshSchedule != "daily" {
		return fmt.Errorf("REFRESH_SCHEDULE must be 'hourly' or 'daily'")
	}

	if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
