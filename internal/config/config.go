// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	VercelToken         string
	GitHubToken         string
	CronSecret          string
	VercelWebhookSecret string
	CIIngestToken       string

	VercelTeamSlug   string
	ProductionBranch string
	SyncInterval     time.Duration
	ListenAddr       string
	DBPath           string
	Environment      string
}

// IsProduction reports whether the service runs in production mode. In
// production the cron_secret query-parameter fallback on the sync trigger
// endpoints is disabled; only the Authorization header is accepted.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from a .env file (if present) and the environment,
// and returns a validated Config. The five secrets (PANOPTICRON_VERCEL_TOKEN,
// PANOPTICRON_GITHUB_TOKEN, PANOPTICRON_CRON_SECRET,
// PANOPTICRON_VERCEL_WEBHOOK_SECRET, PANOPTICRON_CI_INGEST_TOKEN) are
// required; their absence is a fatal configuration error. Optional variables
// with defaults: PANOPTICRON_VERCEL_TEAM_SLUG (empty, personal account),
// PANOPTICRON_PRODUCTION_BRANCH (main),
// PANOPTICRON_SYNC_INTERVAL (10m), PANOPTICRON_LISTEN_ADDR (127.0.0.1:8080),
// PANOPTICRON_DB_PATH (panopticron.db), PANOPTICRON_ENV (development).
func Load() (*Config, error) {
	// Best-effort: a missing .env simply means the environment is already set.
	_ = godotenv.Load()

	cfg := &Config{
		VercelToken:         os.Getenv("PANOPTICRON_VERCEL_TOKEN"),
		GitHubToken:         os.Getenv("PANOPTICRON_GITHUB_TOKEN"),
		CronSecret:          os.Getenv("PANOPTICRON_CRON_SECRET"),
		VercelWebhookSecret: os.Getenv("PANOPTICRON_VERCEL_WEBHOOK_SECRET"),
		CIIngestToken:       os.Getenv("PANOPTICRON_CI_INGEST_TOKEN"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"PANOPTICRON_VERCEL_TOKEN", cfg.VercelToken},
		{"PANOPTICRON_GITHUB_TOKEN", cfg.GitHubToken},
		{"PANOPTICRON_CRON_SECRET", cfg.CronSecret},
		{"PANOPTICRON_VERCEL_WEBHOOK_SECRET", cfg.VercelWebhookSecret},
		{"PANOPTICRON_CI_INGEST_TOKEN", cfg.CIIngestToken},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	cfg.VercelTeamSlug = os.Getenv("PANOPTICRON_VERCEL_TEAM_SLUG")

	cfg.ProductionBranch = "main"
	if v, ok := os.LookupEnv("PANOPTICRON_PRODUCTION_BRANCH"); ok && v != "" {
		cfg.ProductionBranch = v
	}

	cfg.SyncInterval = 10 * time.Minute
	if v, ok := os.LookupEnv("PANOPTICRON_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PANOPTICRON_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		cfg.SyncInterval = parsed
	}

	cfg.ListenAddr = "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PANOPTICRON_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	cfg.DBPath = "panopticron.db"
	if v, ok := os.LookupEnv("PANOPTICRON_DB_PATH"); ok {
		cfg.DBPath = v
	}

	cfg.Environment = "development"
	if v, ok := os.LookupEnv("PANOPTICRON_ENV"); ok && v != "" {
		cfg.Environment = v
	}

	return cfg, nil
}
