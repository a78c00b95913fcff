// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/skillxpress/skillxpress/internal/skills"
)

// Config is loaded once at process start and passed explicitly to the
// components that need it. Values come from defaults, then an optional JSON
// file, then environment variables.
type Config struct {
	Port         int    `json:"port,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Gemini API key
	LogMode      string `json:"log_mode,omitempty"`       // "dev" or "prod"
	CatalogPath  string `json:"catalog_path,omitempty"`   // Optional role catalog override
	RedisURL     string `json:"redis_url,omitempty"`      // Optional language cache
	LogHashSalt  string `json:"log_hash_salt,omitempty"`  // Salt for hashed user ids in logs

	GitHub   GitHubConfig   `json:"github"`
	Storage  StorageConfig  `json:"storage"`
	AMQP     AMQPConfig     `json:"amqp"`
	OCR      OCRConfig      `json:"ocr"`
	Openings OpeningsConfig `json:"openings"`
	Scoring  skills.Weights `json:"scoring"`
	Roadmap  RoadmapConfig  `json:"roadmap"`
	Timeouts TimeoutConfig  `json:"timeouts"`

	RecomputeWindowHours int `json:"recompute_window_hours,omitempty"`
}

// GitHubConfig controls the code-hosting client.
type GitHubConfig struct {
	Token             string  `json:"token,omitempty"`
	BaseURL           string  `json:"base_url,omitempty"`
	Concurrency       int     `json:"concurrency,omitempty"`         // parallel language fetches
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"` // client-side pacing
	CacheTTLMinutes   int     `json:"cache_ttl_minutes,omitempty"`
}

// StorageConfig describes the S3-compatible document store.
type StorageConfig struct {
	Endpoint            string `json:"endpoint,omitempty"`
	Region              string `json:"region,omitempty"`
	AccessKeyID         string `json:"access_key_id,omitempty"`
	SecretAccessKey     string `json:"secret_access_key,omitempty"`
	UploadsBucket       string `json:"uploads_bucket,omitempty"`
	RoadmapsBucket      string `json:"roadmaps_bucket,omitempty"`
	SignedURLTTLSeconds int    `json:"signed_url_ttl_seconds,omitempty"`
}

// AMQPConfig enables event publishing when URL is set.
type AMQPConfig struct {
	URL      string `json:"url,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// OCRConfig enables the image OCR fallback.
type OCRConfig struct {
	Enabled         bool   `json:"enabled,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// OpeningsConfig configures the remote job feed.
type OpeningsConfig struct {
	URL   string `json:"url,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// RoadmapConfig controls generation and content validation.
type RoadmapConfig struct {
	Model            string   `json:"model,omitempty"`
	MaxTokens        int32    `json:"max_tokens,omitempty"`
	Temperature      float32  `json:"temperature,omitempty"`
	MinContentLength int      `json:"min_content_length,omitempty"`
	RequiredMarkers  []string `json:"required_markers,omitempty"`
	FocusSize        int      `json:"focus_size,omitempty"`
}

// TimeoutConfig bounds every external call, in seconds.
type TimeoutConfig struct {
	UpstreamSeconds   int `json:"upstream_seconds,omitempty"`
	ExtractionSeconds int `json:"extraction_seconds,omitempty"`
	GenerationSeconds int `json:"generation_seconds,omitempty"`
	DatabaseSeconds   int `json:"database_seconds,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:    8080,
		LogMode: "dev",
		GitHub: GitHubConfig{
			BaseURL:           "https://api.github.com",
			Concurrency:       4,
			RequestsPerSecond: 10,
			CacheTTLMinutes:   60,
		},
		Storage: StorageConfig{
			Region:              "auto",
			UploadsBucket:       "uploads",
			RoadmapsBucket:      "roadmaps",
			SignedURLTTLSeconds: 300,
		},
		AMQP: AMQPConfig{Exchange: "skillxpress.events"},
		Openings: OpeningsConfig{
			URL:   "https://remotive.com/api/remote-jobs",
			Limit: 250,
		},
		Scoring: skills.DefaultWeights(),
		Roadmap: RoadmapConfig{
			Model:            "gemini-2.5-flash",
			MaxTokens:        1024,
			Temperature:      0.4,
			MinContentLength: 200,
			RequiredMarkers:  []string{"## Goals", "## Weekly Plan", "## Project"},
			FocusSize:        4,
		},
		Timeouts: TimeoutConfig{
			UpstreamSeconds:   15,
			ExtractionSeconds: 30,
			GenerationSeconds: 60,
			DatabaseSeconds:   5,
		},
		RecomputeWindowHours: 7 * 24,
	}
}

// LoadConfig loads configuration from a JSON file on top of Default.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: Default, then the file at path
// (skipped when empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fromFile, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *fromFile
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil {
			*dst = v
		}
	}

	num("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("LOG_MODE", &c.LogMode)
	str("CATALOG_PATH", &c.CatalogPath)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_HASH_SALT", &c.LogHashSalt)

	str("GITHUB_TOKEN", &c.GitHub.Token)
	str("GITHUB_API_URL", &c.GitHub.BaseURL)
	num("GITHUB_CONCURRENCY", &c.GitHub.Concurrency)

	str("S3_ENDPOINT", &c.Storage.Endpoint)
	str("S3_REGION", &c.Storage.Region)
	str("S3_ACCESS_KEY_ID", &c.Storage.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey)
	str("S3_UPLOADS_BUCKET", &c.Storage.UploadsBucket)
	str("S3_ROADMAPS_BUCKET", &c.Storage.RoadmapsBucket)

	str("AMQP_URL", &c.AMQP.URL)
	str("AMQP_EXCHANGE", &c.AMQP.Exchange)

	if v, err := strconv.ParseBool(strings.TrimSpace(getenv("OCR_ENABLED"))); err == nil {
		c.OCR.Enabled = v
	}
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.OCR.CredentialsFile)

	str("OPENINGS_URL", &c.Openings.URL)
	num("RECOMPUTE_WINDOW_HOURS", &c.RecomputeWindowHours)
}

// Validate checks that the configuration has valid values.
// Presence of credentials is checked by the commands that need them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.GitHub.Concurrency < 1 {
		return fmt.Errorf("config error: 'github.concurrency' must be at least 1")
	}
	if c.GitHub.RequestsPerSecond <= 0 {
		return fmt.Errorf("config error: 'github.requests_per_second' must be positive")
	}
	if c.RecomputeWindowHours <= 0 {
		return fmt.Errorf("config error: 'recompute_window_hours' must be positive")
	}
	if c.Timeouts.UpstreamSeconds <= 0 || c.Timeouts.ExtractionSeconds <= 0 ||
		c.Timeouts.GenerationSeconds <= 0 || c.Timeouts.DatabaseSeconds <= 0 {
		return fmt.Errorf("config error: timeouts must be positive")
	}
	if c.Roadmap.MinContentLength < 0 {
		return fmt.Errorf("config error: 'roadmap.min_content_length' must be non-negative")
	}
	if c.Roadmap.FocusSize < 1 {
		return fmt.Errorf("config error: 'roadmap.focus_size' must be at least 1")
	}
	if err := validateWeights(c.Scoring); err != nil {
		return err
	}
	if c.CatalogPath != "" {
		if _, err := os.Stat(c.CatalogPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: catalog file not found: %s", c.CatalogPath)
		}
	}
	return nil
}

func validateWeights(w skills.Weights) error {
	values := map[string]float64{
		"star_weight":        w.StarWeight,
		"popularity_cap":     w.PopularityCap,
		"fork_weight":        w.ForkWeight,
		"fork_cap":           w.ForkCap,
		"substance_cap":      w.SubstanceCap,
		"recent_credit":      w.RecentCredit,
		"active_credit":      w.ActiveCredit,
		"resume_weight":      w.ResumeWeight,
		"certificate_weight": w.CertificateWeight,
		"project_increment":  w.ProjectIncrement,
		"readiness_credit":   w.ReadinessCredit,
		"learning_credit":    w.LearningCredit,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("config error: 'scoring.%s' must be non-negative", name)
		}
	}
	if w.SizeDivisor <= 0 {
		return fmt.Errorf("config error: 'scoring.size_divisor' must be positive")
	}
	if w.DormantCredit <= 0 {
		return fmt.Errorf("config error: 'scoring.dormant_credit' must be positive")
	}
	if w.RecentDays <= 0 || w.ActiveDays < w.RecentDays {
		return fmt.Errorf("config error: recency windows must satisfy 0 < recent_days <= active_days")
	}
	return nil
}

// RecomputeWindow is the minimum spacing between two snapshot computations.
func (c *Config) RecomputeWindow() time.Duration {
	return time.Duration(c.RecomputeWindowHours) * time.Hour
}

// UpstreamTimeout bounds code-hosting, document store and feed calls.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Timeouts.UpstreamSeconds) * time.Second
}

// ExtractionTimeout bounds text extraction of a single document.
func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Timeouts.ExtractionSeconds) * time.Second
}

// GenerationTimeout bounds one text-generation call.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Timeouts.GenerationSeconds) * time.Second
}

// DatabaseTimeout bounds one store statement.
func (c *Config) DatabaseTimeout() time.Duration {
	return time.Duration(c.Timeouts.DatabaseSeconds) * time.Second
}

// SignedURLTTL is the lifetime of issued signed URLs.
func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Storage.SignedURLTTLSeconds) * time.Second
}
