// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// LMS registry — single source of truth for supported sources
// --------------------------------------------------------------------------

type LMSConfig struct {
	ID   string
	Name string
}

var LMSRegistry = map[string]LMSConfig{
	"edx":              {ID: "edx", Name: "edX"},
	"canvas":           {ID: "canvas", Name: "Canvas"},
	"moodle":           {ID: "moodle", Name: "Moodle"},
	"google-classroom": {ID: "google-classroom", Name: "Google Classroom"},
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	CoursesTable     = "courses"
	InstructorsTable = "instructors"
	LearnersTable    = "learners"
	AssignmentsTable = "assignments"
	PayloadsTable    = "normalized_payloads"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database (optional — normalization runs without persistence)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// LMS connector endpoints and credentials
	EdxBaseURL    string
	EdxToken      string
	CanvasBaseURL string
	CanvasToken   string
	MoodleBaseURL string
	MoodleToken   string
	GClassBaseURL string
	GClassToken   string

	// Connector rate limit (requests per minute, per connector)
	ConnectorRequestsPerMinute int

	// Cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Eligibility
	EligibilityThreshold float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		EdxBaseURL:    envOr("EDX_BASE_URL", "https://courses.edx.org"),
		EdxToken:      envOr("EDX_ACCESS_TOKEN", ""),
		CanvasBaseURL: envOr("CANVAS_BASE_URL", ""),
		CanvasToken:   envOr("CANVAS_ACCESS_TOKEN", ""),
		MoodleBaseURL: envOr("MOODLE_BASE_URL", ""),
		MoodleToken:   envOr("MOODLE_WS_TOKEN", ""),
		GClassBaseURL: envOr("GCLASS_BASE_URL", "https://classroom.googleapis.com"),
		GClassToken:   envOr("GCLASS_ACCESS_TOKEN", ""),

		ConnectorRequestsPerMinute: envInt("CONNECTOR_REQUESTS_PER_MINUTE", 120),

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		EligibilityThreshold: envFloat("ELIGIBILITY_THRESHOLD", 70),
	}

	if cfg.EligibilityThreshold < 0 || cfg.EligibilityThreshold > 100 {
		return nil, fmt.Errorf("ELIGIBILITY_THRESHOLD must be between 0 and 100, got %g", cfg.EligibilityThreshold)
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether persistence is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
