// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the full service configuration.
type Server struct {
	Addr          string
	LogLevel      string
	PostgresURL   string
	RedisURL      string
	JWTSigningKey string

	// RIP engine parameters.
	RIPPValue      float64 // p-value bound; initial budget = -log10(p)
	HistoryTTL     time.Duration
	LedgerRetries  uint64
	RetryBaseDelay time.Duration

	// Beacon response parameters.
	BeaconID       string
	APIVersion     string
	MaxGranularity string

	// Datasets that are openly accessible and bypass the RIP gate.
	OpenDatasets []string

	// Population sizing: fallback count when no store can answer, and the
	// cache lifetime for counts that come from a store.
	PopulationSize     int
	PopulationCacheTTL time.Duration

	// Optional JSON seed file for the in-memory variant source.
	VariantsFile string
}

// InitialBudget derives the per-(user, individual, dataset) privacy budget
// from the configured p-value. Budget and disclosure cost share the same log
// base so they stay comparable.
func (s Server) InitialBudget() float64 {
	return -math.Log10(s.RIPPValue)
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("BEACON_ADDR", ":8080"),
		LogLevel:      envOr("BEACON_LOG_LEVEL", "info"),
		PostgresURL:   os.Getenv("BEACON_POSTGRES_URL"),
		RedisURL:      os.Getenv("BEACON_REDIS_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		RIPPValue:      envFloatOr("RIP_P_VALUE", 0.1),
		HistoryTTL:     envDurationOr("RIP_HISTORY_TTL", 0),
		LedgerRetries:  envUintOr("RIP_LEDGER_RETRIES", 3),
		RetryBaseDelay: envDurationOr("RIP_RETRY_BASE_DELAY", 50*time.Millisecond),

		BeaconID:       envOr("BEACON_ID", "org.example.beacon"),
		APIVersion:     envOr("BEACON_API_VERSION", "v2.0.0"),
		MaxGranularity: envOr("BEACON_MAX_GRANULARITY", "record"),

		OpenDatasets: envList("BEACON_OPEN_DATASETS"),

		PopulationSize:     envIntOr("BEACON_POPULATION_SIZE", 1000),
		PopulationCacheTTL: envDurationOr("BEACON_POPULATION_CACHE_TTL", 5*time.Minute),

		VariantsFile: os.Getenv("BEACON_VARIANTS_FILE"),
	}
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f >= 1 {
		return fallback
	}
	return f
}

func envUintOr(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
