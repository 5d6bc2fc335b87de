package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// Per-lot settings live in the TOML lots file, see lots.go.
type Config struct {
	// UpstreamBaseURL is the single base address of the occupancy service.
	// Resolved once here; never read ad hoc per call.
	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// Geolocation collaborator. An empty URL disables acquisition: sessions
	// resolve immediately with an "unsupported" location error.
	GeolocationURL     string
	GeolocationTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	LotsFile string

	// Snapshot feed configuration.
	FeedEnabled    bool
	KafkaBrokers   []string
	KafkaFeedTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	upstreamTimeout, err := parseDurationEnv("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geoTimeout, err := parseDurationEnv("GEOLOCATION_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	feedEnabled := os.Getenv("FEED_ENABLED") == "true"

	cfg := &Config{
		UpstreamBaseURL:    envOrDefault("UPSTREAM_BASE_URL", "http://localhost:5001/api"),
		UpstreamTimeout:    upstreamTimeout,
		GeolocationURL:     os.Getenv("GEOLOCATION_URL"),
		GeolocationTimeout: geoTimeout,
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		LotsFile:           envOrDefault("LOTS_FILE", "lots.toml"),
		FeedEnabled:        feedEnabled,
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic:     envOrDefault("KAFKA_FEED_TOPIC", "lot-occupancy-snapshots"),
	}

	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}
	if cfg.LotsFile == "" {
		return nil, errors.New("LOTS_FILE is required")
	}
	if cfg.FeedEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("FEED_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
