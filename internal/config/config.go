package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/nfrund/streamhub/internal/pubsub"
)

// Config holds all configuration for the application.
type Config struct {
	LogFormat string
	LogLevel  string
	// Mirror forwards published values to the in-process pub/sub bridge.
	Mirror bool
	// Replay selects replay-latest streams; false selects hot streams.
	Replay  bool
	Tracing pubsub.TracingConfig
}

// New loads configuration from an optional .env file and the environment.
func New(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	return &Config{
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Mirror:    getBool("STREAMHUB_MIRROR", false),
		Replay:    getBool("STREAMHUB_REPLAY", true),
		Tracing:   pubsub.LoadTracingConfigFromEnv(),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring invalid boolean environment variable", "key", key, "value", v)
		return fallback
	}
	return b
}
