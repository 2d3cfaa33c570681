// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// database
	DatabasePath string

	// nats (optional, empty disables external publishing)
	NatsURL string

	// telegram
	TGApiID      int
	TGApiHash    string
	TGSessionStr string

	// fetch tuning
	FetchDelaySeconds float64
	FetchPageSize     int
	MaxGroups         int
	FetchOptionsFile  string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "./data/groupwatch.db"),
		NatsURL:           getEnv("NATS_URL", ""),
		TGApiHash:         getEnv("TG_API_HASH", ""),
		TGSessionStr:      getEnv("TG_SESSION_STRING", ""),
		TGApiID:           getEnvInt("TG_API_ID", 0),
		FetchDelaySeconds: getEnvFloat("FETCH_DELAY_SECONDS", 1.0),
		FetchPageSize:     getEnvInt("FETCH_PAGE_SIZE", 100),
		MaxGroups:         getEnvInt("MAX_GROUPS", 10),
		FetchOptionsFile:  getEnv("FETCH_OPTIONS_FILE", ""),
		HTTPPort:          getEnvInt("HTTP_PORT", 3200),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", "./logs/app.log"),
	}

	// optional yaml overrides for fetch tuning
	if cfg.FetchOptionsFile != "" {
		opts, err := LoadFetchOptions(cfg.FetchOptionsFile)
		if err != nil {
			return nil, err
		}
		opts.applyTo(cfg)
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
