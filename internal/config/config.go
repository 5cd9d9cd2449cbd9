package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config carries all runtime settings for the service. Values come from the
// environment (a .env file is loaded first when present) with working defaults
// for local development.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string

	// Batch data provider (CMIE Prowess)
	ProwessAPIKey    string
	SendBatchURL     string
	GetBatchURL      string
	StagingDir       string
	BatchDir         string
	PollInterval     time.Duration
	PollTimeout      time.Duration

	// Identifier lookup service (Alfago)
	AlfagoBaseURL     string
	ResolveDelay      time.Duration
	ResolveTimeout    time.Duration

	// Retention sweeper
	RetentionDays int
	SweepInterval time.Duration
}

// Load reads configuration from the environment. A missing .env file is not an
// error; explicit environment variables always win.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "corporate_actions.db"),
		JWTSecret:    getEnv("JWT_SECRET", "actions-secret-key"),

		ProwessAPIKey: getEnv("PROWESS_API_KEY", ""),
		SendBatchURL:  getEnv("SENDBATCH_URL", "https://prowess.cmie.com/api/sendbatch"),
		GetBatchURL:   getEnv("GETBATCH_URL", "https://prowess.cmie.com/api/getbatch"),
		StagingDir:    getEnv("STAGING_DIR", "./tmp"),
		BatchDir:      getEnv("BATCH_DIR", "./batches"),
		PollInterval:  getDuration("BATCH_POLL_INTERVAL", 3*time.Second),
		PollTimeout:   getDuration("BATCH_POLL_TIMEOUT", 5*time.Minute),

		AlfagoBaseURL:  getEnv("ALFAGO_BASE_URL", "https://alfago.in"),
		ResolveDelay:   getDuration("RESOLVE_DELAY", 50*time.Millisecond),
		ResolveTimeout: getDuration("RESOLVE_TIMEOUT", 10*time.Second),

		RetentionDays: getInt("RETENTION_DAYS", 10),
		SweepInterval: getDuration("SWEEP_INTERVAL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment, using default")
		return fallback
	}
	return d
}
