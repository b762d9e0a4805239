package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the server and fitter settings.
type Config struct {
	Port              string
	DataDir           string
	DBPath            string // empty disables the SQLite fitted catalog
	ProjectionMonths  int
	ProjectionCeiling float64
	NotifyURL         string // shoutrrr URL for stale-fit alerts
	RateLimit         int    // requests per minute per client
}

// Load returns the configuration from environment variables. A .env file in
// the working directory is read first; variables already set win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v", err)
	}
	return Config{
		Port:              getEnv("PORT", "9080"),
		DataDir:           getEnv("DATA_DIR", "data"),
		DBPath:            getEnv("DB_PATH", ""),
		ProjectionMonths:  getEnvInt("PROJECTION_MONTHS", 12),
		ProjectionCeiling: getEnvFloat("PROJECTION_CEILING", 100),
		NotifyURL:         getEnv("NOTIFY_URL", ""),
		RateLimit:         getEnvInt("RATE_LIMIT", 120),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		log.Printf("Warning: invalid %s=%q, using %g", key, value, fallback)
		return fallback
	}
	return f
}
