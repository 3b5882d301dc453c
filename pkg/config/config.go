// Package config loads environment-driven runtime settings and the YAML
// strategies file (watchlist, strategy presets, risk parameters).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the engine.
type Config struct {
	Port string

	// Persistence
	DBPath string

	// Strategies YAML file (watchlist, presets, risk parameters).
	StrategiesPath string

	// Market data
	DataBaseURL string
	DataAPIKey  string
	UseMockData bool

	// Watchlist override; the strategies YAML wins when it lists symbols.
	Watchlist []string

	// Simulation / live loop
	InitialCash            float64
	CycleInterval          time.Duration
	ErrorBackoff           time.Duration
	LookbackDays           int
	PortfolioRefreshCycles int

	// HTTP
	RateLimitRPS float64

	// Logging
	Debug bool
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		DBPath:                 getEnv("DB_PATH", "./data/quantcore.db"),
		StrategiesPath:         getEnv("STRATEGIES_PATH", "./strategies.yaml"),
		DataBaseURL:            getEnv("DATA_BASE_URL", "http://localhost:9000"),
		DataAPIKey:             os.Getenv("DATA_API_KEY"),
		UseMockData:            getEnv("USE_MOCK_DATA", "true") == "true",
		Watchlist:              splitAndTrim(getEnv("WATCHLIST", "AAPL,MSFT,GOOGL")),
		InitialCash:            getEnvFloat("INITIAL_CASH", 10000.0),
		CycleInterval:          getEnvDuration("CYCLE_INTERVAL", 60*time.Second),
		ErrorBackoff:           getEnvDuration("ERROR_BACKOFF", 300*time.Second),
		LookbackDays:           getEnvInt("LOOKBACK_DAYS", 100),
		PortfolioRefreshCycles: getEnvInt("PORTFOLIO_REFRESH_CYCLES", 5),
		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 10),
		Debug:                  getEnv("DEBUG", "false") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
