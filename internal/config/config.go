// Package config loads the engine configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the engine. All values have working
// defaults; the environment only needs to override what differs.
type Config struct {
	ListenAddr string

	BinanceBaseURL   string
	CoinGeckoBaseURL string

	// Per-upstream minimum interval between outbound calls
	BinanceMinInterval   time.Duration
	CoinGeckoMinInterval time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	CurrentPriceTTL     time.Duration
	HistoricalSeriesTTL time.Duration
	SymbolDirectoryTTL  time.Duration
	CacheSweepInterval  time.Duration

	MaxConcurrentResolves int
	RequestTimeout        time.Duration
}

// Load reads the configuration. A missing .env file is not an error.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	return Config{
		ListenAddr: envString("LISTEN_ADDR", ":8090"),

		BinanceBaseURL:   envString("BINANCE_BASE_URL", "https://api.binance.com"),
		CoinGeckoBaseURL: envString("COINGECKO_BASE_URL", "https://api.coingecko.com"),

		BinanceMinInterval:   envDuration("BINANCE_MIN_INTERVAL", 250*time.Millisecond),
		CoinGeckoMinInterval: envDuration("COINGECKO_MIN_INTERVAL", 2*time.Second),

		RetryMaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   envDuration("RETRY_BASE_DELAY", 2*time.Second),

		CurrentPriceTTL:     envDuration("CURRENT_PRICE_TTL", 2*time.Minute),
		HistoricalSeriesTTL: envDuration("HISTORICAL_SERIES_TTL", 45*time.Minute),
		SymbolDirectoryTTL:  envDuration("SYMBOL_DIRECTORY_TTL", 24*time.Hour),
		CacheSweepInterval:  envDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),

		MaxConcurrentResolves: envInt("MAX_CONCURRENT_RESOLVES", 8),
		RequestTimeout:        envDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}

	return value
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}

	return value
}
