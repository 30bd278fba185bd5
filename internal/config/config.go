package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// Config holds application-level configuration loaded from environment variables.
type Config struct {
	SubscanAPIKey      string
	SubscanPolkadotURL string
	SubscanKusamaURL   string

	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string

	PricesDir string
	Location  *time.Location

	RequestTimeout    time.Duration
	PageDelay         time.Duration
	PriceRetryMax     int
	PriceRetryBackoff time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PriceCacheTTL time.Duration

	HTTPAddr          string
	JWTSecret         string
	RefreshInterval   time.Duration
	RefreshCurrencies []string

	LogLevel slog.Level
}

// Load reads configuration from the environment.
// SUBSCAN_API_KEY is required; everything else has a sensible default.
func Load() (*Config, error) {
	apiKey := os.Getenv("SUBSCAN_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SUBSCAN_API_KEY environment variable is required")
	}

	cfg := &Config{
		SubscanAPIKey:      apiKey,
		SubscanPolkadotURL: get("SUBSCAN_POLKADOT_URL", domain.Polkadot.SubscanURL),
		SubscanKusamaURL:   get("SUBSCAN_KUSAMA_URL", domain.Kusama.SubscanURL),
		CoinGeckoBaseURL:   get("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:    os.Getenv("COINGECKO_API_KEY"),
		PricesDir:          get("PRICES_DIR", "data/prices"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		HTTPAddr:           get("HTTP_ADDR", ":8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           parseLogLevel(slog.LevelInfo),
	}

	loc, err := time.LoadLocation(get("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", 30 * time.Minute, &cfg.RequestTimeout},
		{"PAGE_DELAY", time.Second, &cfg.PageDelay},
		{"PRICE_RETRY_BACKOFF", time.Second, &cfg.PriceRetryBackoff},
		{"PRICE_CACHE_TTL", 24 * time.Hour, &cfg.PriceCacheTTL},
		{"REFRESH_INTERVAL", 0, &cfg.RefreshInterval},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.PageDelay < time.Second {
		return nil, fmt.Errorf("invalid PAGE_DELAY %s: the cooldown between pages is at least 1s", cfg.PageDelay)
	}

	if cfg.PriceRetryMax, err = getInt("PRICE_RETRY_MAX", 5); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	for _, c := range strings.Split(get("REFRESH_CURRENCIES", "usd"), ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		norm, err := domain.NormalizeCurrency(c)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_CURRENCIES entry %q: %w", c, err)
		}
		cfg.RefreshCurrencies = append(cfg.RefreshCurrencies, norm)
	}

	return cfg, nil
}

func get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative duration", key, raw)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative integer", key, raw)
	}
	return n, nil
}

// parseLogLevel reads LOG_LEVEL. Supported values: "debug", "info", "warn", "error".
func parseLogLevel(fallback slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
