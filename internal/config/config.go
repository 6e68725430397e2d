package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// API settings
	APIAddr  string
	APIKey   string
	DevMode  bool
	LogLevel string

	// Relational store; empty selects the in-memory store
	DatabaseURL         string
	StoreConnectRetries int

	// Redis settings (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse settings (optional transaction archive)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Price oracle
	CoinGeckoBaseURL     string
	BinanceBaseURL       string
	PriceRefreshInterval time.Duration
	HTTPTimeout          time.Duration

	// Mock confidentiality service key
	ConfidentialKey string

	// AI agent
	OpenRouterAPIKey string
	AIModel          string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr:  getEnv("API_ADDR", ":5000"),
		APIKey:   getEnv("API_KEY", ""),
		DevMode:  getBoolEnv("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Store
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		StoreConnectRetries: getIntEnv("STORE_CONNECT_RETRIES", 3),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "dex"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Oracle
		CoinGeckoBaseURL:     getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		BinanceBaseURL:       getEnv("BINANCE_BASE_URL", "https://api.binance.com/api/v3"),
		PriceRefreshInterval: getDurationEnv("PRICE_REFRESH_INTERVAL", 30*time.Second),
		HTTPTimeout:          getDurationEnv("HTTP_TIMEOUT", 10*time.Second),

		ConfidentialKey: getEnv("CONFIDENTIAL_KEY", ""),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),
	}
}

// Validate reports the first setting that cannot work at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR must not be empty")
	}
	if c.PriceRefreshInterval < time.Second {
		return fmt.Errorf("PRICE_REFRESH_INTERVAL must be at least 1s, got %s", c.PriceRefreshInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.StoreConnectRetries < 1 {
		return fmt.Errorf("STORE_CONNECT_RETRIES must be at least 1, got %d", c.StoreConnectRetries)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative, got %d", c.RedisDB)
	}
	if c.ClickHouseAddr != "" && c.ClickHouseDatabase == "" {
		return fmt.Errorf("CLICKHOUSE_DATABASE is required when CLICKHOUSE_ADDR is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
