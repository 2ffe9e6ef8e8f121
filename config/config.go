package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Job names accepted by Validate.
const (
	JobCatalog      = "catalog-sync"
	JobSubscription = "subscription-sync"
	JobOrder        = "order-sync"
)

type Config struct {
	Shopify    ShopifyConfig
	Recharge   RechargeConfig
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	RabbitMQ   RabbitMQConfig
	Sync       SyncConfig
}

type ShopifyConfig struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	// StoreURL is the REST base, e.g. https://shop.myshopify.com/admin/api/2025-04.
	// Derived from StoreDomain and APIVersion when unset.
	StoreURL string
}

type RechargeConfig struct {
	BaseURL         string
	Token           string
	APIVersion      string
	RateLimit       float64
	StopAtWatermark bool
}

type PostgresConfig struct {
	URL      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	TimeZone string
}

// ClickHouseConfig is optional; the sink is disabled when Host is empty.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

// RabbitMQConfig is optional; order events are not published when URL is empty.
type RabbitMQConfig struct {
	URL        string
	OrderQueue string
}

func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

type SyncConfig struct {
	PageDelay     time.Duration
	Timeout       time.Duration
	HTTPTimeout   time.Duration
	MaxRetries    int
	OrderLookback time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	pgPort, err := getEnvInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, err
	}
	chPort, err := getEnvInt("CLICKHOUSE_PORT", 9000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := getEnvInt("HTTP_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	rateLimit, err := strconv.ParseFloat(getEnv("RECHARGE_RATE_LIMIT", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RECHARGE_RATE_LIMIT: %w", err)
	}
	stopAtWatermark, err := strconv.ParseBool(getEnv("RECHARGE_STOP_AT_WATERMARK", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECHARGE_STOP_AT_WATERMARK: %w", err)
	}

	cfg := &Config{
		Shopify: ShopifyConfig{
			StoreDomain: getEnv("SHOPIFY_STORE_DOMAIN", ""),
			AccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:  getEnv("SHOPIFY_API_VERSION", "2025-04"),
			StoreURL:    getEnv("SHOPIFY_STORE_URL", ""),
		},
		Recharge: RechargeConfig{
			BaseURL:         getEnv("RECHARGE_API_URL", "https://api.rechargeapps.com"),
			Token:           getEnv("RECHARGE_API_TOKEN", ""),
			APIVersion:      getEnv("RECHARGE_API_VERSION", "2021-11"),
			RateLimit:       rateLimit,
			StopAtWatermark: stopAtWatermark,
		},
		Postgres: PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", "postgres"),
			Port:     pgPort,
			Database: getEnv("POSTGRES_DATABASE", "shopsync"),
			Username: getEnv("POSTGRES_USERNAME", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     getEnv("CLICKHOUSE_HOST", ""),
			Port:     chPort,
			Database: getEnv("CLICKHOUSE_DATABASE", "shopsync"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        getEnv("RABBITMQ_URL", ""),
			OrderQueue: getEnv("RABBITMQ_ORDER_QUEUE", "shopsync.orders"),
		},
		Sync: SyncConfig{
			MaxRetries: maxRetries,
		},
	}

	if cfg.Sync.PageDelay, err = getEnvDuration("SYNC_PAGE_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Sync.Timeout, err = getEnvDuration("SYNC_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Sync.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Sync.OrderLookback, err = getEnvDuration("ORDER_SYNC_INITIAL_LOOKBACK", 24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.Shopify.StoreURL == "" && cfg.Shopify.StoreDomain != "" {
		cfg.Shopify.StoreURL = fmt.Sprintf("https://%s/admin/api/%s", cfg.Shopify.StoreDomain, cfg.Shopify.APIVersion)
	}
	cfg.Shopify.StoreURL = strings.TrimRight(cfg.Shopify.StoreURL, "/")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// Validate checks the settings the given job needs.
func (c *Config) Validate(job string) error {
	if c.Postgres.URL == "" && c.Postgres.Host == "" {
		return fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
	}

	switch job {
	case JobCatalog, JobOrder:
		if err := c.validateShopify(); err != nil {
			return err
		}
	case JobSubscription:
		if err := c.validateShopify(); err != nil {
			return err
		}
		if c.Recharge.Token == "" {
			return fmt.Errorf("RECHARGE_API_TOKEN is required")
		}
		if c.Recharge.RateLimit <= 0 {
			return fmt.Errorf("RECHARGE_RATE_LIMIT must be positive")
		}
	default:
		return fmt.Errorf("unknown job %q", job)
	}

	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateShopify() error {
	if c.Shopify.StoreDomain == "" {
		return fmt.Errorf("SHOPIFY_STORE_DOMAIN is required")
	}
	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	return nil
}
