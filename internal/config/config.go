package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gildedwren/storefront/internal/checkout/domain"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI     string
	MongoDB      string
	RedisAddr    string
	RedisPass    string
	KafkaBrokers []string

	PostgresHost string
	PostgresPort int
	PostgresUser string
	PostgresPass string
	PostgresDB   string

	CheckoutMigrationsPath  string
	OrdersMigrationsPath    string
	MarketingMigrationsPath string

	SQLitePath           string
	SQLiteMigrationsPath string

	GatewayBaseURL string
	GatewayAPIKey  string

	AdminUsername string
	AdminPassword string
	UploadDir     string

	Pricing domain.PricingConfig
}

func Load() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB

		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "storefront"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		PostgresHost: getEnv("DB_HOST", "localhost"),
		PostgresPort: getEnvInt("DB_PORT", 5432),
		PostgresUser: getEnv("DB_USER", "postgres"),
		PostgresPass: getEnv("DB_PASSWORD", "postgres"),
		PostgresDB:   getEnv("DB_NAME", "storefront"),

		CheckoutMigrationsPath:  getEnv("CHECKOUT_MIGRATIONS_PATH", "./migrations/checkout"),
		OrdersMigrationsPath:    getEnv("ORDERS_MIGRATIONS_PATH", "./migrations/orders"),
		MarketingMigrationsPath: getEnv("MARKETING_MIGRATIONS_PATH", "./migrations/marketing"),

		SQLitePath:           getEnv("SQLITE_PATH", "./storefront.db"),
		SQLiteMigrationsPath: getEnv("SQLITE_MIGRATIONS_PATH", "./migrations/sqlite"),

		GatewayBaseURL: getEnv("PAYMENT_GATEWAY_URL", "https://api.stripe.com"),
		GatewayAPIKey:  getEnv("PAYMENT_GATEWAY_KEY", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "changeme"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),

		Pricing: domain.PricingConfig{
			FreeShippingThreshold: getEnvInt64("FREE_SHIPPING_THRESHOLD", 5000),
			FlatShippingFee:       getEnvInt64("FLAT_SHIPPING_FEE", 999),
			TaxRate:               getEnvDecimal("TAX_RATE", "0.12"),
			Currency:              getEnv("CURRENCY", "usd"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}
