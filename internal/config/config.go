package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName string
	LogLevel    string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	KafkaBrokers    []string
	KafkaTopic      string
	OutboxInterval  time.Duration
	OutboxBatchSize int
	HealthInterval  time.Duration

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string
	PayPalCurrency     string
	PaymentTimeout     time.Duration

	Pricing            pricing.Config
	OrdersPageSize     int
	AdminPageSize      int
	LatestProductLimit int
}

func Load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "storefront"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "storefront"),

		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "order-events"),
		OutboxInterval:  getDuration("OUTBOX_INTERVAL", 2*time.Second),
		OutboxBatchSize: getInt("OUTBOX_BATCH_SIZE", 100),
		HealthInterval:  getDuration("HEALTH_INTERVAL", 10*time.Second),

		PayPalBaseURL:      getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_APP_SECRET", ""),
		PayPalCurrency:     getEnv("PAYPAL_CURRENCY", "USD"),
		PaymentTimeout:     getDuration("PAYMENT_TIMEOUT", 15*time.Second),

		Pricing: pricing.Config{
			ShippingThreshold: getDecimal("FREE_SHIPPING_THRESHOLD", pricing.DefaultConfig.ShippingThreshold),
			ShippingBelow:     getDecimal("SHIPPING_PRICE_BELOW", pricing.DefaultConfig.ShippingBelow),
			ShippingAbove:     getDecimal("SHIPPING_PRICE_ABOVE", pricing.DefaultConfig.ShippingAbove),
			TaxRate:           getDecimal("TAX_RATE", pricing.DefaultConfig.TaxRate),
		},
		OrdersPageSize:     getInt("PAGE_SIZE", 6),
		AdminPageSize:      getInt("ADMIN_PAGE_SIZE", 10),
		LatestProductLimit: getInt("LATEST_PRODUCTS_LIMIT", 4),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
