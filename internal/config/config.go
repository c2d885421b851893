package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// API Configuration
	APIPort string
	APIHost string

	// Mapping storage
	DataDir        string
	MappingBackend string
	DatabaseURL    string

	// Kafka
	KafkaBrokers         string
	KafkaOrderTopic      string
	KafkaEnrollmentTopic string

	// Shopify
	ShopifyShopDomain    string
	ShopifyAccessToken   string
	ShopifyAPIVersion    string
	ShopifyWebhookSecret string

	// Webhook handling
	WebhookMode string

	// Learning platform
	LMSBaseURL     string
	LMSClientID    string
	LMSAccessToken string
	LMSTimeout     time.Duration

	// Environment
	Env      string
	LogLevel string
}

const (
	BackendFile     = "file"
	BackendDatabase = "database"
)

const (
	WebhookModeInline = "inline"
	WebhookModeRelay  = "relay"
)

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		APIHost:              getEnv("API_HOST", "0.0.0.0"),
		DataDir:              getEnv("DATA_DIR", defaultDataDir()),
		MappingBackend:       getEnv("MAPPING_BACKEND", BackendFile),
		DatabaseURL:          getEnv("DATABASE_URL", "sqlite://data/coursebridge.db"),
		KafkaBrokers:         getEnv("KAFKA_BROKERS", ""),
		KafkaOrderTopic:      getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		KafkaEnrollmentTopic: getEnv("KAFKA_ENROLLMENT_TOPIC", "enrollment-events"),
		ShopifyShopDomain:    getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		ShopifyAccessToken:   getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:    getEnv("SHOPIFY_API_VERSION", "2023-10"),
		ShopifyWebhookSecret: getEnv("SHOPIFY_WEBHOOK_SECRET", ""),
		WebhookMode:          getEnv("WEBHOOK_MODE", WebhookModeInline),
		LMSBaseURL:           getEnv("LMS_BASE_URL", ""),
		LMSClientID:          getEnv("LMS_CLIENT_ID", ""),
		LMSAccessToken:       getEnv("LMS_ACCESS_TOKEN", ""),
		LMSTimeout:           getEnvAsDuration("LMS_TIMEOUT", 30*time.Second),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}, nil
}

// defaultDataDir keeps mapping files in the only writable location on serverless hosts.
func defaultDataDir() string {
	if os.Getenv("VERCEL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return "/tmp/data"
	}
	return "data"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs := getEnvAsInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
