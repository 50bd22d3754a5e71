package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	// Pricing
	Currency string
	TaxRate  string

	// Payment gateway (Redsys-style signed redirect)
	PaymentBackendURL string
	GatewayURL        string
	MerchantCode      string
	MerchantTerminal  string
	MerchantSecretKey string
	MerchantNotifyURL string
	PaymentSuccessURL string
	PaymentFailureURL string
	StorefrontURL     string

	// HTTP
	AllowedOrigins    []string
	InternalSecretKey string

	// Fulfillment
	FulfillmentConcurrency int
	FulfillmentTimeout     time.Duration

	// Events
	KafkaBrokers []string
	KafkaTopic   string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getenv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),
		JWTSecret:  os.Getenv("JWT_SECRET"),

		Currency: getenv("CURRENCY", "EUR"),
		TaxRate:  getenv("TAX_RATE", "0.21"),

		PaymentBackendURL: os.Getenv("PAYMENT_BACKEND_URL"),
		GatewayURL:        getenv("REDSYS_URL", "https://sis-t.redsys.es:25443/sis/realizarPago"),
		MerchantCode:      os.Getenv("REDSYS_MERCHANT_CODE"),
		MerchantTerminal:  getenv("REDSYS_TERMINAL", "1"),
		MerchantSecretKey: os.Getenv("REDSYS_SECRET_KEY"),
		MerchantNotifyURL: os.Getenv("REDSYS_NOTIFY_URL"),
		PaymentSuccessURL: os.Getenv("PAYMENT_SUCCESS_URL"),
		PaymentFailureURL: os.Getenv("PAYMENT_FAILURE_URL"),
		StorefrontURL:     getenv("STOREFRONT_URL", "/"),

		AllowedOrigins:    splitCSV(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),

		FulfillmentConcurrency: getenvInt("FULFILLMENT_CONCURRENCY", 1),
		FulfillmentTimeout:     time.Duration(getenvInt("FULFILLMENT_TIMEOUT_MS", 10000)) * time.Millisecond,

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_ORDER_TOPIC", "orders"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
