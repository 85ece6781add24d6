package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	APP_ENV    string
	APP_URL    string
	DB_URL     string
	JWT_SECRET string
	LOG_LEVEL  string

	CORS_ORIGIN string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	STRIPE_TIMEOUT        time.Duration
	STRIPE_MAX_RETRIES    int64

	// Shared secret for the external tool's backend calling /api/gpt-verify.
	// Required outside development.
	VERIFY_API_KEY string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string

	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_FROM     string
	SMTP_PASSWORD string

	SUPPORT_API_KEY  string
	SUPPORT_MODEL    string
	SUPPORT_BASE_URL string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	APP_ENV = getEnv("APP_ENV", "production")
	APP_URL = strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", APP_URL)

	STRIPE_SECRET_KEY = mustEnv("STRIPE_SECRET_KEY")
	STRIPE_WEBHOOK_SECRET = mustEnv("STRIPE_WEBHOOK_SECRET")
	STRIPE_TIMEOUT = getDuration("STRIPE_TIMEOUT", 10*time.Second)
	STRIPE_MAX_RETRIES = getInt("STRIPE_MAX_RETRIES", 2)

	if IsDevelopment() {
		VERIFY_API_KEY = getEnv("VERIFY_API_KEY", "")
	} else {
		VERIFY_API_KEY = mustEnv("VERIFY_API_KEY")
	}

	// Google sign-in is optional; the routes are only mounted when configured.
	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	SMTP_HOST = getEnv("SMTP_HOST", "")
	SMTP_PORT = getEnv("SMTP_PORT", "587")
	SMTP_FROM = getEnv("SMTP_FROM", "")
	SMTP_PASSWORD = getEnv("SMTP_PASSWORD", "")

	SUPPORT_API_KEY = getEnv("SUPPORT_API_KEY", "")
	SUPPORT_MODEL = getEnv("SUPPORT_MODEL", "gpt-4o-mini")
	SUPPORT_BASE_URL = getEnv("SUPPORT_BASE_URL", "https://api.openai.com/v1")
}

func GoogleEnabled() bool {
	return GOOGLE_CLIENT_ID != "" && GOOGLE_CLIENT_SECRET != "" && GOOGLE_REDIRECT_URL != ""
}

func SMTPEnabled() bool {
	return SMTP_HOST != "" && SMTP_FROM != ""
}

func IsDevelopment() bool {
	return APP_ENV == "development"
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int64) int64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		log.Printf("Invalid integer for %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

// Config is a snapshot of the loaded environment for code that takes its
// settings as a value (the operator CLI, tests).
type Config struct {
	Port             string
	Env              string
	AppURL           string
	DBURL            string
	JWTSecret        string
	LogLevel         string
	CORSOrigin       string
	StripeSecretKey  string
	StripeWebhookKey string
	StripeTimeout    time.Duration
	StripeMaxRetries int64
	VerifyAPIKey     string
	SupportAPIKey    string
	SupportModel     string
	SupportBaseURL   string
}

// Load reads the environment and returns the resulting snapshot.
func Load() Config {
	LoadEnv()
	return Current()
}

func Current() Config {
	return Config{
		Port:             PORT,
		Env:              APP_ENV,
		AppURL:           APP_URL,
		DBURL:            DB_URL,
		JWTSecret:        JWT_SECRET,
		LogLevel:         LOG_LEVEL,
		CORSOrigin:       CORS_ORIGIN,
		StripeSecretKey:  STRIPE_SECRET_KEY,
		StripeWebhookKey: STRIPE_WEBHOOK_SECRET,
		StripeTimeout:    STRIPE_TIMEOUT,
		StripeMaxRetries: STRIPE_MAX_RETRIES,
		VerifyAPIKey:     VERIFY_API_KEY,
		SupportAPIKey:    SUPPORT_API_KEY,
		SupportModel:     SUPPORT_MODEL,
		SupportBaseURL:   SUPPORT_BASE_URL,
	}
}
