package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Token lifetime in hours; zero or negative falls back to 72.
	JWTExpiryHours int

	// Payment gateway
	StripeWebhookURL  string // registered endpoint, checked against event metadata
	MidtransServerKey string

	// Notifications
	SendgridAPIKey string
	EmailSender    string

	// Certificates
	CertificateBaseURL string

	// Course completion
	CompletionThreshold float64 // percentage at which a course counts as finished
	DefaultPassingGrade float64

	// When true the passing-grade denominator uses retake-penalized totals
	// instead of the base point totals.
	PenalizedPassDenominator bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "learning_platform"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 72),

		StripeWebhookURL:  getEnv("STRIPE_WEBHOOK_URL", ""),
		MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "noreply@learning-platform.local"),

		CertificateBaseURL: getEnv("CERTIFICATE_BASE_URL", "https://certificates.learning-platform.local"),

		CompletionThreshold: getEnvFloat("COMPLETION_THRESHOLD", 100),
		DefaultPassingGrade: getEnvFloat("DEFAULT_PASSING_GRADE", 50),

		PenalizedPassDenominator: getEnvBool("PENALIZED_PASS_DENOMINATOR", false),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
