package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env            string
	Port           string
	JWTSecret      string
	JWTExpiry      time.Duration
	UploadDir      string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string

	Database      DatabaseConfig
	Certificate   CertificateConfig
	Notifications NotificationConfig
	SMTP          SMTPConfig
	Twilio        TwilioConfig
	PushURL       string
	RedisURL      string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

type CertificateConfig struct {
	Prefix  string
	OrgName string
}

type NotificationConfig struct {
	ReminderDaysBefore int
	BatchSize          int
	ScanSchedule       string
	DispatchSchedule   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	twilioPhone := os.Getenv("TWILIO_PHONE_NUMBER")

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      jwtSecret,
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24*7)) * time.Hour,
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		Database: DatabaseConfig{
			URL:      os.Getenv("DB_URL"),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "calibration"),
		},
		Certificate: CertificateConfig{
			Prefix:  getEnv("CERT_PREFIX", "JIC"),
			OrgName: getEnv("ORG_NAME", "JUST INSTRUMENTS INC."),
		},
		Notifications: NotificationConfig{
			ReminderDaysBefore: getEnvInt("REMINDER_DAYS_BEFORE", 7),
			BatchSize:          getEnvInt("NOTIFICATION_BATCH_SIZE", 50),
			ScanSchedule:       getEnv("CRON_SCAN_SPEC", "0 9 * * *"),
			DispatchSchedule:   getEnv("CRON_DISPATCH_SPEC", "*/15 * * * *"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
		Twilio: TwilioConfig{
			AccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber:    twilioPhone,
			WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", twilioPhone),
		},
		PushURL:  os.Getenv("PUSH_WEBHOOK_URL"),
		RedisURL: os.Getenv("REDIS_URL"),
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
