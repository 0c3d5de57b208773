package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port        string
	Environment string

	MongoURI string
	DBName   string

	Admin     AdminConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	OTP       OTPConfig
	SMTP      SMTPConfig
	Log       LogConfig
	Analytics AnalyticsConfig

	WebhookSecret string
	CORSOrigins   []string
}

type AdminConfig struct {
	Email         string
	PasswordHash  string
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
}

type FirebaseConfig struct {
	CredentialsPath  string
	SessionCookieTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OTPConfig struct {
	TTL               time.Duration
	RequestsPerWindow int
	Window            time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

type LogConfig struct {
	Level string
	File  string
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		MongoURI:    getEnvOrDefault("MONGO_URI", ""),
		DBName:      getEnvOrDefault("DB_NAME", "siteplanner"),
		Admin: AdminConfig{
			Email:         strings.ToLower(getEnvOrDefault("ADMIN_EMAIL", "")),
			PasswordHash:  getEnvOrDefault("ADMIN_PASSWORD_HASH", ""),
			Password:      getEnvOrDefault("ADMIN_PASSWORD", ""),
			SessionSecret: getEnvOrDefault("ADMIN_SESSION_SECRET", ""),
			SessionTTL:    getDurationEnv("ADMIN_SESSION_TTL", 24, time.Hour),
		},
		Firebase: FirebaseConfig{
			CredentialsPath:  getEnvOrDefault("FIREBASE_CREDENTIALS_PATH", ""),
			SessionCookieTTL: getDurationEnv("SESSION_COOKIE_TTL", 5, 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			TTL:               getDurationEnv("OTP_TTL", 10, time.Minute),
			RequestsPerWindow: getIntEnv("OTP_REQUESTS_PER_WINDOW", 3),
			Window:            getDurationEnv("OTP_WINDOW", 15, time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getEnvOrDefault("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", 587),
			User:     getEnvOrDefault("SMTP_USER", ""),
			Password: getEnvOrDefault("SMTP_PASSWORD", ""),
			Sender:   getEnvOrDefault("SMTP_SENDER", "no-reply@siteplanner.local"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File:  getEnvOrDefault("LOG_FILE", ""),
		},
		Analytics: AnalyticsConfig{
			CacheTTL: getDurationEnv("ANALYTICS_CACHE_TTL", 60, time.Second),
		},
		WebhookSecret: getEnvOrDefault("WEBHOOK_SECRET", ""),
		CORSOrigins:   getListEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// IsDevelopment reports whether cookies may be sent without the Secure flag.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return parsed
}

func getListEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
