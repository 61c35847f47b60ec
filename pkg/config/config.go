package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Email     EmailConfig
	SMS       SMSConfig
	Storage   StorageConfig
	Translate TranslateConfig
	Gate      GateConfig
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	RateLimit   float64
	RateBurst   int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type JWTConfig struct {
	Secret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type EmailConfig struct {
	APIKey string
	APIURL string
	From   string
}

type SMSConfig struct {
	APIURL string
	APIKey string
	From   string
}

type StorageConfig struct {
	UploadDir     string
	R2AccountID   string
	R2AccessKey   string
	R2SecretKey   string
	R2Bucket      string
	R2PublicURL   string
	PresignExpiry time.Duration
}

type TranslateConfig struct {
	LibreURL    string
	LibreAPIKey string
	MyMemoryURL string
	LingvaURL   string
	GoogleURL   string
	// MirrorURL is a second LibreTranslate instance; empty disables it
	MirrorURL string
}

type GateConfig struct {
	// Timezone used for the daily download window, e.g. Asia/Kolkata
	Timezone string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
			RateLimit:   getEnvFloat("RATE_LIMIT_RPS", 10),
			RateBurst:   getEnvInt("RATE_LIMIT_BURST", 30),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "vidshare"),

			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "error"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Email: EmailConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			APIURL: getEnv("RESEND_API_URL", "https://api.resend.com/emails"),
			From:   getEnv("EMAIL_FROM", "VidShare <no-reply@vidshare.local>"),
		},
		SMS: SMSConfig{
			APIURL: getEnv("SMS_API_URL", ""),
			APIKey: getEnv("SMS_API_KEY", ""),
			From:   getEnv("SMS_FROM", "VIDSHR"),
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			R2AccountID:   getEnv("R2_ACCOUNT_ID", ""),
			R2AccessKey:   getEnv("R2_ACCESS_KEY", ""),
			R2SecretKey:   getEnv("R2_SECRET_KEY", ""),
			R2Bucket:      getEnv("R2_BUCKET_NAME", ""),
			R2PublicURL:   getEnv("R2_PUBLIC_URL", ""),
			PresignExpiry: getEnvDuration("PRESIGN_EXPIRY", 15*time.Minute),
		},
		Translate: TranslateConfig{
			LibreURL:    getEnv("LIBRETRANSLATE_URL", "https://libretranslate.com"),
			LibreAPIKey: getEnv("LIBRETRANSLATE_API_KEY", ""),
			MyMemoryURL: getEnv("MYMEMORY_URL", "https://api.mymemory.translated.net"),
			LingvaURL:   getEnv("LINGVA_URL", "https://lingva.ml"),
			GoogleURL:   getEnv("GOOGLE_TRANSLATE_URL", "https://translate.googleapis.com"),
			MirrorURL:   getEnv("LIBRETRANSLATE_MIRROR_URL", "https://translate.argosopentech.com"),
		},
		Gate: GateConfig{
			Timezone: getEnv("DOWNLOAD_TIMEZONE", ""),
		},
	}
}

// DSN prefers DATABASE_URL and otherwise builds a key/value DSN
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port,
	)
}

// Location resolves the download window timezone, falling back to time.Local
func (g GateConfig) Location() *time.Location {
	if g.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
