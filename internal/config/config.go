package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	TransferTimeout    time.Duration
	BackendBaseURL     string
	BackendTimeout     time.Duration
	BackendRetryMax    int
	JWTSecret          string
	CORSOrigins        []string
	RateLimitRPM       int
	UploadRateLimitRPM int
	MaxUploadSize      int64
	DeleteConcurrency  int
	SessionTTL         time.Duration
	PromptTimeout      time.Duration
	ThumbnailMaxSize   int
	DatabaseURL        string
	DBMaxConns         int32
	DBMinConns         int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		TransferTimeout:    getDuration("TRANSFER_TIMEOUT", 30*time.Minute),
		BackendBaseURL:     strings.TrimRight(getEnv("BACKEND_BASE_URL", ""), "/"),
		BackendTimeout:     getDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendRetryMax:    getInt("BACKEND_RETRY_MAX", 3),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 300),
		UploadRateLimitRPM: getInt("UPLOAD_RATE_LIMIT_RPM", 30),
		MaxUploadSize:      getInt64("MAX_UPLOAD_SIZE", 536870912),
		DeleteConcurrency:  getInt("DELETE_CONCURRENCY", 8),
		SessionTTL:         getDuration("SESSION_TTL", 2*time.Hour),
		PromptTimeout:      getDuration("PROMPT_TIMEOUT", 10*time.Minute),
		ThumbnailMaxSize:   getInt("THUMBNAIL_MAX_SIZE", 512),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:         int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:         int32(getInt("DB_MIN_CONNS", 1)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}

	if u, err := url.Parse(c.BackendBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.TransferTimeout <= 0 {
		return fmt.Errorf("TRANSFER_TIMEOUT must be positive")
	}

	if c.BackendRetryMax < 0 {
		return fmt.Errorf("BACKEND_RETRY_MAX cannot be negative")
	}

	if c.DeleteConcurrency <= 0 {
		return fmt.Errorf("DELETE_CONCURRENCY must be positive")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.ThumbnailMaxSize <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_SIZE must be positive")
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}

	return nil
}

// AuditEnabled reports whether uploads and deletes are written to Postgres.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
