package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultListenAddr     = ":8080"
	DefaultAPIBaseURL     = "http://localhost:8000"
	DefaultAPITimeout     = 60 * time.Second
	DefaultMaxUploadBytes = 10 << 20
	DefaultSessionTTL     = 24 * time.Hour
	DefaultCameraIdle     = 5 * time.Minute
	DefaultHealthInterval = 30 * time.Second
)

// Config holds process settings read from the environment.
type Config struct {
	ListenAddr     string
	APIBaseURL     string
	APITimeout     time.Duration
	MaxUploadBytes int64

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	RedisAddr     string

	DatabaseDSN string

	CORSOrigins []string

	CameraRearURL     string
	CameraFrontURL    string
	CameraIdleTimeout time.Duration

	GRPCHealthAddr string
	HealthInterval time.Duration

	Debug bool
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", DefaultListenAddr),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
		CameraRearURL:  os.Getenv("CAMERA_REAR_URL"),
		CameraFrontURL: os.Getenv("CAMERA_FRONT_URL"),
		GRPCHealthAddr: os.Getenv("GRPC_HEALTH_ADDR"),
	}

	cfg.APITimeout = getDuration("API_TIMEOUT", DefaultAPITimeout, &errs)
	cfg.SessionTTL = getDuration("SESSION_TTL", DefaultSessionTTL, &errs)
	cfg.CameraIdleTimeout = getDuration("CAMERA_IDLE_TIMEOUT", DefaultCameraIdle, &errs)
	cfg.HealthInterval = getDuration("HEALTH_INTERVAL", DefaultHealthInterval, &errs)

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", strconv.Itoa(DefaultMaxUploadBytes)), 10, 64)
	if err != nil || maxUpload <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer"))
	}
	cfg.MaxUploadBytes = maxUpload

	cfg.Debug, _ = strconv.ParseBool(os.Getenv("DEBUG"))
	cfg.CookieSecure, _ = strconv.ParseBool(os.Getenv("COOKIE_SECURE"))

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL %q is not an absolute URL", cfg.APIBaseURL))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
	}

	return cfg, nil
}

// CameraEnabled reports whether any snapshot camera is configured.
func (c *Config) CameraEnabled() bool {
	return c.CameraRearURL != "" || c.CameraFrontURL != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
