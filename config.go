package main

import (
	"fmt"
	"os"

	"github.com/openclaw/clawboard/services"
)

// Config holds all server configuration. It is loaded once at startup and
// passed explicitly to the components that need it; nothing reads the
// environment after this point.
type Config struct {
	Port          string
	DatabasePath  string
	JWTSecret     string
	EncryptionKey string
	WebhookSecret string

	// Defaults seeded into a new workspace's OpenClaw config.
	OpenClawDefaultMode       string
	OpenClawDefaultBaseURL    string
	OpenClawDefaultHealthPath string
}

// LoadConfig reads the optional .env file and builds the Config from the
// environment. The encryption key is required because stored OpenClaw tokens
// cannot be decrypted without it.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	if err := services.LoadEnv(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "3001"),
		DatabasePath:              getEnv("DATABASE_PATH", "./clawboard.db"),
		JWTSecret:                 getEnv("JWT_SECRET", ""),
		EncryptionKey:             os.Getenv("ENCRYPTION_KEY"),
		WebhookSecret:             os.Getenv("OPENCLAW_WEBHOOK_SECRET"),
		OpenClawDefaultMode:       getEnv("OPENCLAW_DEFAULT_MODE", "mock"),
		OpenClawDefaultBaseURL:    os.Getenv("OPENCLAW_DEFAULT_BASE_URL"),
		OpenClawDefaultHealthPath: getEnv("OPENCLAW_DEFAULT_HEALTH_PATH", "/health"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
