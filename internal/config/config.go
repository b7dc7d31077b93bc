package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	JWTSecret       string
	TokenExpiration time.Duration
	DatabaseURL     string // empty selects the in-memory store
	NatsURL         string // empty selects the in-process event bus
	BackendURL      string // base URL the client binary talks to
	UploadDir       string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	tokenExpStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	tokenExpHours, err := strconv.Atoi(tokenExpStr)
	if err != nil {
		log.Printf("Warning: Invalid JWT_EXPIRATION_HOURS '%s', using default 24h. Error: %v", tokenExpStr, err)
		tokenExpHours = 24
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		TokenExpiration: time.Hour * time.Duration(tokenExpHours),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		NatsURL:         getEnv("NATS_URL", ""),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8080"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
	}

	log.Printf("Loaded config: Port=%s, TokenExp=%s, DB=%t, NATS=%t",
		cfg.HTTPPort, cfg.TokenExpiration, cfg.DatabaseURL != "", cfg.NatsURL != "")

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
