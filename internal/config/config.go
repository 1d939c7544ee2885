package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite, postgres or mysql
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres/mysql only
	MigrationsPath string

	// TokenSecret verifies reader bearer tokens issued by the external
	// auth service. Issuance happens elsewhere; we only verify.
	TokenSecret string

	// Engine tuning. One constant per concern.
	CheckpointDebounce time.Duration
	SessionGap         time.Duration
	FlipSettle         time.Duration

	// Amazon SES settings for completion notification emails. Empty
	// SESFromEmail disables email sending.
	SESRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	Debug bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./storynest.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		TokenSecret: getEnv("TOKEN_SECRET", ""),

		CheckpointDebounce: time.Duration(getEnvInt("CHECKPOINT_DEBOUNCE_MS", 180)) * time.Millisecond,
		SessionGap:         time.Duration(getEnvInt("SESSION_GAP_SECONDS", 120)) * time.Second,
		FlipSettle:         time.Duration(getEnvInt("FLIP_SETTLE_MS", 600)) * time.Millisecond,

		SESRegion:    getEnv("SES_REGION", "eu-west-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "StoryNest"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		Debug: getEnv("DEBUG", "") == "true",
	}
}

// Validate rejects configurations the server must not start with. An empty
// token secret would let tokens signed with the empty string authenticate.
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET must be set")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
