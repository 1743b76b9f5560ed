package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // sqlite, sqlite3, mysql, postgres, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string // file path for sqlite
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	DBLogLevel        string

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Policy
	AdminEmail   string
	MessageLimit int
	HistoryLimit int

	// Completion API
	CompletionBaseURL string
	CompletionAPIKey  string
	CompletionModel   string
	CompletionTimeout time.Duration
}

// Load loads configuration from environment variables, after merging in the .env
// file named by ENV_FILE (default ".env") when one exists. Variables already set in
// the environment win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		log.Printf("Environment loaded from %s", envFile)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		DBType:            getEnv("DB_TYPE", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DBLogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		MessageLimit:      getEnvAsInt("MESSAGE_LIMIT", 100),
		HistoryLimit:      getEnvAsInt("HISTORY_LIMIT", 10),
		CompletionBaseURL: getEnv("COMPLETION_BASE_URL", ""),
		CompletionAPIKey:  getEnv("COMPLETION_API_KEY", ""),
		CompletionModel:   getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values every entry point needs
func (c *Config) Validate() error {
	if c.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if c.DBType != "sqlite" && c.DBType != "sqlite3" && c.DBUser == "" {
		return fmt.Errorf("DB_USER is required for %s", c.DBType)
	}
	if c.MessageLimit <= 0 {
		return fmt.Errorf("MESSAGE_LIMIT must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	return nil
}

// ValidateServer checks the additional values the HTTP server needs
func (c *Config) ValidateServer() error {
	if c.AuthzURL == "" {
		return fmt.Errorf("AUTHZ_URL is required")
	}
	if c.AuthzClientID == "" {
		return fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	if c.CompletionAPIKey == "" {
		return fmt.Errorf("COMPLETION_API_KEY is required")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration ("30s", "2m") or
// returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
