package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env" validate:"oneof=development staging production test"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`
	SiteURL         string        `json:"site_url" validate:"omitempty,url"`

	// Persistence
	StoreDriver string `json:"store_driver" validate:"oneof=file postgres"`
	DatabaseURL string `json:"database_url" validate:"required_if=StoreDriver postgres"`
	StoragePath string `json:"storage_path" validate:"required_if=StoreDriver file"`

	// Redis configuration, an empty URL selects the in-process fallback
	RedisURL     string        `json:"redis_url"`
	RedisPrefix  string        `json:"redis_prefix"`
	ProcessedTTL time.Duration `json:"processed_ttl" validate:"gt=0"`
	RunLockTTL   time.Duration `json:"run_lock_ttl" validate:"gt=0"`

	// Feed acquisition
	FeedCatalogPath  string        `json:"feed_catalog_path"`
	FeedTimeout      time.Duration `json:"feed_timeout" validate:"gt=0"`
	FeedDefaultCount int           `json:"feed_default_count" validate:"min=1"`
	ExtractTimeout   time.Duration `json:"extract_timeout" validate:"gt=0"`
	ExtractMaxChars  int           `json:"extract_max_chars" validate:"min=1000"`

	// Generation loop
	GenerationDelay     time.Duration `json:"generation_delay" validate:"gte=0"`
	DefaultLanguage     string        `json:"default_language" validate:"oneof=id en"`
	DefaultCategoryName string        `json:"default_category_name"`

	// AI Configuration
	AIProvider   string        `json:"ai_provider" validate:"oneof=groq gemini"`
	AIApiKey     string        `json:"ai_api_key"`
	AIModel      string        `json:"ai_model"`
	AIBaseURL    string        `json:"ai_base_url" validate:"omitempty,url"`
	AITimeout    time.Duration `json:"ai_timeout" validate:"gt=0"`
	AIMaxRetries int           `json:"ai_max_retries" validate:"min=0,max=10"`

	// Image generation
	ReplicateToken string `json:"replicate_token"`
	ReplicateModel string `json:"replicate_model"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2PublicURL string `json:"r2_public_url" validate:"omitempty,url"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		SiteURL:         strings.TrimSuffix(getEnv("SITE_URL", "http://localhost:8080"), "/"),

		StoreDriver: getEnv("STORE_DRIVER", "file"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		StoragePath: getEnv("STORAGE_PATH", "./data"),

		RedisURL:     getEnv("REDIS_URL", ""),
		RedisPrefix:  getEnv("REDIS_PREFIX", "autopress:"),
		ProcessedTTL: getEnvAsDuration("PROCESSED_TTL", 720*time.Hour), // 30 days
		RunLockTTL:   getEnvAsDuration("RUN_LOCK_TTL", 30*time.Minute),

		FeedCatalogPath:  getEnv("FEED_CATALOG_PATH", ""),
		FeedTimeout:      getEnvAsDuration("FEED_TIMEOUT", 10*time.Second),
		FeedDefaultCount: getEnvAsInt("FEED_DEFAULT_COUNT", 5),
		ExtractTimeout:   getEnvAsDuration("EXTRACT_TIMEOUT", 15*time.Second),
		ExtractMaxChars:  getEnvAsInt("EXTRACT_MAX_CHARS", 15000),

		GenerationDelay:     getEnvAsDuration("GENERATION_DELAY", 3*time.Second),
		DefaultLanguage:     getEnv("DEFAULT_LANGUAGE", "id"),
		DefaultCategoryName: getEnv("DEFAULT_CATEGORY_NAME", "Umum"),

		AIProvider:   getEnv("AI_PROVIDER", "groq"),
		AIApiKey:     getEnv("AI_API_KEY", ""),
		AIModel:      getEnv("AI_MODEL", ""),
		AIBaseURL:    getEnv("AI_BASE_URL", ""),
		AITimeout:    getEnvAsDuration("AI_TIMEOUT", 90*time.Second),
		AIMaxRetries: getEnvAsInt("AI_MAX_RETRIES", 3),

		ReplicateToken: getEnv("REPLICATE_API_TOKEN", ""),
		ReplicateModel: getEnv("REPLICATE_MODEL", "black-forest-labs/flux-schnell"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2PublicURL: strings.TrimSuffix(getEnv("R2_PUBLIC_URL", ""), "/"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// R2Enabled reports whether image mirroring to R2 is configured
func (c *Config) R2Enabled() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != "" && c.R2PublicURL != ""
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
