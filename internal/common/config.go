package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Watch    WatchConfig
}

// LLMConfig holds the remote completion endpoint settings and retry policy.
type LLMConfig struct {
	BaseURL          string
	Model            string
	APIKeys          []string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	Timeout          time.Duration

	MaxRetries        int
	RateLimitBackoff  time.Duration
	RetryBackoff      time.Duration
	RequestDelay      time.Duration
	MaxRateLimitWaits int
	RequestsPerMinute float64
	KeyCooldown       time.Duration
}

// PipelineConfig holds chunking and combine settings
type PipelineConfig struct {
	ChunkSize    int
	StrictMode   bool
	NormalizePDF bool
}

// StorageConfig holds output-related configuration
type StorageConfig struct {
	ConvertedDir string
	ExportXLSX   bool
}

// DatabaseConfig holds job ledger configuration. An empty Driver disables the ledger.
type DatabaseConfig struct {
	Driver          string // "sqlite" | "postgres"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// WatchConfig holds inbox watch-mode configuration
type WatchConfig struct {
	Debounce  time.Duration
	Workers   int
	QueueSize int
}

// Defaults mirrored by the CLI help text.
const (
	DefaultBaseURL   = "https://api.sambanova.ai/v1"
	DefaultModel     = "Meta-Llama-3.1-8B-Instruct"
	DefaultChunkSize = 2000
	// legacyKeySlots is the number of numbered SAMBANOVA_API_KEY_n variables read.
	legacyKeySlots = 5
)

// LoadDotEnv loads variables from .env style files without overriding the
// process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:           getEnv("LLM_BASE_URL", DefaultBaseURL),
			Model:             getEnv("LLM_MODEL", DefaultModel),
			APIKeys:           loadAPIKeys(),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			TopP:              getEnvAsFloat("LLM_TOP_P", 0.1),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 1500),
			PresencePenalty:   getEnvAsFloat("LLM_PRESENCE_PENALTY", 0),
			FrequencyPenalty:  getEnvAsFloat("LLM_FREQUENCY_PENALTY", 0),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:        getEnvAsInt("LLM_MAX_RETRIES", 3),
			RateLimitBackoff:  getEnvAsDuration("LLM_RATE_LIMIT_BACKOFF", 5*time.Second),
			RetryBackoff:      getEnvAsDuration("LLM_RETRY_BACKOFF", 3*time.Second),
			RequestDelay:      getEnvAsDuration("LLM_REQUEST_DELAY", time.Second),
			MaxRateLimitWaits: getEnvAsInt("LLM_MAX_RATE_LIMIT_WAITS", 0),
			RequestsPerMinute: getEnvAsFloat("LLM_REQUESTS_PER_MINUTE", 0),
			KeyCooldown:       getEnvAsDuration("LLM_KEY_COOLDOWN", 0),
		},
		Pipeline: PipelineConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", DefaultChunkSize),
			StrictMode:   getEnvAsBool("STRICT_MODE", false),
			NormalizePDF: getEnvAsBool("NORMALIZE_PDF", false),
		},
		Storage: StorageConfig{
			ConvertedDir: getEnv("CONVERTED_FOLDER", "converted_files"),
			ExportXLSX:   getEnvAsBool("EXPORT_XLSX", false),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("JOBS_DB_DRIVER", "")),
			DSN:             getEnv("JOBS_DB_DSN", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Watch: WatchConfig{
			Debounce:  getEnvAsDuration("WATCH_DEBOUNCE", 750*time.Millisecond),
			Workers:   getEnvAsInt("WATCH_WORKERS", 1),
			QueueSize: getEnvAsInt("WATCH_QUEUE_SIZE", 64),
		},
	}
}

// loadAPIKeys reads SAMBANOVA_API_KEY_1..5 in order, then LLM_API_KEYS
// (comma separated). Blank entries are skipped.
func loadAPIKeys() []string {
	var keys []string
	for i := 1; i <= legacyKeySlots; i++ {
		if v := strings.TrimSpace(os.Getenv(fmt.Sprintf("SAMBANOVA_API_KEY_%d", i))); v != "" {
			keys = append(keys, v)
		}
	}
	for _, v := range strings.Split(os.Getenv("LLM_API_KEYS"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. An empty credential list is
// not a validation error here; it is reported by the pipeline precondition.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("LLM_BASE_URL", c.LLM.BaseURL, Required, AbsoluteURL)
	v.Field("LLM_MODEL", c.LLM.Model, Required, MaxLength(200))
	v.Field("LLM_MAX_TOKENS", c.LLM.MaxTokens, Positive)
	v.Field("LLM_TIMEOUT", c.LLM.Timeout, Positive)
	v.Field("LLM_MAX_RETRIES", c.LLM.MaxRetries, Positive)
	v.Field("LLM_RATE_LIMIT_BACKOFF", c.LLM.RateLimitBackoff, NonNegative)
	v.Field("LLM_RETRY_BACKOFF", c.LLM.RetryBackoff, NonNegative)
	v.Field("LLM_REQUEST_DELAY", c.LLM.RequestDelay, NonNegative)
	v.Field("LLM_MAX_RATE_LIMIT_WAITS", c.LLM.MaxRateLimitWaits, NonNegative)
	v.Field("LLM_REQUESTS_PER_MINUTE", c.LLM.RequestsPerMinute, NonNegative)
	v.Field("LLM_KEY_COOLDOWN", c.LLM.KeyCooldown, NonNegative)
	v.Field("CHUNK_SIZE", c.Pipeline.ChunkSize, Positive)
	v.Field("CONVERTED_FOLDER", c.Storage.ConvertedDir, Required)
	v.Field("JOBS_DB_DRIVER", c.Database.Driver, OneOf("sqlite", "postgres"))
	if c.Database.Driver == "postgres" {
		v.Field("JOBS_DB_DSN", c.Database.DSN, Required)
	}
	v.Field("WATCH_WORKERS", c.Watch.Workers, Positive)
	return ValidateAndReturnError(v)
}
