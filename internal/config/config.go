package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. It is loaded once
// at startup and passed by value into pipeline construction; a config
// reload means building a new pipeline, not mutating this struct.
type Config struct {
	// Server
	Port            string `validate:"required"`
	Env             string `validate:"oneof=development production test"`
	ShutdownTimeout time.Duration
	HTTPTimeout     time.Duration
	AdminAPIKey     string

	// Database (SQLite)
	DatabasePath string `validate:"required"`

	// Redis (cross-run seen-URL cache, optional)
	RedisURL    string
	RedisPrefix string
	SeenTTL     time.Duration

	// LLM
	LLMProvider  string `validate:"oneof=openai zhipu qwen"`
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	LLMTimeout   time.Duration
	LLMMaxTokens int

	// Collection
	FeedConcurrency    int `validate:"min=1"`
	FeedTimeout        time.Duration
	CollectWindowHours int `validate:"min=1"`

	// Rule filter
	FilterMaxAgeHours      int `validate:"min=1"`
	FilterTitleMinLength   int
	FilterContentMinLength int

	// Deduplication
	TitleSimilarity float64 `validate:"gt=0,lte=1"`

	// Scoring / summarization
	ScoringBatchSize   int `validate:"min=1"`
	ScoringConcurrency int `validate:"min=1"`
	SummaryConcurrency int `validate:"min=1"`
	ProcessWindowHours int `validate:"min=1"`
	ProcessLimit       int `validate:"min=1"`

	// Report
	MinScore          int `validate:"min=3,max=30"`
	TopN              int `validate:"min=1"`
	ReportWindowHours int `validate:"min=1"`
	OutputDir         string

	// Report archive upload (S3/R2, optional)
	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	// Email
	EmailEnabled    bool
	EmailSender     string
	EmailPassword   string
	EmailRecipients string
	SMTPHost        string
	SMTPPort        int
	SMTPSSL         bool

	// Scheduler
	SchedulerEnabled     bool
	CollectIntervalHours int `validate:"min=1"`
	ReportHour           int `validate:"min=0,max=23"`

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load loads configuration from environment variables (with .env support)
// and validates it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),

		DatabasePath: getEnv("DATABASE_PATH", "./data/newsbrief.db"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "newsbrief:"),
		SeenTTL:     getEnvAsDuration("SEEN_TTL", 720*time.Hour), // 30 days

		LLMProvider:  getEnv("LLM_PROVIDER", "openai"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", ""),
		LLMModel:     getEnv("LLM_MODEL", ""),
		LLMTimeout:   getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxTokens: getEnvAsInt("LLM_MAX_TOKENS", 2000),

		FeedConcurrency:    getEnvAsInt("FEED_CONCURRENCY", 10),
		FeedTimeout:        getEnvAsDuration("FEED_TIMEOUT", 15*time.Second),
		CollectWindowHours: getEnvAsInt("COLLECT_WINDOW_HOURS", 48),

		FilterMaxAgeHours:      getEnvAsInt("FILTER_MAX_AGE_HOURS", 48),
		FilterTitleMinLength:   getEnvAsInt("FILTER_TITLE_MIN_LENGTH", 10),
		FilterContentMinLength: getEnvAsInt("FILTER_CONTENT_MIN_LENGTH", 50),

		TitleSimilarity: getEnvAsFloat("TITLE_SIMILARITY", 0.85),

		ScoringBatchSize:   getEnvAsInt("SCORING_BATCH_SIZE", 10),
		ScoringConcurrency: getEnvAsInt("SCORING_CONCURRENCY", 2),
		SummaryConcurrency: getEnvAsInt("SUMMARY_CONCURRENCY", 3),
		ProcessWindowHours: getEnvAsInt("PROCESS_WINDOW_HOURS", 48),
		ProcessLimit:       getEnvAsInt("PROCESS_LIMIT", 200),

		MinScore:          getEnvAsInt("MIN_SCORE", 20),
		TopN:              getEnvAsInt("TOP_N", 15),
		ReportWindowHours: getEnvAsInt("REPORT_WINDOW_HOURS", 24),
		OutputDir:         getEnv("OUTPUT_DIR", "./output/reports"),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "auto"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		EmailEnabled:    getEnvAsBool("EMAIL_ENABLED", false),
		EmailSender:     getEnv("EMAIL_SENDER", ""),
		EmailPassword:   getEnv("EMAIL_PASSWORD", ""),
		EmailRecipients: getEnv("EMAIL_RECIPIENTS", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvAsInt("SMTP_PORT", 0),
		SMTPSSL:         getEnvAsBool("SMTP_SSL", true),

		SchedulerEnabled:     getEnvAsBool("SCHEDULER_ENABLED", true),
		CollectIntervalHours: getEnvAsInt("COLLECT_INTERVAL_HOURS", 2),
		ReportHour:           getEnvAsInt("REPORT_HOUR", 6),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
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

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %g", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
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
