// Package config provides configuration for the tutor service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers understood by the adapter factory.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Config holds the tutor configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Completion backend
	LLMProvider    string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration

	// CMS topic lookup
	CMSBaseURL    string
	CMSTimeout    time.Duration
	RedisAddr     string
	TopicCacheTTL time.Duration

	// Identity
	SecretKey     string
	AuthDisabled  bool
	DefaultUserID string

	// Conversation and quiz tuning
	HistoryLimit     int
	MaxQuestions     int
	BackfillAttempts int
	PadShortfall     bool

	// Logging
	LogMode string
}

// Load reads an optional .env file and then builds the configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:tutor.db?mode=rwc&_busy_timeout=5000&_txlock=immediate"),
		LLMProvider:      strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:        getEnv("OPENAI_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTemperature:   getEnvFloat("LLM_TEMPERATURE", 0.7),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		CMSBaseURL:       getEnv("CMS_BASE_URL", ""),
		CMSTimeout:       time.Duration(getEnvInt("CMS_TIMEOUT_MS", 5000)) * time.Millisecond,
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		TopicCacheTTL:    time.Duration(getEnvInt("TOPIC_CACHE_TTL_SEC", 300)) * time.Second,
		SecretKey:        getEnv("SECRET_KEY", ""),
		AuthDisabled:     getEnvBool("AUTH_DISABLED", false),
		DefaultUserID:    getEnv("DEFAULT_USER_ID", "default_user"),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 50),
		MaxQuestions:     getEnvInt("MAX_QUESTIONS", 5),
		BackfillAttempts: clamp(getEnvInt("QUIZ_BACKFILL_ATTEMPTS", 3), 3, 5),
		PadShortfall:     getEnvBool("QUIZ_PAD_SHORTFALL", false),
		LogMode:          getEnv("LOG_MODE", "dev"),
	}
	if getEnv("TUTOR_MODE", "") == "MOCK" {
		cfg.LLMProvider = ProviderMock
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.LLMBaseURL == "" {
			return errors.New("LLM_BASE_URL is required for the openai provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %q", c.LLMProvider)
	}
	if !c.AuthDisabled && c.SecretKey == "" {
		return errors.New("SECRET_KEY is required unless AUTH_DISABLED=true")
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("MAX_QUESTIONS must be positive, got %d", c.MaxQuestions)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
