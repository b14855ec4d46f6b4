package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Cache    CacheConfig
	Upload   UploadConfig

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port           string        `envconfig:"SERVER_PORT" default:"8000"`
	Host           string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LLMConfig selects the advisor's language model. Provider is one of openai, azure or gemini.
type LLMConfig struct {
	Provider       string        `envconfig:"LLM_PROVIDER" default:"openai"`
	APIKey         string        `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	APIEndpoint    string        `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1"`
	Model          string        `envconfig:"LLM_MODEL"`
	DeploymentName string        `envconfig:"OPENAI_DEPLOYMENT" default:"gpt-4o"`
	APIVersion     string        `envconfig:"OPENAI_API_VERSION" default:"2023-05-15"`
	MaxTokens      int64         `envconfig:"LLM_MAX_TOKENS" default:"1000"`
	Timeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

type AnalysisConfig struct {
	// 0 means one worker per CPU
	Workers     int    `envconfig:"ANALYSIS_WORKERS" default:"0"`
	DefaultSeed uint64 `envconfig:"ANALYSIS_DEFAULT_SEED" default:"42"`
}

type CacheConfig struct {
	// Empty disables the result cache
	RedisURL string        `envconfig:"REDIS_URL"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

type UploadConfig struct {
	MaxBytes    int64 `envconfig:"UPLOAD_MAX_BYTES" default:"33554432"`
	PreviewRows int   `envconfig:"UPLOAD_PREVIEW_ROWS" default:"5"`
}

var providers = []string{"openai", "azure", "gemini"}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %q", c.Server.Port)
	}
	if !slices.Contains(providers, c.LLM.Provider) {
		return fmt.Errorf("LLM_PROVIDER must be one of %v, got %q", providers, c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("ANALYSIS_WORKERS must not be negative, got %d", c.Analysis.Workers)
	}
	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.PreviewRows < 0 {
		return fmt.Errorf("UPLOAD_PREVIEW_ROWS must not be negative, got %d", c.Upload.PreviewRows)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Key returns the API key for the configured provider.
func (c LLMConfig) Key() string {
	if c.Provider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

// Enabled reports whether the advisor can reach a language model.
func (c LLMConfig) Enabled() bool {
	return c.Key() != ""
}
