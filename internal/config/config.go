package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"invoicer/internal/logger"
)

type Config struct {
	// Storage Configuration
	DBDriver  string `envconfig:"INVOICER_DB_DRIVER" default:"sqlite"`
	DBDSN     string `envconfig:"INVOICER_DB_DSN" default:"invoicer.db"`
	OutputDir string `envconfig:"INVOICER_OUTPUT_DIR" default:"."`

	// Google Cloud Configuration
	GoogleCloudProject         string `envconfig:"GOOGLE_CLOUD_PROJECT"`
	GoogleCloudLocation        string `envconfig:"GOOGLE_CLOUD_LOCATION" default:"us"`
	DocumentAIProcessorID      string `envconfig:"DOCUMENT_AI_PROCESSOR_ID"`
	DocumentAIProcessorVersion string `envconfig:"DOCUMENT_AI_PROCESSOR_VERSION"`
	GoogleCredentialsFile      string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleCredentialsJSON      string `envconfig:"GOOGLE_CREDENTIALS"`

	// Google Sheets Configuration
	GoogleSheetURL       string `envconfig:"GOOGLE_SHEET_URL"`
	GoogleSheetWorksheet string `envconfig:"GOOGLE_SHEET_WORKSHEET" default:"Invoices"`

	// OpenAI Configuration
	OpenAIAPIKey      string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITemperature float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.1"`
	CompletionRetries int     `envconfig:"COMPLETION_MAX_RETRIES" default:"3"`

	// Import Configuration
	ImportTimeout time.Duration `envconfig:"IMPORT_TIMEOUT" default:"120s"`

	// Logging Configuration
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"console"`
	LogTimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02T15:04:05Z07:00"`
	LogOutput     string `envconfig:"LOG_OUTPUT" default:"stderr"`
}

func Load() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}

	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("INVOICER_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("INVOICER_DB_DSN is required")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

// RequireDocumentAI checks the settings the import command needs.
func (c *Config) RequireDocumentAI() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// RequireSheets checks the settings the sheets export needs.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is required")
	}
	return nil
}

// CompletionEnabled reports whether OCR + OpenAI completion can run.
func (c *Config) CompletionEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
