package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"claimassist/internal/language"
	"claimassist/internal/llm"
	"claimassist/internal/logger"
)

// OCR providers.
const (
	OCRDocumentAI = "documentai"
	OCRVision     = "vision"
)

type Config struct {
	// Model backends
	AnthropicAPIKey      string
	AnthropicHaikuModel  string
	AnthropicSonnetModel string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string

	// Backend selection per stage, one of haiku, sonnet, gpt
	ClassificationModel string
	ExtractionModel     string
	ScoringModel        string
	TranslationModel    string

	LLMMaxTokens      int
	LLMTemperature    float64
	LLMMaxRetries     int
	LLMRetryBaseDelay time.Duration

	// Confidence scoring
	ConfidenceBatchSize   int
	ConfidenceConcurrency int

	// Language
	DefaultLanguage string

	// Storage and queue
	DatabasePath           string
	QueueWorkers           int
	QueuePollInterval      time.Duration
	QueueProcessTimeout    time.Duration
	QueueVisibilityTimeout time.Duration

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string
	OCRProvider                string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	var env envReader

	config := &Config{
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicHaikuModel:  getEnv("ANTHROPIC_HAIKU_MODEL", "claude-3-5-haiku-latest"),
		AnthropicSonnetModel: getEnv("ANTHROPIC_SONNET_MODEL", "claude-sonnet-4-5"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),

		ClassificationModel: getEnv("CLASSIFICATION_MODEL", llm.ModelHaiku),
		ExtractionModel:     getEnv("EXTRACTION_MODEL", llm.ModelSonnet),
		ScoringModel:        getEnv("SCORING_MODEL", llm.ModelHaiku),
		TranslationModel:    getEnv("TRANSLATION_MODEL", llm.ModelHaiku),

		LLMMaxTokens:      env.getEnvInt("LLM_MAX_TOKENS", 4096),
		LLMTemperature:    env.getEnvFloat("LLM_TEMPERATURE", 0),
		LLMMaxRetries:     env.getEnvInt("LLM_MAX_RETRIES", 3),
		LLMRetryBaseDelay: env.getEnvDuration("LLM_RETRY_BASE_DELAY", time.Second),

		ConfidenceBatchSize:   env.getEnvInt("CONFIDENCE_BATCH_SIZE", 20),
		ConfidenceConcurrency: env.getEnvInt("CONFIDENCE_CONCURRENCY", 1),

		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),

		DatabasePath:           getEnv("DATABASE_PATH", "claimassist.db"),
		QueueWorkers:           env.getEnvInt("QUEUE_WORKERS", 4),
		QueuePollInterval:      env.getEnvDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
		QueueProcessTimeout:    env.getEnvDuration("QUEUE_PROCESS_TIMEOUT", 5*time.Minute),
		QueueVisibilityTimeout: env.getEnvDuration("QUEUE_VISIBILITY_TIMEOUT", 15*time.Minute),

		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		OCRProvider:                getEnv("OCR_PROVIDER", OCRDocumentAI),

		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Dashboard"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	for key, model := range map[string]string{
		"CLASSIFICATION_MODEL": c.ClassificationModel,
		"EXTRACTION_MODEL":     c.ExtractionModel,
		"SCORING_MODEL":        c.ScoringModel,
		"TRANSLATION_MODEL":    c.TranslationModel,
	} {
		switch model {
		case llm.ModelHaiku, llm.ModelSonnet, llm.ModelGPT:
		default:
			return fmt.Errorf("%s must be one of %s, %s, %s, got %q", key, llm.ModelHaiku, llm.ModelSonnet, llm.ModelGPT, model)
		}
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 1 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 1")
	}
	if c.LLMMaxRetries < 1 {
		return fmt.Errorf("LLM_MAX_RETRIES must be at least 1")
	}
	if c.ConfidenceBatchSize < 1 {
		return fmt.Errorf("CONFIDENCE_BATCH_SIZE must be at least 1")
	}
	if c.ConfidenceConcurrency < 1 {
		return fmt.Errorf("CONFIDENCE_CONCURRENCY must be at least 1")
	}
	if c.QueueWorkers < 1 {
		return fmt.Errorf("QUEUE_WORKERS must be at least 1")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if _, ok := language.Lookup(c.DefaultLanguage); !ok {
		return fmt.Errorf("DEFAULT_LANGUAGE %q is not a supported ISO 639-1 code", c.DefaultLanguage)
	}
	if c.OCRProvider != OCRDocumentAI && c.OCRProvider != OCRVision {
		return fmt.Errorf("OCR_PROVIDER must be %s or %s, got %q", OCRDocumentAI, OCRVision, c.OCRProvider)
	}
	return nil
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

// RetryPolicy returns the model retry policy.
func (c *Config) RetryPolicy() llm.RetryPolicy {
	p := llm.DefaultRetryPolicy()
	p.MaxAttempts = c.LLMMaxRetries
	p.BaseDelay = c.LLMRetryBaseDelay
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and remembers what failed to parse.
type envReader struct {
	errs []error
}

func (r *envReader) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, value))
		return defaultValue
	}
	return n
}

func (r *envReader) getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, value))
		return defaultValue
	}
	return f
}

func (r *envReader) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, value))
		return defaultValue
	}
	return d
}
