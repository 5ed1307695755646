package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimassist/internal/llm"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.ConfidenceBatchSize)
	assert.Equal(t, 1, cfg.ConfidenceConcurrency)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, llm.ModelHaiku, cfg.ClassificationModel)
	assert.Equal(t, llm.ModelSonnet, cfg.ExtractionModel)
	assert.Equal(t, OCRDocumentAI, cfg.OCRProvider)
	assert.Equal(t, 5*time.Minute, cfg.QueueProcessTimeout)
	assert.Equal(t, "Dashboard", cfg.GoogleSheetWorksheet)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIDENCE_BATCH_SIZE", "5")
	t.Setenv("CONFIDENCE_CONCURRENCY", "3")
	t.Setenv("SCORING_MODEL", "gpt")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_RETRIES", "4")
	t.Setenv("LLM_RETRY_BASE_DELAY", "250ms")
	t.Setenv("QUEUE_POLL_INTERVAL", "5s")
	t.Setenv("OCR_PROVIDER", "vision")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ConfidenceBatchSize)
	assert.Equal(t, 3, cfg.ConfidenceConcurrency)
	assert.Equal(t, llm.ModelGPT, cfg.ScoringModel)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.QueuePollInterval)
	assert.Equal(t, OCRVision, cfg.OCRProvider)
	assert.Equal(t, "debug", cfg.GetLoggerConfig().Level)

	p := cfg.RetryPolicy()
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.BaseDelay)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CONFIDENCE_BATCH_SIZE", "0"},
		{"CONFIDENCE_BATCH_SIZE", "twenty"},
		{"CONFIDENCE_CONCURRENCY", "0"},
		{"LLM_TEMPERATURE", "1.5"},
		{"LLM_RETRY_BASE_DELAY", "soon"},
		{"EXTRACTION_MODEL", "llama"},
		{"OCR_PROVIDER", "textract"},
		{"QUEUE_WORKERS", "-1"},
		{"DEFAULT_LANGUAGE", "xx"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
