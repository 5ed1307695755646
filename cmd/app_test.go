package cmd

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimassist/internal/config"
	"claimassist/internal/llm"
)

func testConfig() *config.Config {
	return &config.Config{
		AnthropicHaikuModel:  "claude-3-5-haiku-latest",
		AnthropicSonnetModel: "claude-sonnet-4-5",
		OpenAIModel:          "gpt-4o",
		LLMMaxTokens:         1024,
		LLMMaxRetries:        2,
		LLMRetryBaseDelay:    time.Millisecond,
	}
}

func TestNewRouterRegistersConfiguredBackends(t *testing.T) {
	cfg := testConfig()
	cfg.AnthropicAPIKey = "test-anthropic"
	router, err := newRouter(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{llm.ModelHaiku, llm.ModelSonnet}, router.Names())

	cfg.OpenAIAPIKey = "test-openai"
	router, err = newRouter(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{llm.ModelGPT, llm.ModelHaiku, llm.ModelSonnet}, router.Names())
}

func TestNewRouterWithoutKeys(t *testing.T) {
	_, err := newRouter(testConfig())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestValidatePDFFile(t *testing.T) {
	log := testLogger()
	dir := t.TempDir()

	_, err := validatePDFFile(dir+"/missing.pdf", log)
	assert.ErrorContains(t, err, "not found")

	_, err = validatePDFFile(dir, log)
	assert.ErrorContains(t, err, "not a regular file")
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
