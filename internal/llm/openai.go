package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"claimassist/internal/logger"
)

// OpenAIConfig configures the converse backend.
type OpenAIConfig struct {
	APIKey      string
	Model       string // gpt-4o, gpt-4o-mini
	MaxTokens   int
	Temperature float32
	BaseURL     string
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIBackend serves the gpt model tag.
type OpenAIBackend struct {
	name   string
	config OpenAIConfig
	client chatCompleter
	log    zerolog.Logger
}

// NewOpenAIBackend creates the converse backend for the given model tag.
func NewOpenAIBackend(name string, config OpenAIConfig) (*OpenAIBackend, error) {
	const op = "llm.NewOpenAIBackend"

	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: OPENAI_API_KEY", op, ErrMissingAPIKey)
	}
	if config.Model == "" {
		config.Model = openai.GPT4o
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return NewOpenAIBackendWithClient(name, config, openai.NewClientWithConfig(clientConfig)), nil
}

// NewOpenAIBackendWithClient creates the backend around an existing client.
func NewOpenAIBackendWithClient(name string, config OpenAIConfig, client chatCompleter) *OpenAIBackend {
	return &OpenAIBackend{
		name:   name,
		config: config,
		client: client,
		log:    logger.WithComponent("llm").With().Str("backend", name).Logger(),
	}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return b.name }

// Invoke implements Backend.
func (b *OpenAIBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	const op = "openai.Invoke"

	b.log.Debug().
		Str("model", b.config.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending prompt")

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.config.Model,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", b.classify(op, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ModelError{Op: op, Backend: b.name, Err: ErrEmptyResponse}
	}

	content := resp.Choices[0].Message.Content
	b.log.Debug().
		Int("tokens_in", resp.Usage.PromptTokens).
		Int("tokens_out", resp.Usage.CompletionTokens).
		Int("response_length", len(content)).
		Msg("Received response")

	return content, nil
}

func (b *OpenAIBackend) classify(op string, err error) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return &ModelError{Op: op, Backend: b.name, Err: ctxErr}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && !retryableStatus(apiErr.HTTPStatusCode) {
		return NewRejectedError(op, b.name, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 && !retryableStatus(reqErr.HTTPStatusCode) {
		return NewRejectedError(op, b.name, err)
	}
	return NewTransportError(op, b.name, err)
}
