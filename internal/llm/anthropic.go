package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"claimassist/internal/logger"
)

// AnthropicConfig configures an Anthropic Messages backend.
type AnthropicConfig struct {
	APIKey      string
	Model       string // provider model id, e.g. claude-3-5-haiku-latest
	MaxTokens   int64
	Temperature float64
	BaseURL     string // optional override, used in tests
}

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicBackend serves the haiku and sonnet model tags.
type AnthropicBackend struct {
	name     string
	config   AnthropicConfig
	messages messageCreator
	log      zerolog.Logger
}

// NewAnthropicBackend creates a backend for the given model tag. SDK level
// retries are disabled so that WithRetry owns the retry policy.
func NewAnthropicBackend(name string, config AnthropicConfig) (*AnthropicBackend, error) {
	const op = "llm.NewAnthropicBackend"

	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: ANTHROPIC_API_KEY", op, ErrMissingAPIKey)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%s: model id for %q is empty", op, name)
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicBackend{
		name:     name,
		config:   config,
		messages: &client.Messages,
		log:      logger.WithComponent("llm").With().Str("backend", name).Logger(),
	}, nil
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return b.name }

// Invoke implements Backend.
func (b *AnthropicBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	const op = "anthropic.Invoke"

	b.log.Debug().
		Str("model", b.config.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending prompt")

	message, err := b.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.config.Model),
		MaxTokens:   b.config.MaxTokens,
		Temperature: anthropic.Float(b.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", b.classify(op, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &ModelError{Op: op, Backend: b.name, Err: ErrEmptyResponse}
	}

	b.log.Debug().
		Int64("tokens_in", message.Usage.InputTokens).
		Int64("tokens_out", message.Usage.OutputTokens).
		Int("response_length", text.Len()).
		Msg("Received response")

	return text.String(), nil
}

func (b *AnthropicBackend) classify(op string, err error) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return &ModelError{Op: op, Backend: b.name, Err: ctxErr}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && !retryableStatus(apiErr.StatusCode) {
		return NewRejectedError(op, b.name, err)
	}
	return NewTransportError(op, b.name, err)
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	return nil
}
