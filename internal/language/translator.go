package language

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"claimassist/internal/llm"
	"claimassist/internal/logger"
)

// Translator renders text in the pipeline's default language.
type Translator interface {
	Translate(ctx context.Context, text string, from Detection) (string, error)
}

// ModelTranslator translates with a language model.
type ModelTranslator struct {
	backend llm.Backend
	target  Detection
	log     zerolog.Logger
}

// TranslatorOption configures a ModelTranslator.
type TranslatorOption func(*ModelTranslator)

// WithTarget sets the language text is translated into. English by default.
func WithTarget(target Detection) TranslatorOption {
	return func(t *ModelTranslator) {
		if target.Code != "" {
			t.target = target
		}
	}
}

// NewModelTranslator returns a translator that prompts backend.
func NewModelTranslator(backend llm.Backend, opts ...TranslatorOption) *ModelTranslator {
	t := &ModelTranslator{
		backend: backend,
		target:  English,
		log:     logger.WithComponent("translator"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate implements Translator.
func (t *ModelTranslator) Translate(ctx context.Context, text string, from Detection) (string, error) {
	const op = "language.Translate"

	if from.Is(t.target.Code) {
		return text, nil
	}

	t.log.Debug().
		Str("source_language", from.Code).
		Str("target_language", t.target.Code).
		Int("text_length", len(text)).
		Msg("Translating document text")

	out, err := t.backend.Invoke(ctx, translationPrompt(text, from, t.target))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s: %w", op, llm.ErrEmptyResponse)
	}
	return out, nil
}

func translationPrompt(text string, from, to Detection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s document from a workers' compensation claim into %s.\n", from.Name, to.Name)
	b.WriteString("Keep names, identifiers, numbers, codes and dates exactly as written.\n")
	b.WriteString("Preserve the line structure. Return only the translated text, with no preamble or notes.\n\n")
	b.WriteString("<document>\n")
	b.WriteString(text)
	b.WriteString("\n</document>")
	return b.String()
}
