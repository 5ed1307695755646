// Package classify assigns a document type label to a document.
//
// A document moves through the states
//
//	Unclassified -> LanguageChecked -> Translated | English -> Classified
//
// Text that is not in the default language (English unless configured with
// WithDefaultLanguage) is translated and the translation is recorded before
// the classification call, so it is kept even when classification fails. The
// English state means no translation was needed.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"claimassist/internal/language"
	"claimassist/internal/llm"
	"claimassist/internal/logger"
	"claimassist/internal/schema"
)

// State is the progress of one document through classification.
type State int

const (
	Unclassified State = iota
	LanguageChecked
	English
	Translated
	Classified
)

func (s State) String() string {
	switch s {
	case Unclassified:
		return "Unclassified"
	case LanguageChecked:
		return "LanguageChecked"
	case English:
		return "English"
	case Translated:
		return "Translated"
	case Classified:
		return "Classified"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Document is the text a classification is based on.
type Document struct {
	ID           string
	RawText      string
	TableText    string
	KeyValueText string
}

// Outcome is the result of classifying a document.
type Outcome struct {
	Label          schema.Label
	Language       language.Detection
	TranslatedText string // empty for English documents
	State          State
}

// Recorder stores a translation before classification proceeds.
type Recorder interface {
	RecordTranslation(ctx context.Context, docID, translatedText string, lang language.Detection) error
}

// Dispatcher classifies documents with a language model.
type Dispatcher struct {
	detector    language.Detector
	translator  language.Translator
	backend     llm.Backend
	recorder    Recorder
	defaultLang language.Detection
	log         zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultLanguage sets the language documents are classified in.
func WithDefaultLanguage(lang language.Detection) Option {
	return func(d *Dispatcher) {
		if lang.Code != "" {
			d.defaultLang = lang
		}
	}
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(detector language.Detector, translator language.Translator, backend llm.Backend, recorder Recorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		detector:    detector,
		translator:  translator,
		backend:     backend,
		recorder:    recorder,
		defaultLang: language.English,
		log:         logger.WithComponent("classify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the full state machine for doc. On error the returned
// Outcome reports the last state reached.
func (d *Dispatcher) Dispatch(ctx context.Context, doc Document) (Outcome, error) {
	const op = "classify.Dispatch"

	log := logger.WithDocument(d.log, doc.ID)
	out := Outcome{State: Unclassified}

	out.Language = d.detector.Detect(doc.RawText)
	out.State = LanguageChecked
	log.Debug().
		Str("language", out.Language.Code).
		Float64("language_confidence", out.Language.Confidence).
		Msg("Detected document language")

	rawText, tableText, kvText := doc.RawText, doc.TableText, doc.KeyValueText
	if out.Language.Is(d.defaultLang.Code) {
		out.State = English
	} else {
		translated, err := d.translator.Translate(ctx, doc.RawText, out.Language)
		if err != nil {
			return out, fmt.Errorf("%s: translate %s text: %w", op, out.Language.Name, err)
		}
		if d.recorder != nil {
			if err := d.recorder.RecordTranslation(ctx, doc.ID, translated, out.Language); err != nil {
				return out, fmt.Errorf("%s: record translation: %w", op, err)
			}
		}
		out.TranslatedText = translated
		out.State = Translated
		log.Info().
			Str("language", out.Language.Name).
			Str("target_language", d.defaultLang.Name).
			Msg("Document translated")

		// tables and key-values are not translated, so only the translation is sent
		rawText, tableText, kvText = translated, "", ""
	}

	label, err := d.Classify(ctx, rawText, tableText, kvText)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}
	out.Label = label
	out.State = Classified

	log.Info().Str("classification", label.String()).Msg("Document classified")
	return out, nil
}

// Classify asks the model for a label. The response must be a single JSON
// object; no recovery from surrounding prose is attempted.
func (d *Dispatcher) Classify(ctx context.Context, rawText, tableText, keyValueText string) (schema.Label, error) {
	const op = "classify.Classify"

	raw, err := d.backend.Invoke(ctx, BuildPrompt(rawText, tableText, keyValueText))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	d.log.Debug().Str("response", raw).Msg("Classification response")

	return ParseResponse(raw)
}

var errMissingType = errors.New(`response has no "classification_type"`)

// ParseResponse reads {"classification_type": "<label>"}. Labels outside the
// closed set map to Unidentified.
func ParseResponse(raw string) (schema.Label, error) {
	const op = "classify.ParseResponse"

	var resp struct {
		ClassificationType *string `json:"classification_type"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return "", llm.MalformedOutput(op, err)
	}
	if resp.ClassificationType == nil {
		return "", llm.MalformedOutput(op, errMissingType)
	}

	label, ok := schema.ParseLabel(*resp.ClassificationType)
	if !ok {
		return schema.Unidentified, nil
	}
	return label, nil
}
