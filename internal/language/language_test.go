package language

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimassist/internal/llm"
)

func TestLinguaDetector(t *testing.T) {
	d := NewLinguaDetector("en")

	en := d.Detect("The employee injured his left ankle while lifting boxes in the warehouse on Monday morning.")
	assert.Equal(t, "en", en.Code)
	assert.Equal(t, "English", en.Name)
	assert.True(t, en.Is(EnglishCode))

	es := d.Detect("El trabajador sufrió una lesión en el tobillo izquierdo mientras levantaba cajas en el almacén.")
	assert.Equal(t, "es", es.Code)
	assert.Equal(t, "Spanish", es.Name)
	assert.False(t, es.Is(EnglishCode))
	assert.True(t, es.Is("ES"))
	assert.Greater(t, es.Confidence, 0.0)
}

func TestLinguaDetectorDefaultsOnEmptyText(t *testing.T) {
	assert.Equal(t, "en", NewLinguaDetector("en").Detect("   ").Code)
	assert.Equal(t, "es", NewLinguaDetector("ES").Detect("").Code)
	assert.Equal(t, "en", NewLinguaDetector("xx").Detect("").Code)
	assert.Equal(t, "Spanish", NewLinguaDetector("es").Default().Name)
}

func TestLookup(t *testing.T) {
	de, ok := Lookup("DE")
	require.True(t, ok)
	assert.Equal(t, Detection{Code: "de", Name: "German"}, de)

	_, ok = Lookup("xx")
	assert.False(t, ok)
}

func TestModelTranslatorTarget(t *testing.T) {
	var prompt string
	backend := llm.BackendFunc{ModelName: "fake", Fn: func(_ context.Context, p string) (string, error) {
		prompt = p
		return "El trabajador se lastimó el tobillo.", nil
	}}
	spanish, _ := Lookup("es")
	tr := NewModelTranslator(backend, WithTarget(spanish))

	got, err := tr.Translate(context.Background(), "hola", spanish)
	require.NoError(t, err)
	assert.Equal(t, "hola", got)
	assert.Empty(t, prompt, "text already in the target language is not translated")

	_, err = tr.Translate(context.Background(), "The worker hurt his ankle.", English)
	require.NoError(t, err)
	assert.Contains(t, prompt, "English document from a workers' compensation claim into Spanish.")
}

func TestModelTranslator(t *testing.T) {
	var prompt string
	backend := llm.BackendFunc{ModelName: "fake", Fn: func(_ context.Context, p string) (string, error) {
		prompt = p
		return "  The worker hurt his ankle.\n", nil
	}}
	tr := NewModelTranslator(backend)

	got, err := tr.Translate(context.Background(), "El trabajador se lastimó el tobillo.", Detection{Code: "es", Name: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, "The worker hurt his ankle.", got)
	assert.Contains(t, prompt, "Spanish document")
	assert.True(t, strings.Contains(prompt, "<document>\nEl trabajador se lastimó el tobillo.\n</document>"))
}

func TestModelTranslatorPassesEnglishThrough(t *testing.T) {
	backend := llm.BackendFunc{ModelName: "fake", Fn: func(context.Context, string) (string, error) {
		return "", errors.New("must not be called")
	}}

	got, err := NewModelTranslator(backend).Translate(context.Background(), "hello", Detection{Code: "en"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestModelTranslatorRejectsEmptyOutput(t *testing.T) {
	backend := llm.BackendFunc{ModelName: "fake", Fn: func(context.Context, string) (string, error) { return " ", nil }}

	_, err := NewModelTranslator(backend).Translate(context.Background(), "hola", Detection{Code: "es", Name: "Spanish"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
