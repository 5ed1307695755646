package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimassist/internal/entity"
	"claimassist/internal/llm"
	"claimassist/internal/schema"
)

func backend(resp string, prompt *string) llm.Backend {
	return llm.BackendFunc{ModelName: llm.ModelHaiku, Fn: func(_ context.Context, p string) (string, error) {
		if prompt != nil {
			*prompt = p
		}
		return resp, nil
	}}
}

func TestExtract(t *testing.T) {
	var prompt string
	svc := NewService(backend(`
		{"claim_details_section": {
			"employee_name": {"value": "Jane Doe", "confidence": 0.95},
			"claim_administrator_claim_number": {"value": "WC-1234", "confidence": 0.9},
			"date_of_injury": {"value": "EMPTY", "confidence": 0.1}
		}}`, &prompt), nil)

	res, err := svc.Extract(context.Background(), Input{
		DocID:        "doc-1",
		Label:        schema.ClaimForm,
		RawText:      "Employee Jane Doe, claim WC-1234",
		TableText:    "",
		KeyValueText: "Claim Number: WC-1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "WC-1234", res.ClaimNumber)
	assert.Equal(t, 3, res.Stats.TotalKeys)
	assert.Equal(t, []string{"claim_details_section.date_of_injury"}, res.Stats.EmptyKeys)
	assert.Equal(t, "33%", res.Stats.EmptyKeyPerc)
	assert.Equal(t, []string{"claim_details_section"}, res.Tree.Root.Keys())

	assert.Contains(t, prompt, "workers' compensation ClaimForm documents")
	assert.Contains(t, prompt, "<raw_text>Employee Jane Doe, claim WC-1234</raw_text>")
	assert.Contains(t, prompt, "<key_value_pair_data>Claim Number: WC-1234</key_value_pair_data>")
	assert.Contains(t, prompt, `"claim_administrator_claim_number": {`)
	assert.Contains(t, prompt, `Use "EMPTY"`)
	assert.NotContains(t, prompt, "Answer the following questions")
}

func TestExtractLegalUsesPersonaAndQuestions(t *testing.T) {
	var prompt string
	svc := NewService(backend(`{"legal_section":{"case_number":{"value":"CV-9"}}}`, &prompt), nil)

	res, err := svc.Extract(context.Background(), Input{DocID: "doc-2", Label: schema.Legal, RawText: "Summons"})
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, res.ClaimNumber)

	assert.Contains(t, prompt, "United States county and federal legal matters")
	assert.Contains(t, prompt, "1. What is the case number?")
	assert.Contains(t, prompt, "'Federal', 'County'")
}

func TestExtractUnsupportedClassification(t *testing.T) {
	called := false
	b := llm.BackendFunc{ModelName: "fake", Fn: func(context.Context, string) (string, error) {
		called = true
		return "{}", nil
	}}

	_, err := NewService(b, nil).Extract(context.Background(), Input{Label: schema.Unidentified})
	assert.ErrorIs(t, err, schema.ErrUnsupportedClassification)
	assert.False(t, llm.IsRetryable(err))
	assert.False(t, called)
}

func TestExtractRejectsMalformedOutput(t *testing.T) {
	for name, resp := range map[string]string{
		"prose":        `Here is the JSON: {"prescription_section":{}}`,
		"fenced":       "```json\n{\"prescription_section\":{}}\n```",
		"array":        `[{"prescription_section":{}}]`,
		"schema":       `{"prescription_section":{"name":"Ibuprofen"}}`,
		"wrong shape":  `{"prescription_section":[]}`,
		"empty string": ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewService(backend(resp, nil), nil).Extract(context.Background(), Input{Label: schema.Prescription})
			assert.ErrorIs(t, err, llm.ErrMalformedOutput)
		})
	}
}

func TestExtractPropagatesBackendErrors(t *testing.T) {
	b := llm.BackendFunc{ModelName: "fake", Fn: func(context.Context, string) (string, error) {
		return "", llm.NewTransportError("invoke", "fake", errors.New("503"))
	}}

	_, err := NewService(b, nil).Extract(context.Background(), Input{Label: schema.Prescription})
	assert.True(t, llm.IsRetryable(err))
}

func TestClaimNumber(t *testing.T) {
	tree, err := entity.Parse([]byte(`{
		"a":{"claim":{"value":"A-1"}},
		"b":{"claim":{"value":"EMPTY"}},
		"c":{"claim":{"value":{"current_value":"C-3","previous_value":"C-2"}}},
		"d":{"claim":{"value":"  "}}}`))
	require.NoError(t, err)

	assert.Equal(t, "A-1", ClaimNumber(tree, []string{"a.claim", "b.claim"}))
	assert.Equal(t, "C-3", ClaimNumber(tree, []string{"a.claim", "c.claim", "d.claim"}))
	assert.Equal(t, NotAvailable, ClaimNumber(tree, []string{"b.claim", "d.claim", "missing.claim"}))
	assert.Equal(t, NotAvailable, ClaimNumber(tree, nil))
}
