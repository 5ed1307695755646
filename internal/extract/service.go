// Package extract turns a classified document into an extracted entity tree
// following the schema registered for its document type.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"claimassist/internal/entity"
	"claimassist/internal/llm"
	"claimassist/internal/logger"
	"claimassist/internal/schema"
)

// NotAvailable is the claim number reported when none was extracted.
const NotAvailable = "Not Available"

// Input is the document content extraction is based on.
type Input struct {
	DocID        string
	Label        schema.Label
	RawText      string
	TableText    string
	KeyValueText string
}

// Result is a validated extraction.
type Result struct {
	Tree        *entity.Tree
	Stats       entity.FieldStats
	ClaimNumber string
}

// Service extracts entities with a language model.
type Service struct {
	backend  llm.Backend
	registry *schema.Registry
	log      zerolog.Logger
}

// NewService creates an extraction service. A nil registry selects schema.Default().
func NewService(backend llm.Backend, registry *schema.Registry) *Service {
	if registry == nil {
		registry = schema.Default()
	}
	return &Service{
		backend:  backend,
		registry: registry,
		log:      logger.WithComponent("extract"),
	}
}

// Extract runs extraction for in. Unknown document types fail with
// schema.ErrUnsupportedClassification; output that is not a single JSON
// object matching the schema fails with llm.ErrMalformedOutput.
func (s *Service) Extract(ctx context.Context, in Input) (*Result, error) {
	const op = "extract.Extract"

	sch, err := s.registry.Lookup(in.Label)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := logger.WithDocument(s.log, in.DocID)
	prompt := BuildPrompt(sch, in)
	log.Debug().Str("classification", in.Label.String()).Int("prompt_length", len(prompt)).Msg("Requesting entity extraction")

	raw, err := s.backend.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data := []byte(strings.TrimSpace(raw))
	tree, err := entity.Parse(data)
	if err != nil {
		return nil, llm.MalformedOutput(op, err)
	}
	if err := sch.Validate(data); err != nil {
		return nil, llm.MalformedOutput(op, err)
	}

	res := &Result{
		Tree:        tree,
		Stats:       entity.Stats(tree),
		ClaimNumber: ClaimNumber(tree, sch.ClaimNumberFields),
	}

	log.Info().
		Int("total_keys", res.Stats.TotalKeys).
		Int("empty_keys", res.Stats.EmptyKeysCount).
		Str("empty_key_perc", res.Stats.EmptyKeyPerc).
		Str("claim_number", res.ClaimNumber).
		Msg("Entities extracted")

	return res, nil
}

// ClaimNumber returns the value of the last listed path that holds a usable
// value, or NotAvailable.
func ClaimNumber(t *entity.Tree, paths []string) string {
	claim := NotAvailable
	for _, p := range paths {
		n, ok := t.Lookup(p)
		if !ok {
			continue
		}
		leaf, ok := n.(*entity.Leaf)
		if !ok || entity.IsEmptyValue(leaf.Value) {
			continue
		}
		text, _ := leaf.Value.Scalar()
		claim = strings.TrimSpace(text)
	}
	return claim
}
