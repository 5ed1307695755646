// Package scoring assigns per-field confidence to an extracted entity tree and
// derives a weighted document-level score from it.
//
// Fields are located in the tree, sent to a model backend in windows of
// BatchSize, and the returned scores are written back onto the tree as
// integer percentage strings ("85%"). A window that fails is logged and left
// unscored; the rest of the run continues.
package scoring

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"claimassist/internal/entity"
	"claimassist/internal/logger"
	"claimassist/internal/schema"
)

// Result describes one scoring run.
type Result struct {
	Tree          *entity.Tree
	DocumentScore string // "NN%"
	Fields        int
	Scored        int
	FailedBatches int
}

// Service scores extracted entities.
type Service struct {
	requester *Requester
	registry  *schema.Registry
	log       zerolog.Logger
}

// NewService creates a scoring service.
func NewService(requester *Requester, registry *schema.Registry) *Service {
	if registry == nil {
		registry = schema.Default()
	}
	return &Service{
		requester: requester,
		registry:  registry,
		log:       logger.WithComponent("scoring"),
	}
}

// ExtractConfidence returns a copy of tree annotated with field confidences
// and the document score as a percentage string. tree is not modified.
func (s *Service) ExtractConfidence(ctx context.Context, text string, tree *entity.Tree, label schema.Label) (*entity.Tree, string, error) {
	res, err := s.Run(ctx, text, tree, label)
	if err != nil {
		return nil, "", err
	}
	return res.Tree, res.DocumentScore, nil
}

// Run scores tree and reports batch level detail.
func (s *Service) Run(ctx context.Context, text string, tree *entity.Tree, label schema.Label) (*Result, error) {
	const op = "scoring.Run"

	if tree == nil || tree.Root == nil {
		return nil, fmt.Errorf("%s: no extracted entities", op)
	}

	out := tree.Clone()
	fields := entity.Locate(out)
	res := &Result{Tree: out, Fields: len(fields)}

	if len(fields) > 0 {
		batches := s.requester.Score(ctx, text, fields)
		// each batch is applied with its own scores so a field name that
		// repeats across sections is only set from its own window
		for _, b := range batches {
			if b.Err != nil {
				res.FailedBatches++
				continue
			}
			res.Scored += entity.ApplyInPlace(out, b.Fields, b.Scores)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	score := Aggregate(out, s.registry.WeightsFor(label))
	res.DocumentScore = entity.FormatPercent(score)

	s.log.Info().
		Str("classification", label.String()).
		Int("fields", res.Fields).
		Int("scored", res.Scored).
		Int("failed_batches", res.FailedBatches).
		Str("document_score", res.DocumentScore).
		Msg("Confidence scoring completed")

	return res, nil
}
