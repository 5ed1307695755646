package scoring

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"claimassist/internal/entity"
	"claimassist/internal/llm"
	"claimassist/internal/logger"
)

// DefaultBatchSize is the number of fields scored per model call.
const DefaultBatchSize = 20

// BatchResult is the outcome of scoring one window of fields.
type BatchResult struct {
	Index  int
	Fields []entity.FieldDescriptor
	Scores entity.ScoreMap // nil when Err is set
	Err    error
}

// Requester asks a model backend to score located fields.
type Requester struct {
	backend     llm.Backend
	batchSize   int
	concurrency int
	log         zerolog.Logger
}

// RequesterOption configures a Requester.
type RequesterOption func(*Requester)

// WithBatchSize sets the window size. Values below 1 select DefaultBatchSize.
func WithBatchSize(n int) RequesterOption {
	return func(r *Requester) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight at once.
func WithConcurrency(n int) RequesterOption {
	return func(r *Requester) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRequester returns a requester that sends prompts to backend.
func NewRequester(backend llm.Backend, opts ...RequesterOption) *Requester {
	r := &Requester{
		backend:     backend,
		batchSize:   DefaultBatchSize,
		concurrency: 1,
		log:         logger.WithComponent("scoring"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Batches splits fields into consecutive windows of the configured size.
func (r *Requester) Batches(fields []entity.FieldDescriptor) [][]entity.FieldDescriptor {
	var out [][]entity.FieldDescriptor
	for start := 0; start < len(fields); start += r.batchSize {
		end := min(start+r.batchSize, len(fields))
		out = append(out, fields[start:end])
	}
	return out
}

// Score requests scores for every window. A failed window is reported in its
// BatchResult and does not stop the others. Results are in window order.
func (r *Requester) Score(ctx context.Context, text string, fields []entity.FieldDescriptor) []BatchResult {
	batches := r.Batches(fields)
	results := make([]BatchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = r.scoreBatch(ctx, i, text, batch)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Requester) scoreBatch(ctx context.Context, index int, text string, batch []entity.FieldDescriptor) BatchResult {
	const op = "scoring.scoreBatch"

	res := BatchResult{Index: index, Fields: batch}
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("%s: batch %d: %w", op, index+1, err)
		return res
	}

	raw, err := r.backend.Invoke(ctx, BuildPrompt(text, batch))
	if err != nil {
		res.Err = fmt.Errorf("%s: batch %d: %w", op, index+1, err)
		r.log.Warn().Err(err).Int("batch", index+1).Int("fields", len(batch)).Msg("Scoring batch failed, skipping")
		return res
	}

	scores, err := ParseScores(raw)
	if err != nil {
		res.Err = fmt.Errorf("%s: batch %d: %w", op, index+1, err)
		r.log.Warn().Err(err).Int("batch", index+1).Str("response", raw).Msg("Unparsable scoring response, skipping")
		return res
	}

	r.log.Debug().
		Int("batch", index+1).
		Int("fields", len(batch)).
		Int("scored", len(scores)).
		Msg("Scoring batch completed")

	res.Scores = scores
	return res
}

