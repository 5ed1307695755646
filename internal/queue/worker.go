package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"claimassist/internal/logger"
)

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Source is the part of Queue a Worker consumes.
type Source interface {
	Receive(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, reason error) error
}

// Worker polls a queue and runs messages through a handler on a fixed pool
// of goroutines.
type Worker struct {
	source  Source
	handler Handler
	log     zerolog.Logger

	workers int
	poll    time.Duration
	timeout time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithWorkers sets the number of concurrent handlers.
func WithWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithPollInterval sets how long to wait after finding the queue empty.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithProcessTimeout bounds the time one message may take.
func WithProcessTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// NewWorker creates a worker pool.
func NewWorker(source Source, handler Handler, opts ...Option) *Worker {
	w := &Worker{
		source:  source,
		handler: handler,
		log:     logger.WithComponent("worker"),
		workers: 4,
		poll:    2 * time.Second,
		timeout: 5 * time.Minute,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run polls until ctx is cancelled, then lets in-flight messages finish and
// returns. Messages already handed to a handler are not interrupted by ctx;
// only the process timeout bounds them.
func (w *Worker) Run(ctx context.Context) error {
	jobs := make(chan Message)
	var wg sync.WaitGroup

	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.log.Info().Int("worker_id", workerID).Msg("Worker started")
			for msg := range jobs {
				w.process(workerID, msg)
			}
			w.log.Info().Int("worker_id", workerID).Msg("Worker stopped")
		}(i + 1)
	}

	err := w.pollLoop(ctx, jobs)
	close(jobs)
	wg.Wait()
	w.log.Info().Msg("Queue drained, shutdown complete")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) pollLoop(ctx context.Context, jobs chan<- Message) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := w.source.Receive(ctx)
		switch {
		case errors.Is(err, ErrEmpty):
			if err := sleep(ctx, w.poll); err != nil {
				return err
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("Receive failed")
			if err := sleep(ctx, w.poll); err != nil {
				return err
			}
			continue
		}

		select {
		case jobs <- *msg:
		case <-ctx.Done():
			// leased but never started: the lease expiry makes it visible again
			w.log.Warn().Str("message_id", msg.ID).Msg("Shutdown before message was handled")
			return ctx.Err()
		}
	}
}

func (w *Worker) process(workerID int, msg Message) {
	log := logger.WithDocument(w.log, msg.DocID).With().
		Int("worker_id", workerID).
		Str("message_id", msg.ID).
		Str("stage", string(msg.Stage)).
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	err := w.handler.Handle(ctx, msg)
	cancel()

	// bookkeeping gets its own short deadline so a timed out handler can still be recorded
	bctx, bcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer bcancel()

	if err != nil {
		log.Error().Err(err).Msg("Processing failed")
		if ferr := w.source.Fail(bctx, msg.ID, err); ferr != nil {
			log.Error().Err(ferr).Msg("Could not mark message failed")
		}
		return
	}
	if aerr := w.source.Ack(bctx, msg.ID); aerr != nil {
		log.Error().Err(aerr).Msg("Could not acknowledge message")
		return
	}
	log.Info().Msg("Processed message successfully")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
