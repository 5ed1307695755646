package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimassist/internal/store"
)

func setupTestQueue(t *testing.T) *Queue {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	q, err := New(context.Background(), s.DB(), time.Minute)
	require.NoError(t, err)
	return q
}

func TestEnqueueFillsDefaults(t *testing.T) {
	q := setupTestQueue(t)

	msg, err := q.Enqueue(context.Background(), Message{Stage: StageClassification, DocID: "doc-1", FileRef: "claim.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, DefaultSource, msg.Source)
	assert.False(t, msg.EnqueuedAt.IsZero())
}

func TestEnqueueValidates(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Message{Stage: "ocr", DocID: "doc-1"})
	assert.Error(t, err)

	_, err = q.Enqueue(ctx, Message{Stage: StageExtraction})
	assert.Error(t, err)
}

func TestReceiveIsFIFO(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, Message{Stage: StageClassification, DocID: id, Source: "Email"})
		require.NoError(t, err)
	}

	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, msg.DocID)
		assert.Equal(t, "Email", msg.Source)
		assert.Equal(t, StageClassification, msg.Stage)
		assert.Equal(t, 1, msg.ReceiveCount)
	}

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestAckAndFailAreTerminal(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Message{Stage: StageExtraction, DocID: "a"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Message{Stage: StageExtraction, DocID: "b"})
	require.NoError(t, err)

	first, err := q.Receive(ctx)
	require.NoError(t, err)
	second, err := q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Ack(ctx, first.ID))
	require.NoError(t, q.Fail(ctx, second.ID, errors.New("boom")))

	assert.ErrorIs(t, q.Ack(ctx, first.ID), ErrUnknownMessage)

	// past any lease, neither comes back
	q.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{statusDone: 1, statusFailed: 1}, counts)
}

func TestExpiredLeaseIsRedelivered(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Message{Stage: StageConfidence, DocID: "a"})
	require.NoError(t, err)

	msg, err := q.Receive(ctx)
	require.NoError(t, err)

	_, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	q.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	again, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID)
	assert.Equal(t, 2, again.ReceiveCount)
}

func TestStageNext(t *testing.T) {
	assert.Equal(t, StageExtraction, StageClassification.Next())
	assert.Equal(t, StageConfidence, StageExtraction.Next())
	assert.Equal(t, Stage(""), StageConfidence.Next())
}

func TestFollowUpKeepsDocumentFields(t *testing.T) {
	m := Message{ID: "x", Stage: StageClassification, DocID: "d", FileRef: "f", IndexID: "i", Source: "s"}
	next := m.FollowUp(StageExtraction)
	assert.Equal(t, Message{Stage: StageExtraction, DocID: "d", FileRef: "f", IndexID: "i", Source: "s"}, next)
}

func TestWorkerAcksAndFails(t *testing.T) {
	q := setupTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"ok-1", "bad", "ok-2"} {
		_, err := q.Enqueue(ctx, Message{Stage: StageClassification, DocID: id})
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	handler := HandlerFunc(func(ctx context.Context, msg Message) error {
		mu.Lock()
		seen = append(seen, msg.DocID)
		mu.Unlock()
		if msg.DocID == "bad" {
			return errors.New("stage failed")
		}
		return nil
	})

	w := NewWorker(q, handler, WithWorkers(2), WithPollInterval(10*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		counts, err := q.Counts(context.Background())
		return err == nil && counts[statusDone] == 2 && counts[statusFailed] == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"ok-1", "bad", "ok-2"}, seen)
}

func TestWorkerProcessTimeout(t *testing.T) {
	q := setupTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := q.Enqueue(ctx, Message{Stage: StageExtraction, DocID: "slow"})
	require.NoError(t, err)

	handler := HandlerFunc(func(ctx context.Context, msg Message) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w := NewWorker(q, handler, WithWorkers(1), WithPollInterval(10*time.Millisecond), WithProcessTimeout(50*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		counts, err := q.Counts(context.Background())
		return err == nil && counts[statusFailed] == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
