// Package queue hands documents from one pipeline stage to the next.
//
// Messages live in a SQLite table shared with the record store. A received
// message is leased to its consumer; it is acknowledged on success and marked
// failed on error. Failed messages are never redelivered. A lease that
// expires without an acknowledgement makes the message visible again.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEmpty is returned by Receive when no message is ready.
var ErrEmpty = errors.New("queue is empty")

// ErrUnknownMessage is returned when acknowledging a message that is not in flight.
var ErrUnknownMessage = errors.New("message not in flight")

const (
	statusPending  = "pending"
	statusInFlight = "in_flight"
	statusDone     = "done"
	statusFailed   = "failed"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const queueSchema = `
CREATE TABLE IF NOT EXISTS queue_messages (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	stage         TEXT NOT NULL,
	doc_id        TEXT NOT NULL,
	file_ref      TEXT NOT NULL DEFAULT '',
	index_id      TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	enqueued_at   TEXT NOT NULL,
	lease_until   TEXT NOT NULL DEFAULT '',
	receive_count INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_queue_messages_status ON queue_messages(status, seq);
`

// Queue is a durable stage queue.
type Queue struct {
	db         *sql.DB
	visibility time.Duration
	now        func() time.Time
}

// DefaultVisibility is how long a received message stays leased.
const DefaultVisibility = 15 * time.Minute

// New creates the queue table on db if needed.
func New(ctx context.Context, db *sql.DB, visibility time.Duration) (*Queue, error) {
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	if _, err := db.ExecContext(ctx, queueSchema); err != nil {
		return nil, fmt.Errorf("queue.New: init schema: %w", err)
	}
	return &Queue{db: db, visibility: visibility, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Enqueue stores msg and returns it with its id, source and timestamp filled in.
func (q *Queue) Enqueue(ctx context.Context, msg Message) (Message, error) {
	const op = "queue.Enqueue"

	if err := msg.validate(); err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Source == "" {
		msg.Source = DefaultSource
	}
	msg.EnqueuedAt = q.now()
	msg.ReceiveCount = 0

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queue_messages (id, stage, doc_id, file_ref, index_id, source, status, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, string(msg.Stage), msg.DocID, msg.FileRef, msg.IndexID, msg.Source, statusPending,
		msg.EnqueuedAt.Format(timeLayout),
	)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// Receive leases the oldest ready message. It returns ErrEmpty when there is none.
func (q *Queue) Receive(ctx context.Context) (*Message, error) {
	const op = "queue.Receive"

	now := q.now()
	row := q.db.QueryRowContext(ctx, `
		UPDATE queue_messages
		SET status = ?, lease_until = ?, receive_count = receive_count + 1
		WHERE seq = (
			SELECT seq FROM queue_messages
			WHERE status = ? OR (status = ? AND lease_until < ?)
			ORDER BY seq
			LIMIT 1
		)
		RETURNING id, stage, doc_id, file_ref, index_id, source, enqueued_at, receive_count`,
		statusInFlight, now.Add(q.visibility).Format(timeLayout),
		statusPending, statusInFlight, now.Format(timeLayout),
	)

	var (
		msg      Message
		stage    string
		enqueued string
	)
	err := row.Scan(&msg.ID, &stage, &msg.DocID, &msg.FileRef, &msg.IndexID, &msg.Source, &enqueued, &msg.ReceiveCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msg.Stage = Stage(stage)
	if msg.EnqueuedAt, err = time.Parse(timeLayout, enqueued); err != nil {
		return nil, fmt.Errorf("%s: decode enqueued_at: %w", op, err)
	}
	return &msg, nil
}

// Ack marks an in-flight message as done.
func (q *Queue) Ack(ctx context.Context, id string) error {
	return q.finish(ctx, "queue.Ack", id, statusDone, "")
}

// Fail marks an in-flight message as failed. It will not be delivered again.
func (q *Queue) Fail(ctx context.Context, id string, reason error) error {
	msg := ""
	if reason != nil {
		msg = reason.Error()
	}
	return q.finish(ctx, "queue.Fail", id, statusFailed, msg)
}

func (q *Queue) finish(ctx context.Context, op, id, status, lastError string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE queue_messages SET status = ?, last_error = ?, lease_until = '' WHERE id = ? AND status = ?`,
		status, lastError, id, statusInFlight,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: %s", op, ErrUnknownMessage, id)
	}
	return nil
}

// Counts reports how many messages are in each status.
func (q *Queue) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue.Counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("queue.Counts: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
