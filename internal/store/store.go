// Package store keeps one record per document in SQLite. Every pipeline stage
// reads the record it needs and writes its results back with Persist.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no record exists for a document id.
	ErrNotFound = errors.New("document not found")

	// ErrUnknownField is returned when Persist is given a column it does not manage.
	ErrUnknownField = errors.New("unknown document field")
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the document record store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	const op = "store.Open"

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: open database: %w", op, err)
	}
	// a single connection serialises writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %s: %w", op, pragma, err)
		}
	}

	s := New(db)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// New wraps an open database. Call InitSchema before use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// InitSchema creates the documents table if needed.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// DB exposes the underlying database so the queue can share it.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Persist creates or updates the record for docID, touching only the columns
// named in fields. Concurrent writers to the same record: last write wins.
func (s *Store) Persist(ctx context.Context, docID string, fields Fields) error {
	const op = "store.Persist"

	if strings.TrimSpace(docID) == "" {
		return fmt.Errorf("%s: empty document id", op)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	now := s.now().Format(timeLayout)
	cols := []string{"doc_id", "created_at", "updated_at"}
	args := []any{docID, now, now}
	sets := []string{"updated_at = excluded.updated_at"}

	for _, name := range names {
		v, err := columnValue(name, fields[name])
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		cols = append(cols, name)
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", name, name))
	}

	query := fmt.Sprintf(
		"INSERT INTO documents (%s) VALUES (%s) ON CONFLICT(doc_id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(sets, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: upsert %s: %w", op, docID, err)
	}
	return nil
}

func columnValue(name string, v any) (any, error) {
	kind, ok := columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	switch kind {
	case kindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindInt:
		if n, ok := v.(int); ok {
			return n, nil
		}
	case kindList:
		if l, ok := v.([]string); ok {
			if l == nil {
				l = []string{}
			}
			b, err := json.Marshal(l)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
	}
	return nil, fmt.Errorf("field %q: unexpected value type %T", name, v)
}

const selectColumns = `doc_id, index_id, document_name, file_ref, doc_source, raw_text, table_text,
	key_values_text, translated_text, doc_language, classification, extracted_entities,
	total_keys, empty_keys_count, empty_keys, empty_key_perc, document_conf_score, gw_claim_id,
	mark_for_review, extraction_status, classification_status, entity_extraction_status,
	confidence_score_status, doc_status, failure_reason, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		d                Document
		emptyKeys        string
		created, updated string
	)
	err := row.Scan(
		&d.DocID, &d.IndexID, &d.DocumentName, &d.FileRef, &d.DocSource, &d.RawText, &d.TableText,
		&d.KeyValuesText, &d.TranslatedText, &d.DocLanguage, &d.Classification, &d.ExtractedEntities,
		&d.TotalKeys, &d.EmptyKeysCount, &emptyKeys, &d.EmptyKeyPerc, &d.DocumentConfScore, &d.GWClaimID,
		&d.MarkForReview, &d.ExtractionStatus, &d.ClassificationStatus, &d.EntityExtractionStatus,
		&d.ConfidenceScoreStatus, &d.DocStatus, &d.FailureReason, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(emptyKeys), &d.EmptyKeys); err != nil {
		return nil, fmt.Errorf("decode empty_keys: %w", err)
	}
	if d.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &d, nil
}

// Get returns the record for docID.
func (s *Store) Get(ctx context.Context, docID string) (*Document, error) {
	const op = "store.Get"

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM documents WHERE doc_id = ?", docID)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

// ListOptions filters List.
type ListOptions struct {
	DocStatus string // empty for all
	Limit     int    // 0 for no limit
}

// List returns records, most recently updated first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Document, error) {
	const op = "store.List"

	query := "SELECT " + selectColumns + " FROM documents"
	var args []any
	if opts.DocStatus != "" {
		query += " WHERE doc_status = ?"
		args = append(args, opts.DocStatus)
	}
	query += " ORDER BY updated_at DESC, doc_id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}
