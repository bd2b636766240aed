// Package queue provides the gateway's message queues: outbound publishes
// from queue-typed routing links and inbound event queues feeding the
// decision and error forwarding flows. Messages live in a SQLite store with
// at-least-once delivery, attempt counting, and a dead-letter state that the
// admin surface can list, redrive, drain, or prune one message at a time.
package queue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound indicates the requested message does not exist.
var ErrNotFound = errors.New("queue: message not found")

// Message is one queued payload. ResourceID carries the business identity
// (MRN) used for idempotent reprocessing after redrive.
type Message struct {
	ID         string
	Queue      string
	Body       string
	ResourceID string
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

// Store wraps a SQLite connection pool with migration metadata.
type Store struct {
	db *sql.DB
}

// Open establishes the SQLite connection, applies migrations, and enables
// the pragmas the queue workload needs.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer; keep pool disciplined.

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := recoverInflight(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// recoverInflight returns claimed messages to ready. The store is
// single-process, so any inflight row at open time belongs to a consumer
// that died before completing or failing it.
func recoverInflight(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE messages SET state = 'ready', updated_at = CURRENT_TIMESTAMP WHERE state = 'inflight'`); err != nil {
		return fmt.Errorf("recover inflight messages: %w", err)
	}
	return nil
}

// Close shuts down the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Publish appends a message to a queue and returns its id.
func (s *Store) Publish(ctx context.Context, queue, body, resourceID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, queue, body, resource_id, state) VALUES (?, ?, ?, ?, 'ready')`,
		id, queue, body, resourceID)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", queue, err)
	}
	return id, nil
}

// Receive claims the oldest ready message on a queue, or returns nil when
// the queue is empty. A claimed message stays invisible until completed or
// failed.
func (s *Store) Receive(ctx context.Context, queue string) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT id, queue, body, resource_id, attempts, last_error, enqueued_at
		 FROM messages WHERE queue = ? AND state = 'ready'
		 ORDER BY enqueued_at, id LIMIT 1`, queue)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET state = 'inflight', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		msg.ID); err != nil {
		return nil, fmt.Errorf("claim message %s: %w", msg.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return msg, nil
}

// Complete removes a successfully processed message.
func (s *Store) Complete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete message %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// Fail records a processing failure. The message returns to ready for
// another attempt, or moves to the dead-letter state once maxAttempts is
// reached; the return value reports a dead-letter transition.
func (s *Store) Fail(ctx context.Context, id, lastError string, maxAttempts int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var attempts int
	if err := tx.QueryRowContext(ctx, `SELECT attempts FROM messages WHERE id = ?`, id).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return false, fmt.Errorf("load message %s: %w", id, err)
	}
	attempts++
	state := "ready"
	dead := attempts >= maxAttempts
	if dead {
		state = "dead"
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET state = ?, attempts = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		state, attempts, lastError, id); err != nil {
		return false, fmt.Errorf("fail message %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit fail: %w", err)
	}
	return dead, nil
}

// ListDead returns the dead-lettered messages on a queue, oldest first.
func (s *Store) ListDead(ctx context.Context, queue string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, queue, body, resource_id, attempts, last_error, enqueued_at
		 FROM messages WHERE queue = ? AND state = 'dead' ORDER BY enqueued_at, id`, queue)
	if err != nil {
		return nil, fmt.Errorf("list dead on %s: %w", queue, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
	return out, rows.Err()
}

// Redrive returns every dead-lettered message on a queue to ready with a
// fresh attempt budget, reporting how many moved.
func (s *Store) Redrive(ctx context.Context, queue string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET state = 'ready', attempts = 0, last_error = '', updated_at = CURRENT_TIMESTAMP
		 WHERE queue = ? AND state = 'dead'`, queue)
	if err != nil {
		return 0, fmt.Errorf("redrive %s: %w", queue, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Drain deletes every dead-lettered message on a queue, reporting how many
// were removed.
func (s *Store) Drain(ctx context.Context, queue string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE queue = ? AND state = 'dead'`, queue)
	if err != nil {
		return 0, fmt.Errorf("drain %s: %w", queue, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Remove deletes a single message by id regardless of state.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove message %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// Depth reports how many messages sit on a queue in any state.
func (s *Store) Depth(ctx context.Context, queue string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE queue = ?`, queue).Scan(&n); err != nil {
		return 0, fmt.Errorf("depth of %s: %w", queue, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var enqueued string
	if err := row.Scan(&msg.ID, &msg.Queue, &msg.Body, &msg.ResourceID, &msg.Attempts, &msg.LastError, &enqueued); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	msg.EnqueuedAt = parseTimestamp(enqueued)
	return &msg, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for i, name := range names {
		version := i + 1
		if applied[version] {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			version, strings.TrimSuffix(name, ".sql")); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}
