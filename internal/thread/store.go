// Package thread persists conversation state: one row per thread with a
// rolling summary, plus an ordered message log. The agent reads history
// from here, appends each exchange, and prunes old messages after
// summarization.
package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested thread does not exist.
var ErrNotFound = errors.New("thread not found")

// IDLength is the length of generated thread IDs.
const IDLength = 8

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Thread is one conversation with its rolling summary.
type Thread struct {
	ID        string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one stored conversation turn.
type Message struct {
	ID        int64
	ThreadID  string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store manages threads and messages backed by PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a thread Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// NewID returns a fresh short thread identifier.
func NewID() string {
	return uuid.NewString()[:IDLength]
}

// Ensure creates the thread if it does not exist and returns it. An empty
// id gets a generated one.
func (s *Store) Ensure(ctx context.Context, id string) (Thread, error) {
	if strings.TrimSpace(id) == "" {
		id = NewID()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id) VALUES ($1)
		 ON CONFLICT (id) DO NOTHING`,
		id,
	)
	if err != nil {
		return Thread{}, fmt.Errorf("ensuring thread %q: %w", id, err)
	}

	return s.Get(ctx, id)
}

// Get returns the thread or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Thread, error) {
	var t Thread
	err := s.pool.QueryRow(ctx,
		`SELECT id, summary, created_at, updated_at FROM threads WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Summary, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Thread{}, fmt.Errorf("getting thread %q: %w", id, err)
	}
	return t, nil
}

// List returns all threads, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Thread, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, summary, created_at, updated_at FROM threads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.Summary, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning thread row: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thread rows: %w", err)
	}
	return threads, nil
}

// Append stores one message and touches the thread's updated_at.
func (s *Store) Append(ctx context.Context, threadID, role, content string) error {
	return s.withTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx,
			`INSERT INTO messages (thread_id, role, content) VALUES ($1, $2, $3)`,
			threadID, role, content,
		); err != nil {
			return fmt.Errorf("appending message to %q: %w", threadID, err)
		}
		return touch(ctx, q, threadID)
	})
}

// History returns the thread's stored messages in order, converted for the
// model. Tool messages are skipped: their content is only meaningful inside
// the turn that produced them.
func (s *Store) History(ctx context.Context, threadID string) ([]*ai.Message, error) {
	msgs, err := s.Messages(ctx, threadID)
	if err != nil {
		return nil, err
	}

	history := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		role, ok := parseRole(m.Role)
		if !ok {
			continue
		}
		history = append(history, &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(m.Content)},
		})
	}
	return history, nil
}

// Messages returns the raw stored messages in insertion order.
func (s *Store) Messages(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_id, role, content, created_at
		 FROM messages WHERE thread_id = $1 ORDER BY id`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for %q: %w", threadID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return msgs, nil
}

// CountMessages returns the number of stored messages in the thread.
func (s *Store) CountMessages(ctx context.Context, threadID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE thread_id = $1`, threadID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages for %q: %w", threadID, err)
	}
	return count, nil
}

// SetSummaryAndPrune replaces the thread summary and deletes all but the
// last keep messages, atomically. The agent calls this after summarizing a
// long conversation.
func (s *Store) SetSummaryAndPrune(ctx context.Context, threadID, summary string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	return s.withTx(ctx, func(q querier) error {
		tag, err := q.Exec(ctx,
			`UPDATE threads SET summary = $1, updated_at = now() WHERE id = $2`,
			summary, threadID,
		)
		if err != nil {
			return fmt.Errorf("updating summary for %q: %w", threadID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, threadID)
		}

		_, err = q.Exec(ctx,
			`DELETE FROM messages
			 WHERE thread_id = $1
			   AND id NOT IN (
			     SELECT id FROM messages WHERE thread_id = $1 ORDER BY id DESC LIMIT $2
			   )`,
			threadID, keep,
		)
		if err != nil {
			return fmt.Errorf("pruning messages for %q: %w", threadID, err)
		}
		return nil
	})
}

// Clear deletes one thread and its messages. Missing threads return
// ErrNotFound.
func (s *Store) Clear(ctx context.Context, threadID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("clearing thread %q: %w", threadID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, threadID)
	}
	s.logger.Info("thread cleared", "thread_id", threadID)
	return nil
}

// ClearAll deletes every thread and returns how many were removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM threads`)
	if err != nil {
		return 0, fmt.Errorf("clearing threads: %w", err)
	}
	s.logger.Info("all threads cleared", "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (s *Store) withTx(ctx context.Context, fn func(querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func touch(ctx context.Context, q querier, threadID string) error {
	tag, err := q.Exec(ctx, `UPDATE threads SET updated_at = now() WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("touching thread %q: %w", threadID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, threadID)
	}
	return nil
}

func parseRole(role string) (ai.Role, bool) {
	switch role {
	case "user":
		return ai.RoleUser, true
	case "model":
		return ai.RoleModel, true
	case "system":
		return ai.RoleSystem, true
	default:
		return "", false
	}
}

// RoleFromMessage maps a model message role to its storage value.
func RoleFromMessage(role ai.Role) string {
	switch role {
	case ai.RoleUser:
		return "user"
	case ai.RoleModel:
		return "model"
	case ai.RoleSystem:
		return "system"
	default:
		return "tool"
	}
}
