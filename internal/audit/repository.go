// Package audit keeps the command journal: an append-only SQLite record of
// every control command and its outcome. The journal is write-mostly; it
// is listed through the API but never read back into the registry.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcomes stored in the journal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// timeFormat is fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one journal row.
type Entry struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"device_id"`
	Command   string         `json:"command"`
	Outcome   string         `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Values    map[string]any `json:"values,omitempty"`
	Duration  time.Duration  `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// MarshalJSON adds duration_ms.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(e), e.Duration.Milliseconds()})
}

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	DeviceID string
	Command  string
	Outcome  string
	Since    time.Time
	Limit    int // default 50, max 200
	Offset   int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository is the command_journal table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}

	var values any
	if len(e.Values) > 0 {
		b, err := json.Marshal(e.Values)
		if err != nil {
			return fmt.Errorf("marshalling journal values: %w", err)
		}
		values = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_journal (id, device_id, command, outcome, error, values_json, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DeviceID, e.Command, e.Outcome, nullable(e.Error), values,
		e.Duration.Milliseconds(), e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) (*ListResult, error) {
	f.Limit = min(max(f.Limit, 0), maxLimit)
	if f.Limit == 0 {
		f.Limit = defaultLimit
	}
	f.Offset = max(f.Offset, 0)

	where, args := f.where()

	var total int
	countQuery := "SELECT COUNT(*) FROM command_journal" + where //nolint:gosec // placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := `SELECT id, device_id, command, outcome, error, values_json, duration_ms, created_at
		FROM command_journal` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?` //nolint:gosec // placeholders only
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if f.DeviceID != "" {
		add("device_id = ?", f.DeviceID)
	}
	if f.Command != "" {
		add("command = ?", f.Command)
	}
	if f.Outcome != "" {
		add("outcome = ?", f.Outcome)
	}
	if !f.Since.IsZero() {
		add("created_at >= ?", f.Since.UTC().Format(timeFormat))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var errText, values sql.NullString
	var durationMS int64
	var createdAt string

	if err := rows.Scan(&e.ID, &e.DeviceID, &e.Command, &e.Outcome, &errText, &values, &durationMS, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning journal entry: %w", err)
	}
	e.Error = errText.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if values.Valid && values.String != "" {
		if err := json.Unmarshal([]byte(values.String), &e.Values); err != nil {
			return Entry{}, fmt.Errorf("decoding values of %s: %w", e.ID, err)
		}
	}

	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}

// Prune deletes entries created before the cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM command_journal WHERE created_at < ?",
		before.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return n, nil
}
