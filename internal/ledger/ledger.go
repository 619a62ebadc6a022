// Package ledger maintains a local SQLite spend log: one row per
// completed top-level call. Recording is best-effort; a broken ledger
// must never fail the request that produced the row.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Schema for the usage database.
const schema = `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cached_input_tokens INTEGER NOT NULL DEFAULT 0,
    tool_calls INTEGER NOT NULL DEFAULT 0,
    cost_usd REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at DESC);
`

// Entry is one recorded request.
type Entry struct {
	Timestamp         time.Time // zero means now
	Provider          string
	Model             string
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int
	ToolCalls         int
	CostUSD           float64
}

// SummaryRow is one day+model aggregate.
type SummaryRow struct {
	Day          string // YYYY-MM-DD
	Model        string
	Requests     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Totals aggregates over the whole queried window.
type Totals struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Ledger wraps the usage database.
type Ledger struct {
	db *sql.DB
}

// DefaultPath returns the usage database location. Uses $XDG_DATA_HOME if
// set, otherwise ~/.local/share.
func DefaultPath() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "codewright", "usage.db"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "codewright", "usage.db"), nil
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// _time_format=sqlite makes the driver store time.Time in ISO-8601 so
	// date() grouping and window comparisons work on the column.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Record appends one request row.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	// Store UTC so day grouping and window comparisons stay consistent.
	ts = ts.UTC()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO requests (created_at, provider, model, input_tokens, output_tokens, cached_input_tokens, tool_calls, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, e.Provider, e.Model, e.InputTokens, e.OutputTokens, e.CachedInputTokens, e.ToolCalls, e.CostUSD)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// Summary returns day+model aggregates for the last N days, newest day
// first. days <= 0 means all time.
func (l *Ledger) Summary(ctx context.Context, days int) ([]SummaryRow, error) {
	query := `
		SELECT date(created_at), model, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(cost_usd)
		FROM requests`
	args := []any{}

	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		query += " WHERE created_at >= ?"
		args = append(args, cutoff)
	}

	query += `
		GROUP BY date(created_at), model
		ORDER BY date(created_at) DESC, model ASC`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var results []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.Day, &r.Model, &r.Requests, &r.InputTokens, &r.OutputTokens, &r.CostUSD); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// WindowTotals returns the aggregate over the last N days. days <= 0 means
// all time.
func (l *Ledger) WindowTotals(ctx context.Context, days int) (Totals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM requests`
	args := []any{}

	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		query += " WHERE created_at >= ?"
		args = append(args, cutoff)
	}

	var t Totals
	err := l.db.QueryRowContext(ctx, query, args...).Scan(&t.Requests, &t.InputTokens, &t.OutputTokens, &t.CostUSD)
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}
	return t, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Append opens the default ledger, records the entry and closes. Errors
// are logged, never returned: recording is telemetry, not a call result.
func Append(ctx context.Context, e Entry) {
	path, err := DefaultPath()
	if err != nil {
		slog.Warn("usage ledger unavailable", "error", err)
		return
	}
	l, err := Open(path)
	if err != nil {
		slog.Warn("usage ledger unavailable", "error", err)
		return
	}
	defer l.Close()

	if err := l.Record(ctx, e); err != nil {
		slog.Warn("usage ledger record failed", "error", err)
	}
}
