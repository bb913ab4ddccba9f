// Package usagelog persists per-request usage and cost to SQLite, powering
// the monthly budget guard and spend reporting.
package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"
)

// Record is one completed request.
type Record struct {
	RequestID        string
	Principal        string
	ModelID          string
	Tier             string
	Complexity       string
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	Rounds           int
	ToolCalls        int
	CacheHits        int
	CostUSD          float64
	CreatedAt        time.Time
}

// Store manages the usage database.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens the SQLite usage database at the given path, creating the
// schema if needed. A nil clock uses time.Now.
func Open(path string, clock func() time.Time) (*Store, error) {
	if clock == nil {
		clock = time.Now
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating usage log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}

	store := &Store{db: db, clock: clock}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			principal TEXT,
			model_id TEXT NOT NULL,
			tier TEXT,
			complexity TEXT,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cache_read_tokens INTEGER NOT NULL DEFAULT 0,
			cache_write_tokens INTEGER NOT NULL DEFAULT 0,
			rounds INTEGER NOT NULL DEFAULT 0,
			tool_calls INTEGER NOT NULL DEFAULT 0,
			cache_hits INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_log(created_at);
		CREATE INDEX IF NOT EXISTS idx_usage_principal ON usage_log(principal);
	`)
	if err != nil {
		return fmt.Errorf("initializing usage schema: %w", err)
	}
	return nil
}

// Append writes one record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (
			request_id, principal, model_id, tier, complexity,
			input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
			rounds, tool_calls, cache_hits, cost_usd, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Principal, rec.ModelID, rec.Tier, rec.Complexity,
		rec.InputTokens, rec.OutputTokens, rec.CacheReadTokens, rec.CacheWriteTokens,
		rec.Rounds, rec.ToolCalls, rec.CacheHits, rec.CostUSD, createdAt,
	)
	if err != nil {
		return fmt.Errorf("appending usage record: %w", err)
	}
	return nil
}

// MonthlySpend returns total spend since the start of the current month.
func (s *Store) MonthlySpend(ctx context.Context) (float64, error) {
	now := s.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(cost_usd) FROM usage_log WHERE created_at >= ?`, monthStart,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("querying monthly spend: %w", err)
	}
	return total.Float64, nil
}

// SpendByModel returns per-model spend since the given time.
func (s *Store) SpendByModel(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model_id, SUM(cost_usd) FROM usage_log WHERE created_at >= ? GROUP BY model_id`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying spend by model: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var modelID string
		var spend float64
		if err := rows.Scan(&modelID, &spend); err != nil {
			return nil, err
		}
		out[modelID] = spend
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
