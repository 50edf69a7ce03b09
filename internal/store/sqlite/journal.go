// Package sqlite persists fired signals to a local journal so history
// survives restarts and can be inspected with any sqlite client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

// JournalConfig configures the signal journal.
type JournalConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Journal is a single-writer SQLite store of fired signals.
type Journal struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// New opens (or creates) the journal database in WAL mode.
func New(cfg JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT    NOT NULL,
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			bar_time   INTEGER NOT NULL,
			close      REAL    NOT NULL,
			rsi        REAL    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE (kind, symbol, timeframe, bar_time)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_target
			ON signals (symbol, timeframe, bar_time);
	`)
	return err
}

// Append records one fired signal. Replaying a bar after a restart is a
// no-op thanks to the uniqueness constraint.
func (j *Journal) Append(ctx context.Context, ev divergence.Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO signals (kind, symbol, timeframe, bar_time, close, rsi)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(ev.Kind), ev.Symbol, ev.Timeframe, ev.BarTime, ev.Close, ev.RSI)
	if err != nil {
		return fmt.Errorf("sqlite append: %w", err)
	}
	return nil
}

// Recent returns the most recent signals for one target, newest first.
func (j *Journal) Recent(ctx context.Context, symbol, timeframe string, limit int) ([]divergence.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, symbol, timeframe, bar_time, close, rsi
		FROM signals
		WHERE symbol = ? AND timeframe = ?
		ORDER BY bar_time DESC, id DESC
		LIMIT ?`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent: %w", err)
	}
	defer rows.Close()

	var out []divergence.Event
	for rows.Next() {
		var ev divergence.Event
		var kind string
		if err := rows.Scan(&kind, &ev.Symbol, &ev.Timeframe, &ev.BarTime, &ev.Close, &ev.RSI); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		ev.Kind = divergence.Kind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastBarTime returns the newest journaled bar time for a target, or 0 when
// the journal has no rows for it.
func (j *Journal) LastBarTime(ctx context.Context, symbol, timeframe string) (int64, error) {
	var ts sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(bar_time) FROM signals WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("sqlite last bar time: %w", err)
	}
	return ts.Int64, nil
}

// Close releases the database handle.
func (j *Journal) Close() error { return j.db.Close() }
