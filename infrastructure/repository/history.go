package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// historyPingTimeout bounds the connectivity check in OpenHistory.
	historyPingTimeout = 5 * time.Second

	// DefaultHistoryLimit is the number of records Recent returns for limit <= 0.
	DefaultHistoryLimit = 50
)

const historySchema = `
CREATE TABLE IF NOT EXISTS triggers (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL,
	set_name        TEXT NOT NULL,
	region          TEXT NOT NULL,
	reason          TEXT NOT NULL,
	detected_text   TEXT NOT NULL,
	comparison_text TEXT NOT NULL,
	at_ms           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triggers_at ON triggers(at_ms);
CREATE INDEX IF NOT EXISTS idx_triggers_region ON triggers(region);
`

// TriggerRecord is one stored trigger.
type TriggerRecord struct {
	ID             string
	RunID          string
	SetName        string
	Region         string
	Reason         string
	DetectedText   string
	ComparisonText string
	At             time.Time
}

// HistoryConfig configures the trigger history database.
type HistoryConfig struct {
	// Path is the SQLite file; its directory is created if missing
	Path string

	// BusyTimeout is how long to wait for a database lock
	BusyTimeout time.Duration
}

// SQLiteHistory stores triggers in a local SQLite database.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// OpenHistory opens (creating if needed) the history database and applies
// the schema.
func OpenHistory(cfg HistoryConfig) (*SQLiteHistory, error) {
	if cfg.Path == "" {
		return nil, errors.New("history path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), historyPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	_ = os.Chmod(cfg.Path, filePermissions)

	return &SQLiteHistory{db: db, path: cfg.Path}, nil
}

// Path returns the database file location.
func (h *SQLiteHistory) Path() string {
	return h.path
}

// Record stores rec, assigning an ID and timestamp when missing.
func (h *SQLiteHistory) Record(ctx context.Context, rec TriggerRecord) (TriggerRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO triggers (id, run_id, set_name, region, reason, detected_text, comparison_text, at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.SetName, rec.Region, rec.Reason, rec.DetectedText, rec.ComparisonText, rec.At.UnixMilli())
	if err != nil {
		return rec, fmt.Errorf("recording trigger: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first, optionally filtered by
// region name.
func (h *SQLiteHistory) Recent(ctx context.Context, regionName string, limit int) ([]TriggerRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, run_id, set_name, region, reason, detected_text, comparison_text, at_ms FROM triggers`
	args := []any{}
	if regionName != "" {
		query += ` WHERE region = ?`
		args = append(args, regionName)
	}
	query += ` ORDER BY at_ms DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying triggers: %w", err)
	}
	defer rows.Close()

	var out []TriggerRecord
	for rows.Next() {
		var rec TriggerRecord
		var atMs int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SetName, &rec.Region, &rec.Reason,
			&rec.DetectedText, &rec.ComparisonText, &atMs); err != nil {
			return nil, fmt.Errorf("scanning trigger: %w", err)
		}
		rec.At = time.UnixMilli(atMs)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating triggers: %w", err)
	}
	return out, nil
}

// CountByRegion returns trigger counts per region since the given time.
func (h *SQLiteHistory) CountByRegion(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT region, COUNT(*) FROM triggers WHERE at_ms >= ? GROUP BY region`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("counting triggers: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Prune deletes records older than before and returns how many were removed.
func (h *SQLiteHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM triggers WHERE at_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning triggers: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (h *SQLiteHistory) Close() error {
	if h.db == nil {
		return nil
	}
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}
