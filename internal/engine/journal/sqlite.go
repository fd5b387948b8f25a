package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed-width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is a single-file journal backed by modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("journal: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	slog.Info("journal: sqlite opened", slog.String("path", path))
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS diagnostics (
		id         TEXT PRIMARY KEY,
		request_id TEXT,
		video_id   TEXT,
		layer      TEXT NOT NULL,
		cause      TEXT NOT NULL,
		at         TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_diagnostics_at ON diagnostics(at)`)
	return err
}

// Record stores d. Failures are logged, never returned.
func (s *SQLite) Record(ctx context.Context, d engine.Diagnostic) {
	ctx, cancel := writeContext(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnostics (id, request_id, video_id, layer, cause, at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.RequestID, d.VideoID, d.Layer, d.Cause, d.At.UTC().Format(sqliteTimeLayout))
	if err != nil {
		slog.Warn("journal: sqlite insert failed", slog.String("layer", d.Layer), slog.Any("error", err))
	}
}

// Recent returns the newest diagnostics first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]engine.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, video_id, layer, cause, at FROM diagnostics ORDER BY at DESC LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []engine.Diagnostic
	for rows.Next() {
		var (
			d                  engine.Diagnostic
			requestID, videoID sql.NullString
			at                 string
		)
		if err := rows.Scan(&d.ID, &requestID, &videoID, &d.Layer, &d.Cause, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		d.RequestID, d.VideoID = requestID.String, videoID.String
		if d.At, err = time.Parse(sqliteTimeLayout, at); err != nil {
			return nil, fmt.Errorf("journal: bad timestamp %q: %w", at, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByLayer returns the number of stored diagnostics per layer.
func (s *SQLite) CountByLayer(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT layer, COUNT(*) FROM diagnostics GROUP BY layer`)
	if err != nil {
		return nil, fmt.Errorf("journal: count: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			layer string
			n     int64
		)
		if err := rows.Scan(&layer, &n); err != nil {
			return nil, err
		}
		out[layer] = n
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
