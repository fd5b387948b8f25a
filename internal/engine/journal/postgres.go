package journal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres is a journal shared across replicas, backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("journal: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return p, nil
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Record stores d. Failures are logged, never returned.
func (p *Postgres) Record(ctx context.Context, d engine.Diagnostic) {
	ctx, cancel := writeContext(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO diagnostics (id, request_id, video_id, layer, cause, at)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		d.ID, d.RequestID, d.VideoID, d.Layer, d.Cause, d.At)
	if err != nil {
		slog.Warn("journal: postgres insert failed", slog.String("layer", d.Layer), slog.Any("error", err))
	}
}

// Recent returns the newest diagnostics first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]engine.Diagnostic, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, request_id, video_id, layer, cause, at FROM diagnostics ORDER BY at DESC LIMIT $1`,
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []engine.Diagnostic
	for rows.Next() {
		var d engine.Diagnostic
		if err := rows.Scan(&d.ID, &d.RequestID, &d.VideoID, &d.Layer, &d.Cause, &d.At); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByLayer returns the number of stored diagnostics per layer.
func (p *Postgres) CountByLayer(ctx context.Context) (map[string]int64, error) {
	rows, err := p.pool.Query(ctx, `SELECT layer, COUNT(*) FROM diagnostics GROUP BY layer`)
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

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Open picks a backend from cfg: postgres when DATABASE_URL is set, sqlite
// when DIAG_SQLITE_PATH is set, otherwise none (nil, nil).
func Open(ctx context.Context, cfg engine.Config) (Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		p, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	case cfg.DiagSQLitePath != "":
		s, err := OpenSQLite(cfg.DiagSQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}
