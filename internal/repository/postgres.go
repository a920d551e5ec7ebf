package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jack/golang-slug-link-service/internal/config"
	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is the durable click-event archive. The in-store click
// log is capped at LogCap entries; the archive keeps everything.
//
// Expected schema:
//
//	CREATE TABLE click_events (
//	    id         BIGSERIAL PRIMARY KEY,
//	    code       TEXT NOT NULL,
//	    clicked_at TIMESTAMPTZ NOT NULL,
//	    ip         TEXT,
//	    country    TEXT,
//	    lat        DOUBLE PRECISION,
//	    lon        DOUBLE PRECISION
//	);
//	CREATE INDEX click_events_code_idx ON click_events (code, clicked_at);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(cfg *config.ArchiveConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// ArchiveClick appends one click event for a code.
func (r *PostgresRepository) ArchiveClick(ctx context.Context, code string, entry model.ClickLogEntry) error {
	query := `
		INSERT INTO click_events (code, clicked_at, ip, country, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		code,
		time.UnixMilli(entry.T).UTC(),
		entry.IP,
		entry.Loc,
		entry.Lat,
		entry.Lon,
	)
	if err != nil {
		return fmt.Errorf("failed to archive click: %w", err)
	}

	return nil
}

// PurgeClicks removes all archived events for a code. Called alongside the
// admin delete so a reused code starts with a clean history.
func (r *PostgresRepository) PurgeClicks(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM click_events WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to purge archived clicks: %w", err)
	}

	return nil
}

// DeleteClicksBefore trims archive rows older than the cutoff. Used by the
// maintenance sweep together with the daily-bucket prune.
func (r *PostgresRepository) DeleteClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM click_events WHERE clicked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim click archive: %w", err)
	}

	return result.RowsAffected(), nil
}

// Health checks the database connection
func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
