package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sampurna/itsupport/internal/config"
)

// ErrNoVectorExtension means the pgvector extension is not installed in the
// target database. Running the migrations installs it.
var ErrNoVectorExtension = errors.New("pgvector extension is not installed")

// NewPostgresPool connects to the document database and checks that pgvector
// is available.
func NewPostgresPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	version, err := VectorVersion(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("connected to PostgreSQL", "host", cfg.Host, "port", cfg.Port, "db", cfg.Name, "pgvector", version)
	return pool, nil
}

// VectorVersion returns the installed pgvector version.
func VectorVersion(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	var version *string
	err := pool.QueryRow(ctx,
		`SELECT (SELECT extversion FROM pg_extension WHERE extname = 'vector')`,
	).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("checking pgvector extension: %w", err)
	}
	if version == nil {
		return "", ErrNoVectorExtension
	}
	return *version, nil
}
