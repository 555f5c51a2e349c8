package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Haiikyu/reveelbox-sub002/internal/common/config"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
)

// Open initializes a PostgreSQL connection pool using database/sql and lib/pq.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Int("max_open_conns", cfg.Postgres.MaxOpenConns).
		Msg("PostgreSQL client initialized")

	return db, nil
}
