package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func ConnectPostgres(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("connected to postgres")

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// initSchema creates the two token tables used by the session and share
// stores. Both share the token/payload/lifetime shape.
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	uploadSessionsSQL := `
		CREATE TABLE IF NOT EXISTS upload_sessions (
			token VARCHAR(96) PRIMARY KEY,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, uploadSessionsSQL); err != nil {
		return err
	}

	shareTokensSQL := `
		CREATE TABLE IF NOT EXISTS share_tokens (
			token VARCHAR(96) PRIMARY KEY,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, shareTokensSQL); err != nil {
		return err
	}

	indexSQL := `
		CREATE INDEX IF NOT EXISTS upload_sessions_expires_at_idx
			ON upload_sessions (expires_at);
		CREATE INDEX IF NOT EXISTS share_tokens_expires_at_idx
			ON share_tokens (expires_at);
	`
	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return err
	}

	return nil
}
