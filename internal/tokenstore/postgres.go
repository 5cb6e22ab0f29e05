package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists entries in a token/payload/created_at/expires_at table.
// Values are serialized to JSONB. Atomicity of Update is delegated to a
// row-locking transaction.
type Postgres[V any] struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgres[V any](pool *pgxpool.Pool, table string) *Postgres[V] {
	return &Postgres[V]{pool: pool, table: table}
}

func (p *Postgres[V]) Put(ctx context.Context, entry Entry[V]) error {
	payload, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (token, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token)
		DO UPDATE SET payload = $2, created_at = $3, expires_at = $4
	`, p.table)

	_, err = p.pool.Exec(ctx, query, entry.Token, payload, entry.CreatedAt, entry.ExpiresAt)
	return err
}

func (p *Postgres[V]) Get(ctx context.Context, token string) (Entry[V], error) {
	query := fmt.Sprintf(`
		SELECT payload, created_at, expires_at
		FROM %s WHERE token = $1
	`, p.table)

	var (
		payload   []byte
		createdAt time.Time
		expiresAt time.Time
	)
	err := p.pool.QueryRow(ctx, query, token).Scan(&payload, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry[V]{}, ErrNotFound
	}
	if err != nil {
		return Entry[V]{}, err
	}

	if !expiresAt.After(time.Now().UTC()) {
		_ = p.Delete(ctx, token)
		return Entry[V]{}, ErrNotFound
	}

	entry := Entry[V]{Token: token, CreatedAt: createdAt, ExpiresAt: expiresAt}
	if err := json.Unmarshal(payload, &entry.Value); err != nil {
		return Entry[V]{}, fmt.Errorf("decode payload: %w", err)
	}
	return entry, nil
}

func (p *Postgres[V]) Update(ctx context.Context, token string, fn func(V) V) (Entry[V], error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Entry[V]{}, err
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		SELECT payload, created_at, expires_at
		FROM %s WHERE token = $1
		FOR UPDATE
	`, p.table)

	var (
		payload   []byte
		createdAt time.Time
		expiresAt time.Time
	)
	err = tx.QueryRow(ctx, query, token).Scan(&payload, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry[V]{}, ErrNotFound
	}
	if err != nil {
		return Entry[V]{}, err
	}
	if !expiresAt.After(time.Now().UTC()) {
		return Entry[V]{}, ErrNotFound
	}

	entry := Entry[V]{Token: token, CreatedAt: createdAt, ExpiresAt: expiresAt}
	if err := json.Unmarshal(payload, &entry.Value); err != nil {
		return Entry[V]{}, fmt.Errorf("decode payload: %w", err)
	}

	entry.Value = fn(entry.Value)

	updated, err := json.Marshal(entry.Value)
	if err != nil {
		return Entry[V]{}, fmt.Errorf("encode payload: %w", err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET payload = $2 WHERE token = $1`, p.table)
	if _, err := tx.Exec(ctx, updateQuery, token, updated); err != nil {
		return Entry[V]{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry[V]{}, err
	}
	return entry, nil
}

func (p *Postgres[V]) Delete(ctx context.Context, token string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE token = $1`, p.table)
	_, err := p.pool.Exec(ctx, query, token)
	return err
}

func (p *Postgres[V]) PurgeExpired(ctx context.Context) ([]Entry[V], error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE expires_at <= $1
		RETURNING token, payload, created_at, expires_at
	`, p.table)

	rows, err := p.pool.Query(ctx, query, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purged []Entry[V]
	for rows.Next() {
		var (
			entry   Entry[V]
			payload []byte
		)
		if err := rows.Scan(&entry.Token, &payload, &entry.CreatedAt, &entry.ExpiresAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &entry.Value); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		purged = append(purged, entry)
	}
	return purged, rows.Err()
}
