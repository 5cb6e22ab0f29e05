// Package share stores generated menu templates behind expiring,
// unguessable tokens that grant time-limited read access.
package share

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kianyangchn/mainu-web/internal/menu"
	"github.com/kianyangchn/mainu-web/internal/tokenstore"
)

// ErrNotFound aliases the store sentinel for callers that only import this
// package.
var ErrNotFound = tokenstore.ErrNotFound

// Record is the metadata exposed for a stored share token.
type Record struct {
	Token     string        `json:"token"`
	Template  menu.Template `json:"template"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// RemainingSeconds returns the whole seconds left before expiry, clamped
// to zero.
func (r Record) RemainingSeconds() int {
	remaining := time.Until(r.ExpiresAt).Seconds()
	if remaining <= 0 {
		return 0
	}
	return int(remaining)
}

type Store struct {
	tokens tokenstore.Store[menu.Template]
	ttl    time.Duration
}

// NewMemoryStore backs share tokens with the in-process map.
func NewMemoryStore(ttl time.Duration) *Store {
	return newStore(tokenstore.NewMemory[menu.Template](), ttl)
}

// NewPostgresStore backs share tokens with the share_tokens table.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return newStore(tokenstore.NewPostgres[menu.Template](pool, "share_tokens"), ttl)
}

func newStore(tokens tokenstore.Store[menu.Template], ttl time.Duration) *Store {
	return &Store{tokens: tokens, ttl: ttl}
}

// Create generates a token and persists the template behind it.
func (s *Store) Create(ctx context.Context, template menu.Template) (string, error) {
	token, err := tokenstore.NewToken(16)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	err = s.tokens.Put(ctx, tokenstore.Entry[menu.Template]{
		Token:     token,
		Value:     template,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Describe returns metadata for a token while it is still valid, nil once
// it is unknown or expired.
func (s *Store) Describe(ctx context.Context, token string) (*Record, error) {
	entry, err := s.tokens.Get(ctx, token)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Record{
		Token:     entry.Token,
		Template:  entry.Value,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	}, nil
}

// FetchTemplate retrieves a template, expiring stale entries lazily.
func (s *Store) FetchTemplate(ctx context.Context, token string) (*menu.Template, error) {
	record, err := s.Describe(ctx, token)
	if err != nil || record == nil {
		return nil, err
	}
	return &record.Template, nil
}

// PurgeExpired removes expired templates eagerly. Share records own no
// external resources, so the purged values are discarded.
func (s *Store) PurgeExpired(ctx context.Context) error {
	_, err := s.tokens.PurgeExpired(ctx)
	return err
}
