// Package session persists the remote file handles created for an uploaded
// batch so a later retry can reuse them without re-uploading.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kianyangchn/mainu-web/internal/tokenstore"
)

// ErrRetryLimitExceeded is a terminal condition distinct from NotFound so
// callers can show "too many attempts" rather than "start over".
var ErrRetryLimitExceeded = errors.New("upload session retry limit exceeded")

// ErrNotFound aliases the store sentinel for callers that only import this
// package.
var ErrNotFound = tokenstore.ErrNotFound

// Record is the caller-facing view of a persisted upload session. The
// three lists are index-aligned and always the same length.
type Record struct {
	Token        string    `json:"token"`
	FileIDs      []string  `json:"file_ids"`
	Filenames    []string  `json:"filenames"`
	ContentTypes []string  `json:"content_types"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	RetryCount   int       `json:"retry_count"`
}

// payload is what actually lives in the token store; token and lifetime
// bounds are carried by the store entry.
type payload struct {
	FileIDs      []string `json:"file_ids"`
	Filenames    []string `json:"filenames"`
	ContentTypes []string `json:"content_types"`
	RetryCount   int      `json:"retry_count"`
}

type Store struct {
	tokens     tokenstore.Store[payload]
	ttl        time.Duration
	retryLimit int
}

// NewMemoryStore backs sessions with the in-process map. Used when no
// database connection string is configured.
func NewMemoryStore(ttl time.Duration, retryLimit int) *Store {
	return newStore(tokenstore.NewMemory[payload](), ttl, retryLimit)
}

// NewPostgresStore backs sessions with the upload_sessions table.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration, retryLimit int) *Store {
	return newStore(tokenstore.NewPostgres[payload](pool, "upload_sessions"), ttl, retryLimit)
}

func newStore(tokens tokenstore.Store[payload], ttl time.Duration, retryLimit int) *Store {
	return &Store{tokens: tokens, ttl: ttl, retryLimit: retryLimit}
}

// Create stores a fresh session for an uploaded batch and returns its token.
func (s *Store) Create(ctx context.Context, fileIDs, filenames, contentTypes []string) (string, error) {
	if len(fileIDs) != len(filenames) || len(fileIDs) != len(contentTypes) {
		return "", fmt.Errorf("misaligned session lists: %d file ids, %d filenames, %d content types",
			len(fileIDs), len(filenames), len(contentTypes))
	}

	token, err := tokenstore.NewToken(16)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	err = s.tokens.Put(ctx, tokenstore.Entry[payload]{
		Token: token,
		Value: payload{
			FileIDs:      fileIDs,
			Filenames:    filenames,
			ContentTypes: contentTypes,
			RetryCount:   0,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Describe returns nil for unknown or expired tokens, never an error for
// them; a non-nil error means the backing store itself failed.
func (s *Store) Describe(ctx context.Context, token string) (*Record, error) {
	entry, err := s.tokens.Get(ctx, token)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := toRecord(entry)
	return &record, nil
}

// IncrementRetry atomically bumps the retry counter and returns the new
// value. Above the configured cap it fails with ErrRetryLimitExceeded,
// leaving the recorded file handles untouched.
func (s *Store) IncrementRetry(ctx context.Context, token string) (int, error) {
	entry, err := s.tokens.Update(ctx, token, func(p payload) payload {
		p.RetryCount++
		return p
	})
	if err != nil {
		return 0, err
	}
	count := entry.Value.RetryCount
	if count > s.retryLimit {
		return count, fmt.Errorf("%w: attempt %d of %d", ErrRetryLimitExceeded, count, s.retryLimit)
	}
	return count, nil
}

// Delete removes a session. Deleting an absent token is a no-op.
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.tokens.Delete(ctx, token)
}

// PurgeExpired sweeps expired sessions and returns their full records so
// the caller can release the remote file handles each one owns.
func (s *Store) PurgeExpired(ctx context.Context) ([]Record, error) {
	entries, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, toRecord(entry))
	}
	return records, nil
}

func toRecord(entry tokenstore.Entry[payload]) Record {
	return Record{
		Token:        entry.Token,
		FileIDs:      entry.Value.FileIDs,
		Filenames:    entry.Value.Filenames,
		ContentTypes: entry.Value.ContentTypes,
		CreatedAt:    entry.CreatedAt,
		ExpiresAt:    entry.ExpiresAt,
		RetryCount:   entry.Value.RetryCount,
	}
}
