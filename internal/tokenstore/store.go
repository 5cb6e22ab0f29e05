// Package tokenstore provides an expiring token->value store with
// interchangeable in-memory and Postgres backings. Callers must not be able
// to tell the backends apart except for durability across restarts.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for tokens that are unknown or already expired.
var ErrNotFound = errors.New("token not found or expired")

// Entry is a stored value together with its token and lifetime bounds.
type Entry[V any] struct {
	Token     string
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the data-access contract shared by the upload-session and share
// services. Get on an expired entry behaves as ErrNotFound and lazily evicts
// it. Update applies fn atomically with respect to concurrent updaters.
type Store[V any] interface {
	Put(ctx context.Context, entry Entry[V]) error
	Get(ctx context.Context, token string) (Entry[V], error)
	Update(ctx context.Context, token string, fn func(V) V) (Entry[V], error)
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context) ([]Entry[V], error)
}
