package feedcache

import (
	"context"
	"io"
)

// Collaborator is the boundary to the external transactional storage engine
// the durable store delegates persistence to. Implementations must make
// Commit atomic: a failed commit leaves the previously committed record
// untouched, never a half-written one.
type Collaborator interface {
	// FetchCache returns the single cache record, or nil when none exists.
	FetchCache(ctx context.Context) (*CacheRecord, error)
	// Begin opens a transactional context. Only one is open at a time; the
	// durable store's serial lane enforces that.
	Begin(ctx context.Context) (Tx, error)
	// DeleteAll bulk-clears every cache and image row. Used by test setup
	// and teardown, not by steady-state operations.
	DeleteAll(ctx context.Context) error
	io.Closer
}

// Tx is one transactional context. Rollback after a successful Commit must
// be a no-op, so callers can defer it unconditionally.
type Tx interface {
	CreateCache(ctx context.Context, rec CacheRecord) error
	DeleteCache(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback() error
}
