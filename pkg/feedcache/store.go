// Package feedcache provides a single-slot feed cache store with
// interchangeable in-memory and durable backends.
package feedcache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
)

// ErrAccess is the only error taxonomy the store contract exposes. Every
// backend failure wraps it; the underlying engine's native error types never
// cross this boundary.
var ErrAccess = errors.New("feed cache access failed")

// CachedFeed is the single stored snapshot: an ordered feed plus the instant
// it was cached.
type CachedFeed struct {
	Feed      feed.Feed
	Timestamp time.Time
}

// Store is the single-slot cache contract. A nil *CachedFeed from Retrieve
// means the cache is empty; an inserted empty feed is observably identical
// to an absent one.
//
// Implementations guarantee:
//   - Retrieve has no side effects and is repeatable.
//   - Insert atomically replaces the whole snapshot; a subsequent Retrieve
//     never observes a mix of old and new contents.
//   - Delete leaves the store empty and succeeds even when it already was.
//   - Concurrent calls behave as if executed in some total order.
type Store interface {
	Retrieve(ctx context.Context) (*CachedFeed, error)
	Insert(ctx context.Context, f feed.Feed, timestamp time.Time) error
	Delete(ctx context.Context) error
	io.Closer
}
