package feedcache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
	"github.com/illmade-knight/go-feedcache/pkg/feedcache"
)

// uniqueFeed builds a feed of n distinct images so ordering assertions can
// tell every element apart.
func uniqueFeed(t *testing.T, n int) feed.Feed {
	t.Helper()
	f := make(feed.Feed, 0, n)
	for i := 0; i < n; i++ {
		desc := "image"
		img, err := feed.NewImage(uuid.New(), &desc, nil, "https://images.example/"+uuid.NewString())
		require.NoError(t, err)
		f = append(f, img)
	}
	return f
}

// runStoreContractSuite asserts the observable behavior every Store backend
// must share, so the in-memory and durable implementations stay
// indistinguishable to callers. The factory must return a fresh, empty store.
func runStoreContractSuite(t *testing.T, newStore func(t *testing.T) feedcache.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("retrieve on a fresh store is empty", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("retrieve has no side effects", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		f := uniqueFeed(t, 3)
		ts := time.UnixMilli(100).UTC()
		require.NoError(t, s.Insert(ctx, f, ts))

		first, err := s.Retrieve(ctx)
		require.NoError(t, err)
		second, err := s.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("insert then retrieve round-trips feed and timestamp in order", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		f := uniqueFeed(t, 5)
		ts := time.UnixMilli(100).UTC()
		require.NoError(t, s.Insert(ctx, f, ts))

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, f, cached.Feed)
		assert.True(t, ts.Equal(cached.Timestamp), "timestamp should round-trip")
	})

	t.Run("second insert fully supersedes the first", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		first := uniqueFeed(t, 4)
		second := uniqueFeed(t, 2)
		require.NoError(t, s.Insert(ctx, first, time.UnixMilli(100).UTC()))
		require.NoError(t, s.Insert(ctx, second, time.UnixMilli(200).UTC()))

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, second, cached.Feed, "earlier feed must never be merged or appended")
		assert.True(t, time.UnixMilli(200).UTC().Equal(cached.Timestamp))
	})

	t.Run("delete then retrieve is empty", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Insert(ctx, uniqueFeed(t, 3), time.UnixMilli(100).UTC()))
		require.NoError(t, s.Delete(ctx))

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("delete on an empty store succeeds", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Delete(ctx))

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("inserting an empty feed retrieves as empty", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Insert(ctx, uniqueFeed(t, 1), time.UnixMilli(100).UTC()))
		require.NoError(t, s.Insert(ctx, feed.Feed{}, time.UnixMilli(200).UTC()))

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)
		assert.Nil(t, cached, "an empty feed is indistinguishable from an absent one")
	})

	t.Run("concurrent mutations settle to some total ordering", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })

		feedA := uniqueFeed(t, 3)
		feedB := uniqueFeed(t, 3)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Insert(ctx, feedA, time.UnixMilli(100).UTC()))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Delete(ctx))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Insert(ctx, feedB, time.UnixMilli(200).UTC()))
		}()
		wg.Wait()

		cached, err := s.Retrieve(ctx)
		require.NoError(t, err)

		// Valid outcomes are exactly those a serial execution could produce:
		// the delete ran last (empty) or one insert ran last (that feed,
		// whole). A splice of A and B corresponds to no ordering.
		switch {
		case cached == nil:
		case assert.ObjectsAreEqual(feedA, cached.Feed):
		case assert.ObjectsAreEqual(feedB, cached.Feed):
		default:
			t.Fatalf("final state matches no serial ordering: %+v", cached.Feed)
		}
	})
}
