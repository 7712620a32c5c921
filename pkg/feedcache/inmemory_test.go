package feedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-feedcache/pkg/feedcache"
)

func TestInMemoryStore_Contract(t *testing.T) {
	runStoreContractSuite(t, func(t *testing.T) feedcache.Store {
		return feedcache.NewInMemoryStore()
	})
}

func TestInMemoryStore_RetrieveReturnsACopy(t *testing.T) {
	ctx := context.Background()
	s := feedcache.NewInMemoryStore()

	original := uniqueFeed(t, 2)
	require.NoError(t, s.Insert(ctx, original, time.UnixMilli(100).UTC()))

	first, err := s.Retrieve(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Mutating the retrieved slice must not reach the live slot.
	first.Feed[0], first.Feed[1] = first.Feed[1], first.Feed[0]

	second, err := s.Retrieve(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, original, second.Feed)
}
