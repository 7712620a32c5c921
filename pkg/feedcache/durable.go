package feedcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
)

// DurableStore implements Store on top of an external transactional engine
// reached through the Collaborator boundary.
//
// All mutations run under the write side of a single lane: insert and delete
// are full barriers, totally ordered with respect to each other and to
// retrieves. Retrieves share the read side, so they run concurrently with
// each other but never overlap a mutation and never observe a torn write.
type DurableStore struct {
	lane         sync.RWMutex
	collaborator Collaborator
	logger       zerolog.Logger
}

// NewDurableStore wraps a collaborator. The collaborator's lifecycle is owned
// by the store from this point; Close closes it.
func NewDurableStore(collaborator Collaborator, logger zerolog.Logger) (*DurableStore, error) {
	if collaborator == nil {
		return nil, errors.New("collaborator cannot be nil")
	}
	return &DurableStore{
		collaborator: collaborator,
		logger:       logger.With().Str("component", "DurableStore").Logger(),
	}, nil
}

// Retrieve fetches the single cache record and decodes it. An absent record,
// or one whose image list is empty, folds to an empty result. Image rows
// missing a mandatory field are dropped rather than failing the whole read.
func (s *DurableStore) Retrieve(ctx context.Context) (*CachedFeed, error) {
	s.lane.RLock()
	defer s.lane.RUnlock()

	rec, err := s.collaborator.FetchCache(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch cache record.")
		return nil, accessError("fetch cache record", err)
	}
	if rec == nil || len(rec.Images) == 0 {
		return nil, nil
	}

	f := make(feed.Feed, 0, len(rec.Images))
	for _, img := range rec.Images {
		decoded, decodeErr := decodeImage(img)
		if decodeErr != nil {
			// Lenient read: prefer partial data over total failure.
			s.logger.Warn().Err(decodeErr).Str("image_id", img.ID).Msg("Dropping undecodable image record.")
			continue
		}
		f = append(f, decoded)
	}
	if len(f) == 0 {
		return nil, nil
	}
	return &CachedFeed{Feed: f, Timestamp: rec.Timestamp}, nil
}

// Insert replaces the whole snapshot in one transaction: any existing record
// is deleted and the new one created before the commit, so no retrieve ever
// observes both or neither.
func (s *DurableStore) Insert(ctx context.Context, f feed.Feed, timestamp time.Time) error {
	s.lane.Lock()
	defer s.lane.Unlock()

	tx, err := s.collaborator.Begin(ctx)
	if err != nil {
		return accessError("begin insert transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteCache(ctx); err != nil {
		return accessError("delete existing cache record", err)
	}
	if err := tx.CreateCache(ctx, encodeRecord(f, timestamp)); err != nil {
		return accessError("create cache record", err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Insert commit failed.")
		return accessError("commit insert", err)
	}

	s.logger.Debug().Int("images", len(f)).Time("timestamp", timestamp).Msg("Cache record replaced.")
	return nil
}

// Delete transactionally clears the persisted record, so a subsequent
// Retrieve observes an empty cache on this backend exactly as it would on the
// in-memory one. Deleting an absent record still succeeds.
func (s *DurableStore) Delete(ctx context.Context) error {
	s.lane.Lock()
	defer s.lane.Unlock()

	tx, err := s.collaborator.Begin(ctx)
	if err != nil {
		return accessError("begin delete transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteCache(ctx); err != nil {
		return accessError("delete cache record", err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Delete commit failed.")
		return accessError("commit delete", err)
	}
	return nil
}

// Close closes the underlying collaborator.
func (s *DurableStore) Close() error {
	return s.collaborator.Close()
}

// accessError translates a collaborator failure into the contract's error
// taxonomy. The cause is rendered as text, not wrapped, so collaborator
// native error types stay behind the boundary.
func accessError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrAccess, op, cause)
}
