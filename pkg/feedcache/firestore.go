package feedcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore collaborator.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
	// DocumentID names the single cache document. A well-known id keeps the
	// "at most one record" invariant structural rather than enforced by query.
	DocumentID string
}

// firestoreDoc is the document rendering of a CacheRecord: the timestamp plus
// the image array in feed order.
type firestoreDoc struct {
	Timestamp time.Time     `firestore:"timestamp"`
	Images    []ImageRecord `firestore:"images"`
}

// FirestoreCollaborator is a transactional collaborator backed by a single
// Firestore document. The injected client's lifecycle is managed externally.
type FirestoreCollaborator struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
	logger zerolog.Logger
}

// NewFirestoreCollaborator wraps an existing Firestore client.
func NewFirestoreCollaborator(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreCollaborator, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" || cfg.DocumentID == "" {
		return nil, errors.New("firestore collection and document id are required")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("Firestore feed cache initialized.")

	return &FirestoreCollaborator{
		client: client,
		doc:    client.Collection(cfg.CollectionName).Doc(cfg.DocumentID),
		logger: logger.With().Str("component", "FirestoreCollaborator").Logger(),
	}, nil
}

// FetchCache reads the cache document. A missing document folds to nil.
func (c *FirestoreCollaborator) FetchCache(ctx context.Context) (*CacheRecord, error) {
	snap, err := c.doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get: %w", err)
	}
	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore DataTo: %w", err)
	}
	return &CacheRecord{Timestamp: doc.Timestamp, Images: doc.Images}, nil
}

// Begin opens a buffered transactional context. Firestore transactions are
// callback-scoped, so the Tx records the create/delete ops and replays them
// inside RunTransaction when Commit is called.
func (c *FirestoreCollaborator) Begin(_ context.Context) (Tx, error) {
	return &firestoreTx{client: c.client, doc: c.doc}, nil
}

// DeleteAll removes the cache document. With a single well-known document the
// bulk clear and the single delete coincide.
func (c *FirestoreCollaborator) DeleteAll(ctx context.Context) error {
	if _, err := c.doc.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore delete: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (c *FirestoreCollaborator) Close() error {
	return nil
}

type firestoreOp struct {
	create *firestoreDoc
	delete bool
}

type firestoreTx struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
	ops    []firestoreOp
}

func (t *firestoreTx) CreateCache(_ context.Context, rec CacheRecord) error {
	t.ops = append(t.ops, firestoreOp{create: &firestoreDoc{Timestamp: rec.Timestamp, Images: rec.Images}})
	return nil
}

func (t *firestoreTx) DeleteCache(_ context.Context) error {
	t.ops = append(t.ops, firestoreOp{delete: true})
	return nil
}

// Commit replays the buffered ops inside one Firestore transaction, so the
// delete-then-create of a replace lands atomically or not at all.
func (t *firestoreTx) Commit(ctx context.Context) error {
	err := t.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		for _, op := range t.ops {
			if op.delete {
				if err := tx.Delete(t.doc); err != nil {
					return err
				}
				continue
			}
			if err := tx.Set(t.doc, op.create); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("firestore transaction: %w", err)
	}
	t.ops = nil
	return nil
}

func (t *firestoreTx) Rollback() error {
	// Nothing is applied before Commit, so rollback just drops the buffer.
	t.ops = nil
	return nil
}
