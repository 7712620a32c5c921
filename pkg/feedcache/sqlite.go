package feedcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteConfig holds configuration for the SQLite collaborator.
type SQLiteConfig struct {
	// Path is the database file path. Required.
	Path string
}

// SQLiteCollaborator is a transactional collaborator backed by a local SQLite
// database. The schema is one feed_cache row (its primary key is pinned to 1,
// so at most one record can exist) plus feed_images child rows ordered by
// position and removed by cascade when their parent goes.
type SQLiteCollaborator struct {
	sqlDB  *sql.DB
	logger zerolog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feed_cache (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	timestamp INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS feed_images (
	cache_id INTEGER NOT NULL REFERENCES feed_cache(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	id TEXT NOT NULL,
	description TEXT,
	location TEXT,
	url TEXT NOT NULL,
	PRIMARY KEY (cache_id, position)
);`

// OpenSQLiteCollaborator opens (or creates) the database at cfg.Path and
// bootstraps the schema. A store that cannot be opened is a setup error, not
// a steady-state one: callers should treat a failure here as fatal.
func OpenSQLiteCollaborator(cfg *SQLiteConfig, logger zerolog.Logger) (*SQLiteCollaborator, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(cfg.Path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("SQLite feed cache opened.")

	return &SQLiteCollaborator{
		sqlDB:  sqlDB,
		logger: logger.With().Str("component", "SQLiteCollaborator").Logger(),
	}, nil
}

// FetchCache reads the cache row and its ordered image rows. Returns nil when
// no row exists.
func (c *SQLiteCollaborator) FetchCache(ctx context.Context) (*CacheRecord, error) {
	var millis int64
	err := c.sqlDB.QueryRowContext(ctx, `SELECT timestamp FROM feed_cache WHERE id = 1`).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cache row: %w", err)
	}

	rows, err := c.sqlDB.QueryContext(ctx,
		`SELECT id, description, location, url FROM feed_images WHERE cache_id = 1 ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select image rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rec := &CacheRecord{Timestamp: time.UnixMilli(millis).UTC()}
	for rows.Next() {
		var img ImageRecord
		if err := rows.Scan(&img.ID, &img.Description, &img.Location, &img.URL); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		rec.Images = append(rec.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return rec, nil
}

// Begin opens a database transaction.
func (c *SQLiteCollaborator) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// DeleteAll bulk-clears both tables outside any caller transaction.
func (c *SQLiteCollaborator) DeleteAll(ctx context.Context) error {
	if _, err := c.sqlDB.ExecContext(ctx, `DELETE FROM feed_images`); err != nil {
		return fmt.Errorf("delete all image rows: %w", err)
	}
	if _, err := c.sqlDB.ExecContext(ctx, `DELETE FROM feed_cache`); err != nil {
		return fmt.Errorf("delete all cache rows: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (c *SQLiteCollaborator) Close() error {
	if c == nil || c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateCache(ctx context.Context, rec CacheRecord) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO feed_cache (id, timestamp) VALUES (1, ?)`, rec.Timestamp.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert cache row: %w", err)
	}
	for position, img := range rec.Images {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO feed_images (cache_id, position, id, description, location, url)
			 VALUES (1, ?, ?, ?, ?, ?)`,
			position, img.ID, img.Description, img.Location, img.URL)
		if err != nil {
			return fmt.Errorf("insert image row %d: %w", position, err)
		}
	}
	return nil
}

func (t *sqliteTx) DeleteCache(ctx context.Context) error {
	// Image rows are removed explicitly as well as by cascade, so the result
	// does not depend on the foreign_keys pragma surviving pool reconnects.
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM feed_images WHERE cache_id = 1`); err != nil {
		return fmt.Errorf("delete image rows: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM feed_cache WHERE id = 1`); err != nil {
		return fmt.Errorf("delete cache row: %w", err)
	}
	return nil
}

func (t *sqliteTx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
