// Package sqlitevec implements fragment.Store on SQLite with the sqlite-vec
// extension. It is the default driver: durable, embedded, no external
// service.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/fragment"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// filterColumns maps queryable metadata fields to table columns. Anything
// else is rejected instead of being interpolated into SQL.
var filterColumns = map[string]string{
	"user_id":  "user_id",
	"filename": "filename",
	"source":   "source",
}

// Store is a fragment.Store backed by a local SQLite database.
type Store struct {
	db        *sql.DB
	dimension int
	logger    zerolog.Logger
}

// Config holds store configuration.
type Config struct {
	Path      string // database file path
	Dimension int    // embedding dimension, fixed per deployment
	Logger    zerolog.Logger
}

// New opens (creating if needed) the fragment database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:        db,
		dimension: cfg.Dimension,
		logger:    cfg.Logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.Path).Int("dimension", cfg.Dimension).Msg("Fragment store opened")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS fragments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			ts REAL NOT NULL DEFAULT 0,
			filename TEXT NOT NULL DEFAULT '',
			chunk_idx INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_fragments_user ON fragments(user_id);
		CREATE INDEX IF NOT EXISTS idx_fragments_file ON fragments(user_id, filename);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	vectorSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS fragment_vectors USING vec0(
			fragment_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, s.dimension)
	if _, err := s.db.Exec(vectorSchema); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}

	return nil
}

// Write persists the batch inside one transaction. The dimension of every
// vector is checked before the transaction starts, so a bad batch fails
// whole and early.
func (s *Store) Write(ctx context.Context, frags []fragment.Fragment) error {
	if len(frags) == 0 {
		return nil
	}

	for i, f := range frags {
		if len(f.Vector) != s.dimension {
			return fmt.Errorf("fragment %d has dimension %d, store expects %d: %w",
				i, len(f.Vector), s.dimension, fragment.ErrDimensionMismatch)
		}
		if f.Meta.UserID == "" {
			return fmt.Errorf("fragment %d has no user_id", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range frags {
		f := &frags[i]
		if f.ID == "" {
			f.ID = uuid.NewString()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO fragments (id, user_id, text, ts, filename, chunk_idx, source, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Meta.UserID, f.Text, f.Meta.Timestamp, f.Meta.Filename,
			f.Meta.ChunkIndex, f.Meta.Source, f.Meta.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fragment: %w", err)
		}

		embeddingJSON, err := json.Marshal(f.Vector)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO fragment_vectors (fragment_id, embedding) VALUES (?, ?)",
			f.ID, string(embeddingJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	s.logger.Debug().Int("count", len(frags)).Msg("Fragments written")
	return nil
}

// Query returns the topK nearest fragments under the metadata filter,
// ordered by ascending cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, filter fragment.Filter, topK int) ([]fragment.Fragment, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d: %w",
			len(vector), s.dimension, fragment.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	column, ok := filterColumns[filter.Field]
	if !ok {
		return nil, fmt.Errorf("unsupported filter field: %q", filter.Field)
	}

	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query vector: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT f.id, f.user_id, f.text, f.ts, f.filename, f.chunk_idx, f.source, f.error,
		       vec_distance_cosine(v.embedding, ?) AS distance
		FROM fragment_vectors v
		JOIN fragments f ON f.id = v.fragment_id
		WHERE f.%s = ?
		ORDER BY distance ASC
		LIMIT ?
	`, column)

	rows, err := s.db.QueryContext(ctx, query, string(embeddingJSON), filter.Value, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var results []fragment.Fragment
	for rows.Next() {
		var f fragment.Fragment
		var distance float64
		if err := rows.Scan(&f.ID, &f.Meta.UserID, &f.Text, &f.Meta.Timestamp,
			&f.Meta.Filename, &f.Meta.ChunkIndex, &f.Meta.Source, &f.Meta.Error,
			&distance); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("filter_field", filter.Field).
		Str("filter_value", filter.Value).
		Int("top_k", topK).
		Int("results", len(results)).
		Msg("Similarity query completed")

	return results, nil
}

// Dimension reports the configured embedding dimension.
func (s *Store) Dimension() int {
	return s.dimension
}

// CountByUser returns the number of fragments stored for a user.
func (s *Store) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fragments WHERE user_id = ?", userID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
