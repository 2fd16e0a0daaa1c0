// Package chromem implements fragment.Store on chromem-go, a pure-Go
// embedded vector database. Useful for deployments that cannot carry the
// cgo sqlite-vec driver, and for tests.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/fragment"
)

const collectionName = "fragments"

// Store is a fragment.Store backed by chromem-go.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     zerolog.Logger
	mu         sync.RWMutex
}

// Config holds store configuration. An empty Path keeps everything
// in memory.
type Config struct {
	Path      string
	Dimension int
	Logger    zerolog.Logger
}

// New creates a chromem-backed store, persistent when cfg.Path is set.
func New(cfg Config) (*Store, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// No embedding func: vectors are always supplied by the caller.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		dimension:  cfg.Dimension,
		logger:     cfg.Logger,
	}, nil
}

// Write persists the batch. Every vector is validated up front, and a
// mid-batch add failure unwinds the documents already added, so a bad
// batch is never partially visible to queries.
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

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]string, 0, len(frags))
	for i := range frags {
		f := &frags[i]
		if f.ID == "" {
			f.ID = uuid.NewString()
		}

		doc := chromem.Document{
			ID:        f.ID,
			Content:   f.Text,
			Embedding: f.Vector,
			Metadata:  encodeMetadata(f.Meta),
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			// chromem adds documents one at a time; unwind what already
			// landed so a failed batch is never partially visible.
			s.unwind(ctx, added)
			return fmt.Errorf("failed to add document: %w", err)
		}
		added = append(added, f.ID)
	}

	s.logger.Debug().Int("count", len(frags)).Msg("Fragments written")
	return nil
}

// unwind deletes the documents a failed batch managed to add. Called
// with the write lock held.
func (s *Store) unwind(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("Failed to unwind partial batch")
	}
}

// Query returns the topK nearest fragments matching the metadata filter.
// chromem refuses result counts larger than the matching document set, so
// the limit is lowered until the query succeeds (empty set yields nil).
func (s *Store) Query(ctx context.Context, vector []float32, filter fragment.Filter, topK int) ([]fragment.Fragment, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d: %w",
			len(vector), s.dimension, fragment.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where := map[string]string{filter.Field: filter.Value}

	limit := topK
	if count := s.collection.Count(); count < limit {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	var results []chromem.Result
	for ; limit >= 1; limit-- {
		var err error
		results, err = s.collection.QueryEmbedding(ctx, vector, limit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	frags := make([]fragment.Fragment, 0, len(results))
	for _, r := range results {
		frags = append(frags, fragment.Fragment{
			ID:     r.ID,
			Text:   r.Content,
			Vector: r.Embedding,
			Meta:   decodeMetadata(r.Metadata),
		})
	}

	s.logger.Debug().
		Str("filter_field", filter.Field).
		Str("filter_value", filter.Value).
		Int("top_k", topK).
		Int("results", len(frags)).
		Msg("Similarity query completed")

	return frags, nil
}

// Dimension reports the configured embedding dimension.
func (s *Store) Dimension() int {
	return s.dimension
}

// Close is a no-op for the in-memory form; persistence flushes on write.
func (s *Store) Close() error {
	return nil
}

func encodeMetadata(m fragment.Metadata) map[string]string {
	return map[string]string{
		"user_id":     m.UserID,
		"timestamp":   strconv.FormatFloat(m.Timestamp, 'f', -1, 64),
		"filename":    m.Filename,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"source":      m.Source,
		"error":       m.Error,
	}
}

func decodeMetadata(raw map[string]string) fragment.Metadata {
	ts, _ := strconv.ParseFloat(raw["timestamp"], 64)
	idx, _ := strconv.Atoi(raw["chunk_index"])
	return fragment.Metadata{
		UserID:     raw["user_id"],
		Timestamp:  ts,
		Filename:   raw["filename"],
		ChunkIndex: idx,
		Source:     raw["source"],
		Error:      raw["error"],
	}
}

// isInsufficientDocsError reports whether the query failed only because
// fewer documents exist than were requested.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
