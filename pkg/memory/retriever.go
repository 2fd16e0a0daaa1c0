package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/fragment"
)

// DefaultTopK is the number of fragments retrieved per query.
const DefaultTopK = 15

// Retriever fetches the fragments most relevant to a query vector and formats
// them as a context block.
type Retriever struct {
	store  fragment.Store
	topK   int
	logger zerolog.Logger
}

// RetrieverConfig holds retriever configuration.
type RetrieverConfig struct {
	Store  fragment.Store
	TopK   int // defaults to DefaultTopK
	Logger zerolog.Logger
}

// NewRetriever creates a context retriever.
func NewRetriever(cfg RetrieverConfig) (*Retriever, error) {
	if cfg.Store == nil {
		return nil, errors.New("fragment store is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Retriever{
		store:  cfg.Store,
		topK:   topK,
		logger: cfg.Logger,
	}, nil
}

// Retrieve queries the store for the user's most similar fragments and joins
// their texts into a single newline-separated block, reordered
// chronologically. A nil query vector or an empty result yields an empty
// string; the store is not queried when the vector is nil.
func (r *Retriever) Retrieve(ctx context.Context, userID string, vector []float32) (string, error) {
	if vector == nil {
		return "", nil
	}
	if userID == "" {
		return "", errors.New("user id is required")
	}

	frags, err := r.store.Query(ctx, vector, fragment.ByUser(userID), r.topK)
	if err != nil {
		return "", fmt.Errorf("failed to query fragments: %w", err)
	}
	if len(frags) == 0 {
		return "", nil
	}

	// Similarity ranks the fragments; chronology presents them. Fragments
	// without a timestamp sort first, and the stable sort keeps equal
	// timestamps in similarity order.
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Meta.Timestamp < frags[j].Meta.Timestamp
	})

	texts := make([]string, len(frags))
	for i, f := range frags {
		texts[i] = f.Text
	}

	r.logger.Debug().
		Str("user_id", userID).
		Int("fragments", len(frags)).
		Msg("Context retrieved")

	return strings.Join(texts, "\n"), nil
}
