package fragment

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned by Store.Write when a fragment's vector
// does not match the store's configured embedding dimension. The check runs
// before anything is persisted, so a bad batch never partially lands.
var ErrDimensionMismatch = errors.New("fragment vector dimension does not match store dimension")

// Filter is a single equality predicate over fragment metadata, applied
// server-side during similarity search.
type Filter struct {
	Field string
	Value string
}

// ByUser returns the filter that scopes a query to one user's fragments.
// Every retrieval in the system goes through this filter.
func ByUser(userID string) Filter {
	return Filter{Field: "user_id", Value: userID}
}

// Store persists fragments and serves nearest-neighbour queries over them.
// Stores are append-only: fragments are never mutated or deleted through
// this interface, and re-writing duplicate content is tolerated.
type Store interface {
	// Write persists a batch of fragments in a single all-or-nothing call,
	// assigning each an ID. Returns ErrDimensionMismatch (possibly wrapped)
	// if any vector has the wrong dimension.
	Write(ctx context.Context, frags []Fragment) error

	// Query returns up to topK fragments nearest to vector under cosine
	// similarity, restricted to those matching filter. Results are ordered
	// by descending similarity. An empty result is not an error.
	Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Fragment, error)

	// Dimension reports the embedding dimension the store was created with.
	Dimension() int

	// Close releases underlying resources.
	Close() error
}
