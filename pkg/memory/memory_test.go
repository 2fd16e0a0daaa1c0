package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/zerocode/haybot/pkg/fragment"
)

// fakeStore is an in-memory fragment store for tests. Query returns all
// fragments matching the filter, capped at topK, in insertion order.
type fakeStore struct {
	mu        sync.Mutex
	fragments []fragment.Fragment
	dimension int

	writeErr error
	queryErr error
}

func newFakeStore(dimension int) *fakeStore {
	return &fakeStore{dimension: dimension}
}

func (s *fakeStore) Write(_ context.Context, frags []fragment.Fragment) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range frags {
		if len(f.Vector) != s.dimension {
			return fragment.ErrDimensionMismatch
		}
	}
	s.fragments = append(s.fragments, frags...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, vector []float32, filter fragment.Filter, topK int) ([]fragment.Fragment, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(vector) != s.dimension {
		return nil, fragment.ErrDimensionMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []fragment.Fragment
	for _, f := range s.fragments {
		if filter.Field == "user_id" && f.Meta.UserID != filter.Value {
			continue
		}
		out = append(out, f)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Dimension() int { return s.dimension }

func (s *fakeStore) Close() error { return nil }

var errBoom = errors.New("boom")
