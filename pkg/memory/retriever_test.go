package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerocode/haybot/pkg/fragment"
)

func newTestRetriever(t *testing.T, store fragment.Store, topK int) *Retriever {
	t.Helper()
	r, err := NewRetriever(RetrieverConfig{Store: store, TopK: topK})
	require.NoError(t, err)
	return r
}

func storedFragment(userID, text string, ts float64) fragment.Fragment {
	return fragment.Fragment{
		Text:   text,
		Vector: make([]float32, 4),
		Meta: fragment.Metadata{
			UserID:    userID,
			Timestamp: ts,
			Source:    fragment.SourceUser,
		},
	}
}

func TestNewRetriever(t *testing.T) {
	r, err := NewRetriever(RetrieverConfig{Store: newFakeStore(4)})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, r.topK)

	_, err = NewRetriever(RetrieverConfig{})
	require.Error(t, err)
}

func TestRetrieverNilVector(t *testing.T) {
	store := newFakeStore(4)
	store.queryErr = errBoom // must not be reached
	r := newTestRetriever(t, store, 5)

	block, err := r.Retrieve(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, block)
}

func TestRetrieverEmptyResult(t *testing.T) {
	r := newTestRetriever(t, newFakeStore(4), 5)

	block, err := r.Retrieve(context.Background(), "user-1", make([]float32, 4))
	require.NoError(t, err)
	assert.Empty(t, block)
}

func TestRetrieverChronologicalOrder(t *testing.T) {
	store := newFakeStore(4)
	ctx := context.Background()

	// Inserted in similarity order, deliberately out of chronological order.
	require.NoError(t, store.Write(ctx, []fragment.Fragment{
		storedFragment("user-1", "third", 30),
		storedFragment("user-1", "first", 10),
		storedFragment("user-1", "second", 20),
	}))

	r := newTestRetriever(t, store, 5)
	block, err := r.Retrieve(ctx, "user-1", make([]float32, 4))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird", block)
}

func TestRetrieverMissingTimestampsFirst(t *testing.T) {
	store := newFakeStore(4)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, []fragment.Fragment{
		storedFragment("user-1", "dated", 10),
		storedFragment("user-1", "undated a", 0),
		storedFragment("user-1", "undated b", 0),
	}))

	r := newTestRetriever(t, store, 5)
	block, err := r.Retrieve(ctx, "user-1", make([]float32, 4))
	require.NoError(t, err)

	// Undated fragments come first, keeping their relative similarity order.
	assert.Equal(t, "undated a\nundated b\ndated", block)
}

func TestRetrieverFiltersByUser(t *testing.T) {
	store := newFakeStore(4)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, []fragment.Fragment{
		storedFragment("user-1", "mine", 10),
		storedFragment("user-2", "theirs", 20),
	}))

	r := newTestRetriever(t, store, 5)
	block, err := r.Retrieve(ctx, "user-1", make([]float32, 4))
	require.NoError(t, err)
	assert.Equal(t, "mine", block)
}

func TestRetrieverStoreFailure(t *testing.T) {
	store := newFakeStore(4)
	store.queryErr = errBoom
	r := newTestRetriever(t, store, 5)

	_, err := r.Retrieve(context.Background(), "user-1", make([]float32, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}
