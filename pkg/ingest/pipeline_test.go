package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerocode/haybot/pkg/embedding"
	"github.com/zerocode/haybot/pkg/fragment"
)

// fakeConverter returns canned chunks or errors per step.
type fakeConverter struct {
	chunks     []Chunk
	convertErr error
	chunkErr   error

	contextualizeErr    error
	failContextualizeAt int
}

func (c *fakeConverter) Convert(context.Context, string) (*Document, error) {
	if c.convertErr != nil {
		return nil, c.convertErr
	}
	return &Document{Title: "doc"}, nil
}

func (c *fakeConverter) Chunk(context.Context, *Document) ([]Chunk, error) {
	if c.chunkErr != nil {
		return nil, c.chunkErr
	}
	return c.chunks, nil
}

func (c *fakeConverter) Contextualize(_ context.Context, _ *Document, chunk Chunk) (string, error) {
	if c.contextualizeErr != nil {
		for i, candidate := range c.chunks {
			if candidate.Text == chunk.Text && i == c.failContextualizeAt {
				return "", c.contextualizeErr
			}
		}
	}
	return chunk.Text, nil
}

// memStore collects written fragments.
type memStore struct {
	fragments []fragment.Fragment
	dimension int
	writeErr  error
}

func (s *memStore) Write(_ context.Context, frags []fragment.Fragment) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.fragments = append(s.fragments, frags...)
	return nil
}

func (s *memStore) Query(context.Context, []float32, fragment.Filter, int) ([]fragment.Fragment, error) {
	return nil, nil
}

func (s *memStore) Dimension() int { return s.dimension }
func (s *memStore) Close() error   { return nil }

func newTestPipeline(t *testing.T, converter Converter, store fragment.Store, embedder embedding.Provider) *Pipeline {
	t.Helper()
	p, err := NewPipeline(PipelineConfig{
		Converter: converter,
		Embedder:  embedder,
		Store:     store,
	})
	require.NoError(t, err)
	return p
}

func TestPipelineIngest(t *testing.T) {
	converter := &fakeConverter{chunks: []Chunk{{Text: "alpha"}, {Text: "beta"}, {Text: "gamma"}}}
	store := &memStore{dimension: 8}
	p := newTestPipeline(t, converter, store, embedding.NewMock(8))

	result, err := p.Ingest(context.Background(), "/tmp/doc.txt", "user-1", "doc.txt")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Written)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, result.Texts)

	require.Len(t, store.fragments, 3)
	for i, f := range store.fragments {
		assert.Equal(t, "user-1", f.Meta.UserID)
		assert.Equal(t, "doc.txt", f.Meta.Filename)
		assert.Equal(t, i, f.Meta.ChunkIndex)
		assert.Equal(t, fragment.SourceDocument, f.Meta.Source)
		assert.Len(t, f.Vector, 8)
	}
}

func TestPipelineIngestConversionFailure(t *testing.T) {
	converter := &fakeConverter{convertErr: errors.New("unsupported format")}
	store := &memStore{dimension: 8}
	p := newTestPipeline(t, converter, store, embedding.NewMock(8))

	result, err := p.Ingest(context.Background(), "/tmp/doc.bin", "user-1", "doc.bin")
	require.NoError(t, err, "conversion failure must degrade, not fail")

	assert.Equal(t, 1, result.Written)
	require.Len(t, store.fragments, 1)

	f := store.fragments[0]
	assert.Contains(t, f.Text, "doc.bin")
	assert.Contains(t, f.Text, "unsupported format")
	assert.Equal(t, 0, f.Meta.ChunkIndex)
	assert.Equal(t, "unsupported format", f.Meta.Error)
	assert.Len(t, f.Vector, 8, "even the fallback fragment must be retrievable")
}

func TestPipelineIngestZeroChunks(t *testing.T) {
	converter := &fakeConverter{chunks: nil}
	store := &memStore{dimension: 8}
	p := newTestPipeline(t, converter, store, embedding.NewMock(8))

	result, err := p.Ingest(context.Background(), "/tmp/empty.txt", "user-1", "empty.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Written)
	require.Len(t, store.fragments, 1)
	assert.Contains(t, store.fragments[0].Text, "no text could be extracted")
}

func TestPipelineIngestSkipsFailedChunks(t *testing.T) {
	converter := &fakeConverter{
		chunks:              []Chunk{{Text: "good-1"}, {Text: "bad"}, {Text: "good-2"}},
		contextualizeErr:    errors.New("malformed chunk"),
		failContextualizeAt: 1,
	}
	store := &memStore{dimension: 8}
	p := newTestPipeline(t, converter, store, embedding.NewMock(8))

	result, err := p.Ingest(context.Background(), "/tmp/doc.txt", "user-1", "doc.txt")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Written)
	require.Len(t, store.fragments, 2)

	// Indices stay dense after the skip.
	assert.Equal(t, 0, store.fragments[0].Meta.ChunkIndex)
	assert.Equal(t, 1, store.fragments[1].Meta.ChunkIndex)
	assert.Equal(t, "good-1", store.fragments[0].Text)
	assert.Equal(t, "good-2", store.fragments[1].Text)
}

func TestPipelineIngestEmbeddingFailure(t *testing.T) {
	converter := &fakeConverter{chunks: []Chunk{{Text: "alpha"}}}
	store := &memStore{dimension: 8}
	embedder := embedding.NewMock(8)
	embedder.Err = errors.New("rate limited")
	p := newTestPipeline(t, converter, store, embedder)

	_, err := p.Ingest(context.Background(), "/tmp/doc.txt", "user-1", "doc.txt")
	require.Error(t, err, "embedding failure must surface")
	assert.Empty(t, store.fragments)
}

func TestPipelineIngestStoreFailure(t *testing.T) {
	converter := &fakeConverter{chunks: []Chunk{{Text: "alpha"}}}
	store := &memStore{dimension: 8, writeErr: errors.New("disk full")}
	p := newTestPipeline(t, converter, store, embedding.NewMock(8))

	_, err := p.Ingest(context.Background(), "/tmp/doc.txt", "user-1", "doc.txt")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "doc.txt"))
}

func TestPipelineIngestValidation(t *testing.T) {
	p := newTestPipeline(t, &fakeConverter{}, &memStore{dimension: 8}, embedding.NewMock(8))

	_, err := p.Ingest(context.Background(), "/tmp/doc.txt", "", "doc.txt")
	require.Error(t, err)

	_, err = p.Ingest(context.Background(), "/tmp/doc.txt", "user-1", "")
	require.Error(t, err)
}

func TestTextConverterRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	content := "# Release Notes\n\nFirst paragraph of the notes.\n\n## Fixes\n\nFixed the thing.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	converter, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	doc, err := converter.Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Release Notes", doc.Title)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Fixes", doc.Sections[1].Heading)

	chunks, err := converter.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	enriched, err := converter.Contextualize(context.Background(), doc, chunks[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enriched, "Release Notes"))
}

func TestTextConverterRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xFF}, 0o644))

	converter, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	_, err = converter.Convert(context.Background(), path)
	require.Error(t, err)
}

func TestTextConverterChunkOverlap(t *testing.T) {
	converter, err := NewTextConverter(TextConverterConfig{MinChunkSize: 10, MaxChunkSize: 40, Overlap: 8})
	require.NoError(t, err)

	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, strings.Repeat("x", 15))
	}
	doc := &Document{Sections: []Section{{Text: strings.Join(lines, "\n")}}}

	chunks, err := converter.Chunk(context.Background(), doc)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 40+8)
	}
}
