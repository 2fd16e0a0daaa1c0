package embedding

import "context"

// Mock is a deterministic in-process Provider for tests and offline runs.
// Embeddings are derived from a text hash, so identical texts always map to
// identical vectors.
type Mock struct {
	dimension int

	// Err, when set, is returned by every call. Lets tests exercise the
	// degrade paths of callers.
	Err error
}

// NewMock creates a mock provider with the given dimension.
func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

// Dimension returns the configured dimension.
func (m *Mock) Dimension() int {
	return m.dimension
}

// Embed returns a deterministic vector derived from the text.
func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	hash := 0
	for _, c := range text {
		hash = hash*31 + int(c)
	}

	vec := make([]float32, m.dimension)
	for i := 0; i < m.dimension; i++ {
		vec[i] = float32((hash+i)%100) / 100.0
	}
	return vec, nil
}

// EmbedBatch embeds each text with Embed.
func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}
