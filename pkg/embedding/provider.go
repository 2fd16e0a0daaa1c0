// Package embedding maps text to fixed-dimension vectors. Both stored
// fragments and live queries go through the same Provider, so everything in
// the fragment store shares one embedding space.
package embedding

import "context"

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts to embeddings in one provider call.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector size.
	Dimension() int
}
