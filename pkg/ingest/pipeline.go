package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/embedding"
	"github.com/zerocode/haybot/pkg/fragment"
)

// Result reports what an ingestion run wrote. Texts holds the stored chunk
// texts in order so the caller can summarize the document without converting
// it a second time.
type Result struct {
	Written int
	Texts   []string
}

// Pipeline converts an uploaded file into fragments and writes them to the
// store.
type Pipeline struct {
	converter Converter
	embedder  embedding.Provider
	store     fragment.Store
	logger    zerolog.Logger
}

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	Converter Converter
	Embedder  embedding.Provider
	Store     fragment.Store
	Logger    zerolog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Converter == nil {
		return nil, errors.New("converter is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedding provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("fragment store is required")
	}

	return &Pipeline{
		converter: cfg.Converter,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}, nil
}

// Ingest converts the file at path into fragments for the user and writes
// them. Conversion problems degrade to an explanatory fragment so the upload
// always leaves a trace in the user's memory; embedding and store failures
// are surfaced because a fragment without a vector can never be retrieved.
func (p *Pipeline) Ingest(ctx context.Context, path, userID, filename string) (*Result, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if filename == "" {
		return nil, errors.New("filename is required")
	}

	frags := p.buildFragments(ctx, path, userID, filename)

	texts := make([]string, len(frags))
	for i, f := range frags {
		texts[i] = f.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks for %s: %w", filename, err)
	}
	for i := range frags {
		frags[i].Vector = vectors[i]
	}

	if err := p.store.Write(ctx, frags); err != nil {
		return nil, fmt.Errorf("failed to store chunks for %s: %w", filename, err)
	}

	p.logger.Info().
		Str("user_id", userID).
		Str("filename", filename).
		Int("fragments", len(frags)).
		Msg("Document ingested")

	return &Result{Written: len(frags), Texts: texts}, nil
}

// buildFragments runs conversion and chunking, degrading to a single
// explanatory fragment when nothing usable comes out.
func (p *Pipeline) buildFragments(ctx context.Context, path, userID, filename string) []fragment.Fragment {
	doc, err := p.converter.Convert(ctx, path)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Str("filename", filename).
			Msg("Document conversion failed, storing fallback fragment")
		return []fragment.Fragment{fragment.NewConversionFailure(userID, filename, err.Error())}
	}

	chunks, err := p.converter.Chunk(ctx, doc)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Str("filename", filename).
			Msg("Document chunking failed, storing fallback fragment")
		return []fragment.Fragment{fragment.NewConversionFailure(userID, filename, err.Error())}
	}

	contextualizer, _ := p.converter.(Contextualizer)

	var frags []fragment.Fragment
	for i, chunk := range chunks {
		text := chunk.Text
		if contextualizer != nil {
			enriched, err := contextualizer.Contextualize(ctx, doc, chunk)
			if err != nil {
				// One malformed chunk must not abort the file.
				p.logger.Warn().
					Err(err).
					Str("filename", filename).
					Int("chunk", i).
					Msg("Chunk contextualization failed, skipping chunk")
				continue
			}
			text = enriched
		}
		if text == "" {
			continue
		}
		frags = append(frags, fragment.NewDocumentChunk(userID, filename, len(frags), text))
	}

	if len(frags) == 0 {
		return []fragment.Fragment{fragment.NewEmptyExtraction(userID, filename)}
	}
	return frags
}
