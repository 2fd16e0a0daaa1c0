// Package summary produces a one-sentence description of an ingested
// document from its chunk texts.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// NoTextSentence is returned for documents with no extractable text. No
// model call is made in that case.
const NoTextSentence = "The document contains no readable text."

// DefaultMaxChars bounds how much document text is sent to the model.
const DefaultMaxChars = 10000

// Completer is the one-shot text generation capability the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Summarizer condenses document chunks into a single sentence.
type Summarizer struct {
	completer Completer
	maxChars  int
	maxTokens int
	logger    zerolog.Logger
}

// Config holds summarizer configuration.
type Config struct {
	Completer Completer
	MaxChars  int // defaults to DefaultMaxChars
	MaxTokens int // defaults to 100
	Logger    zerolog.Logger
}

// New creates a summarizer.
func New(cfg Config) (*Summarizer, error) {
	if cfg.Completer == nil {
		return nil, errors.New("completer is required")
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 100
	}

	return &Summarizer{
		completer: cfg.Completer,
		maxChars:  maxChars,
		maxTokens: maxTokens,
		logger:    cfg.Logger,
	}, nil
}

// Summarize joins the chunks in order, truncates the text at the configured
// character bound and asks the model for exactly one sentence. Empty input
// short-circuits to NoTextSentence.
func (s *Summarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	text := strings.TrimSpace(strings.Join(chunks, "\n"))
	if text == "" {
		return NoTextSentence, nil
	}

	// The bound counts characters, not bytes, so multibyte text is never
	// cut mid-rune.
	if runes := []rune(text); len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}

	prompt := fmt.Sprintf(
		"Describe the following document in exactly one sentence:\n\n%s",
		text,
	)

	sentence, err := s.completer.Complete(ctx, prompt, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to summarize document: %w", err)
	}

	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return NoTextSentence, nil
	}

	s.logger.Debug().Int("chars", len(text)).Msg("Document summarized")

	return sentence, nil
}
