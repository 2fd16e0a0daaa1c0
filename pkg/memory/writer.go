// Package memory records conversational turns into the fragment store and
// assembles retrieved fragments into a bounded context block for the agent.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/embedding"
	"github.com/zerocode/haybot/pkg/fragment"
)

// DefaultEpsilon separates the assistant-reply timestamp from the user-turn
// timestamp. It must exceed the store's timestamp sort resolution so the two
// sides of a turn always reconstruct in order, even for instant replies.
const DefaultEpsilon = 0.01

// Writer persists the two fragments of a conversational turn.
type Writer struct {
	embedder embedding.Provider
	store    fragment.Store
	epsilon  float64
	logger   zerolog.Logger
}

// WriterConfig holds writer configuration.
type WriterConfig struct {
	Embedder embedding.Provider
	Store    fragment.Store
	Epsilon  float64 // defaults to DefaultEpsilon
	Logger   zerolog.Logger
}

// NewWriter creates a memory writer.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedding provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("fragment store is required")
	}
	epsilon := cfg.Epsilon
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	return &Writer{
		embedder: cfg.Embedder,
		store:    cfg.Store,
		epsilon:  epsilon,
		logger:   cfg.Logger,
	}, nil
}

// RecordTurn writes exactly two fragments for the turn: the user message at
// now and the assistant reply at now + epsilon. Both are embedded in a single
// batch call and stored in a single batch write. Failures are surfaced to the
// caller; the caller decides whether the user should be told the turn was not
// remembered.
func (w *Writer) RecordTurn(ctx context.Context, userID, userText, replyText string, now time.Time) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	ts := float64(now.UnixNano()) / float64(time.Second)
	frags := []fragment.Fragment{
		fragment.NewUserTurn(userID, userText, ts),
		fragment.NewAssistantTurn(userID, replyText, ts+w.epsilon),
	}

	vectors, err := w.embedder.EmbedBatch(ctx, []string{frags[0].Text, frags[1].Text})
	if err != nil {
		return fmt.Errorf("failed to embed turn: %w", err)
	}
	for i := range frags {
		frags[i].Vector = vectors[i]
	}

	if err := w.store.Write(ctx, frags); err != nil {
		return fmt.Errorf("failed to store turn: %w", err)
	}

	w.logger.Debug().
		Str("user_id", userID).
		Float64("timestamp", ts).
		Msg("Turn recorded")

	return nil
}
