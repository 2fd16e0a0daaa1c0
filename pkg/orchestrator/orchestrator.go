// Package orchestrator composes one chat turn: embed the query, retrieve the
// user's memory context, run the agent, and record the exchange after the
// reply has been delivered.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerocode/haybot/pkg/agent"
	"github.com/zerocode/haybot/pkg/embedding"
)

const (
	// NoReplyFallback replaces an empty agent reply.
	NoReplyFallback = "I could not come up with a reply. Please try rephrasing."
	// ApologyReply is delivered when a dependency fails mid-turn.
	ApologyReply = "Sorry, something went wrong while handling your message. Please try again."

	contextLabel = "Context from the earlier conversation and uploaded documents:"
	messageLabel = "Current user message:"
)

// ContextRetriever fetches the memory context block for a query vector.
type ContextRetriever interface {
	Retrieve(ctx context.Context, userID string, vector []float32) (string, error)
}

// TurnRecorder persists a completed turn.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, userID, userText, replyText string, now time.Time) error
}

// AgentRunner produces a reply for a composed prompt.
type AgentRunner interface {
	Run(ctx context.Context, systemPrompt, prompt string) (agent.Result, error)
}

// Orchestrator handles one user turn end to end.
type Orchestrator struct {
	embedder     embedding.Provider
	retriever    ContextRetriever
	runner       AgentRunner
	recorder     TurnRecorder
	systemPrompt string
	logger       zerolog.Logger
}

// Config holds orchestrator configuration.
type Config struct {
	Embedder     embedding.Provider
	Retriever    ContextRetriever
	Runner       AgentRunner
	Recorder     TurnRecorder
	SystemPrompt string
	Logger       zerolog.Logger
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedding provider is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("context retriever is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("agent runner is required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("turn recorder is required")
	}

	return &Orchestrator{
		embedder:     cfg.Embedder,
		retriever:    cfg.Retriever,
		runner:       cfg.Runner,
		recorder:     cfg.Recorder,
		systemPrompt: cfg.SystemPrompt,
		logger:       cfg.Logger,
	}, nil
}

// Respond computes the reply for one user message. The returned string is
// always deliverable: dependency failures yield the apology string together
// with a *DependencyError for the caller to log. An embedding failure is not
// a turn failure; the turn proceeds without memory context.
func (o *Orchestrator) Respond(ctx context.Context, userID, userText string) (string, error) {
	vector, err := o.embedder.Embed(ctx, userText)
	if err != nil {
		// Degrade to a context-free turn.
		o.logger.Warn().
			Str("user_id", userID).
			Err(err).
			Msg("Query embedding failed, responding without memory context")
		vector = nil
	}

	contextBlock, err := o.retriever.Retrieve(ctx, userID, vector)
	if err != nil {
		return ApologyReply, &DependencyError{Stage: StageRetrieve, Err: err}
	}

	prompt := userText
	if contextBlock != "" {
		prompt = fmt.Sprintf("%s\n%s\n\n%s %s", contextLabel, contextBlock, messageLabel, userText)
	}

	result, err := o.runner.Run(ctx, o.systemPrompt, prompt)
	if err != nil {
		return ApologyReply, &DependencyError{Stage: StageAgent, Err: err}
	}

	reply := result.Response
	if reply == "" {
		reply = NoReplyFallback
	}

	o.logger.Debug().
		Str("user_id", userID).
		Bool("with_context", contextBlock != "").
		Int("reply_len", len(reply)).
		Msg("Turn completed")

	return reply, nil
}

// Remember records the delivered turn. It is called after the transport has
// confirmed delivery so memory-write latency never delays the reply. A
// failure here means the turn was not remembered; it is surfaced for logging,
// not retried.
func (o *Orchestrator) Remember(ctx context.Context, userID, userText, replyText string) error {
	if err := o.recorder.RecordTurn(ctx, userID, userText, replyText, time.Now()); err != nil {
		o.logger.Error().
			Str("user_id", userID).
			Err(err).
			Msg("Turn was not recorded to memory")
		return &DependencyError{Stage: StageMemory, Err: err}
	}
	return nil
}
