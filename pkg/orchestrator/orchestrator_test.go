package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerocode/haybot/pkg/agent"
	"github.com/zerocode/haybot/pkg/embedding"
)

type fakeRetriever struct {
	block      string
	err        error
	lastVector []float32
	calls      int
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ string, vector []float32) (string, error) {
	r.calls++
	r.lastVector = vector
	if r.err != nil {
		return "", r.err
	}
	if vector == nil {
		return "", nil
	}
	return r.block, nil
}

type fakeRunner struct {
	response   string
	err        error
	lastPrompt string
	lastSystem string
}

func (r *fakeRunner) Run(_ context.Context, systemPrompt, prompt string) (agent.Result, error) {
	r.lastSystem = systemPrompt
	r.lastPrompt = prompt
	if r.err != nil {
		return agent.Result{}, r.err
	}
	return agent.Result{Response: r.response}, nil
}

type fakeRecorder struct {
	err      error
	calls    int
	lastUser string
}

func (r *fakeRecorder) RecordTurn(_ context.Context, userID, _, _ string, _ time.Time) error {
	r.calls++
	r.lastUser = userID
	return r.err
}

func newTestOrchestrator(t *testing.T, retriever ContextRetriever, runner AgentRunner, recorder TurnRecorder) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Embedder:     embedding.NewMock(8),
		Retriever:    retriever,
		Runner:       runner,
		Recorder:     recorder,
		SystemPrompt: "be helpful",
	})
	require.NoError(t, err)
	return o
}

func TestRespondWithContext(t *testing.T) {
	retriever := &fakeRetriever{block: "user: hi\nassistant: hello"}
	runner := &fakeRunner{response: "glad to continue"}
	o := newTestOrchestrator(t, retriever, runner, &fakeRecorder{})

	reply, err := o.Respond(context.Background(), "user-1", "what did I say?")
	require.NoError(t, err)
	assert.Equal(t, "glad to continue", reply)

	assert.Equal(t, "be helpful", runner.lastSystem)
	assert.Contains(t, runner.lastPrompt, "user: hi\nassistant: hello")
	assert.Contains(t, runner.lastPrompt, "what did I say?")
	assert.True(t, strings.Index(runner.lastPrompt, "user: hi") < strings.Index(runner.lastPrompt, "what did I say?"),
		"context must precede the user message")
}

func TestRespondWithoutContext(t *testing.T) {
	retriever := &fakeRetriever{block: ""}
	runner := &fakeRunner{response: "hello"}
	o := newTestOrchestrator(t, retriever, runner, &fakeRecorder{})

	reply, err := o.Respond(context.Background(), "user-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "hi", runner.lastPrompt, "empty context must pass the raw message")
}

func TestRespondEmbeddingFailureDegrades(t *testing.T) {
	embedder := embedding.NewMock(8)
	embedder.Err = errors.New("embedding down")

	retriever := &fakeRetriever{block: "should not appear"}
	runner := &fakeRunner{response: "still fine"}
	o, err := New(Config{
		Embedder:  embedder,
		Retriever: retriever,
		Runner:    runner,
		Recorder:  &fakeRecorder{},
	})
	require.NoError(t, err)

	reply, err := o.Respond(context.Background(), "user-1", "hi")
	require.NoError(t, err, "embedding failure is a degrade path, not a turn failure")
	assert.Equal(t, "still fine", reply)
	assert.Nil(t, retriever.lastVector, "retriever must see the absent vector")
	assert.Equal(t, "hi", runner.lastPrompt)
}

func TestRespondRetrieveFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("store timeout")}
	o := newTestOrchestrator(t, retriever, &fakeRunner{response: "x"}, &fakeRecorder{})

	reply, err := o.Respond(context.Background(), "user-1", "hi")
	assert.Equal(t, ApologyReply, reply)

	depErr, ok := AsDependencyError(err)
	require.True(t, ok)
	assert.Equal(t, StageRetrieve, depErr.Stage)
}

func TestRespondAgentFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("model unavailable")}
	o := newTestOrchestrator(t, &fakeRetriever{}, runner, &fakeRecorder{})

	reply, err := o.Respond(context.Background(), "user-1", "hi")
	assert.Equal(t, ApologyReply, reply)

	depErr, ok := AsDependencyError(err)
	require.True(t, ok)
	assert.Equal(t, StageAgent, depErr.Stage)
}

func TestRespondEmptyReplyFallback(t *testing.T) {
	runner := &fakeRunner{response: ""}
	o := newTestOrchestrator(t, &fakeRetriever{}, runner, &fakeRecorder{})

	reply, err := o.Respond(context.Background(), "user-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, NoReplyFallback, reply)
}

func TestRemember(t *testing.T) {
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeRetriever{}, &fakeRunner{}, recorder)

	err := o.Remember(context.Background(), "user-1", "hi", "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, "user-1", recorder.lastUser)
}

func TestRememberFailureSurfaced(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("store down")}
	o := newTestOrchestrator(t, &fakeRetriever{}, &fakeRunner{}, recorder)

	err := o.Remember(context.Background(), "user-1", "hi", "hello")
	require.Error(t, err)

	depErr, ok := AsDependencyError(err)
	require.True(t, ok)
	assert.Equal(t, StageMemory, depErr.Stage)
}
