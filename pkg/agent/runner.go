package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// maxTurns bounds the tool loop so a model that keeps calling tools
	// cannot spin forever.
	maxTurns = 10
	// toolTimeout bounds a single tool execution.
	toolTimeout = 30 * time.Second
)

// Tool is a capability the model can invoke during a run.
type Tool interface {
	// Name returns the tool name exposed to the model.
	Name() string
	// Description tells the model what the tool does.
	Description() string
	// InputSchema returns the JSON schema of the tool parameters.
	InputSchema() map[string]interface{}
	// Execute runs the tool with model-provided parameters.
	Execute(ctx context.Context, params map[string]interface{}) (string, error)
}

// Runner drives a single agent conversation turn against an LLM provider,
// executing tool calls until the model produces a final text response.
type Runner struct {
	provider LLMProvider
	tools    map[string]Tool
	toolDefs []ToolDefinition
	config   RunConfig
	logger   zerolog.Logger
}

// Config holds runner configuration
type Config struct {
	Provider LLMProvider
	Tools    []Tool
	Run      RunConfig
	Logger   zerolog.Logger
}

// NewRunner creates a new agent runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if err := cfg.Run.check(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runner{
		provider: cfg.Provider,
		tools:    make(map[string]Tool, len(cfg.Tools)),
		config:   cfg.Run,
		logger:   cfg.Logger,
	}
	for _, tool := range cfg.Tools {
		if _, exists := r.tools[tool.Name()]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", tool.Name())
		}
		r.tools[tool.Name()] = tool
		r.toolDefs = append(r.toolDefs, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return r, nil
}

func (c RunConfig) check() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Run executes one conversation turn. systemPrompt carries the assembled
// memory context; prompt is the user's message.
func (r *Runner) Run(ctx context.Context, systemPrompt, prompt string) (Result, error) {
	transcript := []Message{{Role: "user", Content: prompt}}
	made := []ToolCall{}

	for turn := 0; turn < maxTurns; turn++ {
		if ctx.Err() != nil {
			return Result{Aborted: true}, nil
		}

		response, err := r.call(ctx, transcript, systemPrompt)
		if err != nil {
			return Result{}, err
		}

		// A response without tool calls ends the turn.
		if len(response.ToolCalls) == 0 {
			return Result{
				Response:  response.Content,
				ToolCalls: made,
				Usage:     response.Usage,
			}, nil
		}

		transcript = append(transcript, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, tc := range response.ToolCalls {
			transcript = append(transcript, r.runTool(ctx, tc).asMessage())
		}
		made = append(made, response.ToolCalls...)
	}

	return Result{}, fmt.Errorf("maximum tool execution turns exceeded")
}

// asMessage folds a tool result into the transcript. Errors travel back
// to the model as result text.
func (tr ToolResult) asMessage() Message {
	content := tr.Output
	if tr.Error != "" {
		content = tr.Error
	}
	return Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: tr.ToolCallID,
	}
}

// runTool executes one tool call. Tool failures go back to the model as
// result text instead of aborting the turn.
func (r *Runner) runTool(ctx context.Context, tc ToolCall) ToolResult {
	tool, exists := r.tools[tc.Name]
	if !exists {
		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("unknown tool: %s", tc.Name),
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	output, err := tool.Execute(toolCtx, tc.Parameters)
	if err != nil {
		r.logger.Warn().
			Str("tool", tc.Name).
			Err(err).
			Msg("Tool execution failed")
		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("tool %s failed: %s", tc.Name, err),
		}
	}
	return ToolResult{
		ToolCallID: tc.ID,
		Output:     output,
	}
}

// call hits the provider with exponential backoff on transient errors.
func (r *Runner) call(ctx context.Context, transcript []Message, systemPrompt string) (*LLMResponse, error) {
	retries := r.config.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	request := LLMRequest{
		Model:        r.config.Model,
		Messages:     transcript,
		Tools:        r.toolDefs,
		Temperature:  r.config.Temperature,
		MaxTokens:    r.config.MaxTokens,
		SystemPrompt: systemPrompt,
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		response, err := r.provider.Call(ctx, request)
		if err == nil {
			return response, nil
		}
		if !IsRetryableError(err) {
			return nil, err
		}
		lastErr = err
		if attempt == retries-1 {
			break
		}

		// 1s, 2s, 4s...
		delay := time.Duration(1<<attempt) * time.Second
		r.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", retries, lastErr)
}
