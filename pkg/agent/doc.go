// Package agent drives LLM conversation turns with an optional tool loop.
//
// Invariants:
// - Tool failures are returned to the model as tool-result text, never as run failures.
// - Retries apply only to transient provider errors, with exponential backoff.
// - A run is bounded to ten tool turns.
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{
//		Provider: provider,
//		Run:      agent.DefaultRunConfig(),
//	})
//	result, _ := runner.Run(ctx, systemPrompt, "hello")
//	_ = result
package agent
