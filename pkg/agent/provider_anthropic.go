package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements LLMProvider on the Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider. An empty baseURL
// uses the default API endpoint.
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
	}
}

// Provider returns the provider name.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Call sends one Messages API request.
func (p *AnthropicProvider) Call(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(request))
	if err != nil {
		return nil, err
	}
	return parseAnthropicMessage(message)
}

func (p *AnthropicProvider) buildParams(request LLMRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		Messages:  toAnthropicMessages(request.Messages),
		MaxTokens: int64(request.MaxTokens),
	}
	if request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemPrompt},
		}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}
	for _, tool := range request.Tools {
		params.Tools = append(params.Tools, toAnthropicTool(tool))
	}
	return params
}

// toAnthropicMessages maps the provider-neutral transcript onto Messages
// API turns. The API has no tool role, so tool results ride inside user
// messages as tool_result blocks; system entries are carried in the
// request's System field instead.
func toAnthropicMessages(transcript []Message) []anthropic.MessageParam {
	turns := []anthropic.MessageParam{}
	for _, msg := range transcript {
		switch msg.Role {
		case "user":
			turns = append(turns, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case "tool":
			turns = append(turns, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		case "assistant":
			turns = append(turns, assistantTurn(msg))
		}
	}
	return turns
}

func assistantTurn(msg Message) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Parameters, tc.Name))
	}
	return anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleAssistant,
		Content: blocks,
	}
}

func toAnthropicTool(tool ToolDefinition) anthropic.ToolUnionParam {
	param := anthropic.ToolParam{
		Name:        tool.Name,
		Description: anthropic.String(tool.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema["properties"],
		},
	}
	if required, ok := tool.InputSchema["required"].([]string); ok {
		param.InputSchema.Required = required
	}
	return anthropic.ToolUnionParam{OfTool: &param}
}

// parseAnthropicMessage folds the response content blocks back into the
// provider-neutral shape. Text blocks concatenate; tool_use inputs arrive
// as raw JSON and are decoded here.
func parseAnthropicMessage(message *anthropic.Message) (*LLMResponse, error) {
	content := ""
	calls := []ToolCall{}

	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			var params map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &params); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			calls = append(calls, ToolCall{
				ID:         b.ID,
				Name:       b.Name,
				Parameters: params,
			})
		}
	}

	return &LLMResponse{
		Content:   content,
		ToolCalls: calls,
		Usage: &TokenUsage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
