package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements LLMProvider on the chat completions API.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. An empty baseURL uses the
// default API endpoint.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
	}
}

// Provider returns the provider name.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Call sends one chat completion request.
func (p *OpenAIProvider) Call(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	params, err := p.buildParams(request)
	if err != nil {
		return nil, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	calls, err := parseOpenAIToolCalls(completion.Choices[0].Message.ToolCalls)
	if err != nil {
		return nil, err
	}

	return &LLMResponse{
		Content:   completion.Choices[0].Message.Content,
		ToolCalls: calls,
		Usage: &TokenUsage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

func (p *OpenAIProvider) buildParams(request LLMRequest) (*openai.ChatCompletionNewParams, error) {
	messages, err := toOpenAIMessages(request)
	if err != nil {
		return nil, err
	}

	params := &openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	for _, tool := range request.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(tool.InputSchema),
			},
		})
	}
	return params, nil
}

// toOpenAIMessages maps the provider-neutral transcript onto the chat
// completions message union. The system prompt travels as the leading
// message, so system entries inside the transcript are skipped.
func toOpenAIMessages(request LLMRequest) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}

	for _, msg := range request.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "tool":
			messages = append(messages, openai.ToolMessage(msg.ToolCallID, msg.Content))
		case "assistant":
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			withCalls, err := assistantMessageWithCalls(msg)
			if err != nil {
				return nil, err
			}
			messages = append(messages, withCalls)
		}
	}
	return messages, nil
}

// assistantMessageWithCalls rebuilds an assistant turn that issued tool
// calls. Tool arguments ride as JSON strings on the wire.
func assistantMessageWithCalls(msg Message) (openai.ChatCompletionMessageParamUnion, error) {
	var calls []openai.ChatCompletionMessageToolCall
	for _, tc := range msg.ToolCalls {
		args, err := json.Marshal(tc.Parameters)
		if err != nil {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("failed to marshal tool parameters: %w", err)
		}
		calls = append(calls, openai.ChatCompletionMessageToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunction{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	assistant := openai.ChatCompletionMessage{
		Role:      "assistant",
		Content:   msg.Content,
		ToolCalls: calls,
	}
	return assistant.ToParam(), nil
}

func parseOpenAIToolCalls(raw []openai.ChatCompletionMessageToolCall) ([]ToolCall, error) {
	calls := []ToolCall{}
	for _, tc := range raw {
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		calls = append(calls, ToolCall{
			ID:         tc.ID,
			Name:       tc.Function.Name,
			Parameters: params,
		})
	}
	return calls, nil
}
