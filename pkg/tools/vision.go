package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// VisionDescriber implements ImageDescriber on the OpenAI vision-capable
// chat models.
type VisionDescriber struct {
	client    openai.Client
	model     string
	maxTokens int
}

// VisionConfig holds describer configuration.
type VisionConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int // defaults to 500
}

// NewVisionDescriber creates an OpenAI-backed image describer.
func NewVisionDescriber(cfg VisionConfig) (*VisionDescriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &VisionDescriber{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// DescribeImage sends the image URL with the prompt and returns the model's
// description.
func (d *VisionDescriber) DescribeImage(ctx context.Context, imageURL, prompt string) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
	}

	response, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(d.model),
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens: openai.Int(int64(d.maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
