// Package tools provides the side tools the agent can call during a chat
// turn: a random dog fact and a dog photo with a breed description.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	dogFactURL  = "https://dogapi.dog/api/v2/facts?limit=1"
	dogImageURL = "https://dog.ceo/api/breeds/image/random"
)

// emptySchema describes a tool that takes no parameters.
func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// DogFactTool returns a random dog fact from the kinduff Dog API.
type DogFactTool struct {
	client  *http.Client
	baseURL string
}

// NewDogFactTool creates the dog fact tool.
func NewDogFactTool() *DogFactTool {
	return &DogFactTool{client: newHTTPClient(), baseURL: dogFactURL}
}

// Name implements agent.Tool.
func (t *DogFactTool) Name() string { return "dog_fact" }

// Description implements agent.Tool.
func (t *DogFactTool) Description() string {
	return "Get a random interesting fact about dogs. Call this when the user asks for a dog fact or wants something interesting about dogs."
}

// InputSchema implements agent.Tool.
func (t *DogFactTool) InputSchema() map[string]interface{} { return emptySchema() }

// Execute fetches one fact.
func (t *DogFactTool) Execute(ctx context.Context, _ map[string]interface{}) (string, error) {
	var payload struct {
		Data []struct {
			Attributes struct {
				Body string `json:"body"`
			} `json:"attributes"`
		} `json:"data"`
	}

	if err := fetchJSON(ctx, t.client, t.baseURL, &payload); err != nil {
		return "", fmt.Errorf("dog fact request failed: %w", err)
	}
	if len(payload.Data) == 0 || payload.Data[0].Attributes.Body == "" {
		return "No fact available.", nil
	}
	return payload.Data[0].Attributes.Body, nil
}

// ImageDescriber turns an image URL into a short textual description.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageURL, prompt string) (string, error)
}

// DogImageTool fetches a random dog photo from dog.ceo and describes the
// breed with the vision model.
type DogImageTool struct {
	client    *http.Client
	baseURL   string
	describer ImageDescriber
}

// NewDogImageTool creates the dog image tool.
func NewDogImageTool(describer ImageDescriber) (*DogImageTool, error) {
	if describer == nil {
		return nil, fmt.Errorf("image describer is required")
	}
	return &DogImageTool{
		client:    newHTTPClient(),
		baseURL:   dogImageURL,
		describer: describer,
	}, nil
}

// Name implements agent.Tool.
func (t *DogImageTool) Name() string { return "dog_image_describe" }

// Description implements agent.Tool.
func (t *DogImageTool) Description() string {
	return "Get a random dog photo with a breed description and brief history. Call this when the user asks for a dog picture or a breed description from a photo."
}

// InputSchema implements agent.Tool.
func (t *DogImageTool) InputSchema() map[string]interface{} { return emptySchema() }

// Execute fetches a photo URL and asks the vision model about it.
func (t *DogImageTool) Execute(ctx context.Context, _ map[string]interface{}) (string, error) {
	var payload struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}

	if err := fetchJSON(ctx, t.client, t.baseURL, &payload); err != nil {
		return "", fmt.Errorf("dog image request failed: %w", err)
	}
	if payload.Message == "" {
		return "No image available.", nil
	}

	prompt := "Describe the dog in the photo: name the breed (or your best guess) and give a brief history of the breed. Keep it short."
	description, err := t.describer.DescribeImage(ctx, payload.Message, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to describe image: %w", err)
	}

	return fmt.Sprintf("Photo: %s\n\n%s", payload.Message, description), nil
}
