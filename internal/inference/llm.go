package inference

import (
	"context"
	"fmt"
)

// LLMClient talks to the local text generation service.
type LLMClient struct {
	httpClient
	modelPath string
	maxTokens int
}

// NewLLMClient creates a local LLM client. modelPath selects the weights
// the service should load.
func NewLLMClient(baseURL, modelPath string) *LLMClient {
	return &LLMClient{
		httpClient: newHTTPClient(baseURL, DefaultLLMURL),
		modelPath:  modelPath,
		maxTokens:  64,
	}
}

type llmRequest struct {
	ModelPath string `json:"model_path"`
	MaxTokens int    `json:"max_tokens"`
	Prompt    string `json:"prompt"`
}

type llmResponse struct {
	Prompt struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	} `json:"prompt"`
}

// Generate completes the prompt and returns the first choice text.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	var resp llmResponse
	err := c.postJSON(ctx, "/", llmRequest{
		ModelPath: c.modelPath,
		MaxTokens: c.maxTokens,
		Prompt:    prompt,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if len(resp.Prompt.Choices) == 0 {
		return "", fmt.Errorf("llm generate: no choices returned")
	}
	return resp.Prompt.Choices[0].Text, nil
}
