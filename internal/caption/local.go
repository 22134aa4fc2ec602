package caption

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/inference"
)

// LocalProvider refines captions through the local LLM service, keeping
// everything on the box.
type LocalProvider struct {
	llm *inference.LLMClient
}

// NewLocalProvider wraps the local text generation client.
func NewLocalProvider(llm *inference.LLMClient) *LocalProvider {
	return &LocalProvider{llm: llm}
}

func (p *LocalProvider) Name() string {
	return "local"
}

func (p *LocalProvider) RefineCaption(ctx context.Context, caption string, people []string) (string, error) {
	// Base-model completion format; the answer follows "A:".
	prompt := "Q: " + buildPrompt(caption, people) + "A:"
	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("local caption refinement: %w", err)
	}
	refined := cleanResponse(text)
	if refined == "" {
		return caption, nil
	}
	return refined, nil
}
