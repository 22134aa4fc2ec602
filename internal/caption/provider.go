// Package caption rewrites machine-generated image captions into natural
// sentences, optionally weaving in the names of recognised people.
package caption

import (
	"context"
	"fmt"
	"strings"
)

// Provider is one caption refinement backend.
type Provider interface {
	Name() string
	RefineCaption(ctx context.Context, caption string, people []string) (string, error)
}

// Normalize strips the generator's sentinel tokens and normalises case.
func Normalize(raw string) string {
	caption := strings.ReplaceAll(raw, "<start>", "")
	caption = strings.ReplaceAll(caption, "<end>", "")
	return strings.ToLower(strings.TrimSpace(caption))
}

func buildPrompt(caption string, people []string) string {
	var b strings.Builder
	b.WriteString("Rewrite this photo caption as a single short natural sentence. ")
	b.WriteString("Answer with the sentence only.\n")
	fmt.Fprintf(&b, "Caption: %q\n", caption)
	if len(people) > 0 {
		fmt.Fprintf(&b, "People in the photo: %s.\n", strings.Join(people, ", "))
	}
	return b.String()
}

// cleanResponse trims the noise chatty models wrap around the sentence.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"`)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
