package caption

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-library/internal/inference"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<start> A Dog On The Beach <end>", "a dog on the beach"},
		{"  plain caption ", "plain caption"},
		{"<start><end>", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPromptIncludesPeople(t *testing.T) {
	p := buildPrompt("a dog on the beach", []string{"Alice", "Bob"})
	if !strings.Contains(p, "Alice, Bob") {
		t.Errorf("prompt should mention people, got %q", p)
	}
	if !strings.Contains(p, "a dog on the beach") {
		t.Errorf("prompt should carry the caption, got %q", p)
	}

	solo := buildPrompt("a dog", nil)
	if strings.Contains(solo, "People in the photo") {
		t.Errorf("prompt without people should omit the people line, got %q", solo)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{` "Alice plays with her dog on the beach." `, "Alice plays with her dog on the beach."},
		{"First line\nsecond line", "First line"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := cleanResponse(tt.in); got != tt.want {
			t.Errorf("cleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocalProviderRefine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prompt": {"choices": [{"text": " Alice and her dog enjoy the beach.\nQ:"}]}}`))
	}))
	defer srv.Close()

	p := NewLocalProvider(inference.NewLLMClient(srv.URL, "/models/test.gguf"))
	got, err := p.RefineCaption(context.Background(), "a dog on the beach", []string{"Alice"})
	if err != nil {
		t.Fatalf("RefineCaption() error = %v", err)
	}
	if got != "Alice and her dog enjoy the beach." {
		t.Errorf("refined = %q", got)
	}
}

func TestLocalProviderEmptyAnswerKeepsCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prompt": {"choices": [{"text": "   "}]}}`))
	}))
	defer srv.Close()

	p := NewLocalProvider(inference.NewLLMClient(srv.URL, "/models/test.gguf"))
	got, err := p.RefineCaption(context.Background(), "a dog on the beach", nil)
	if err != nil {
		t.Fatalf("RefineCaption() error = %v", err)
	}
	if got != "a dog on the beach" {
		t.Errorf("empty refinement should fall back to the original, got %q", got)
	}
}
