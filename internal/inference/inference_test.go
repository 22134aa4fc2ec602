package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jsonHandler(t *testing.T, wantPath string, wantBody map[string]any, respBody string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}
		var got map[string]any
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("request body decode: %v", err)
		}
		for k, want := range wantBody {
			if gotV, ok := got[k]; !ok {
				t.Errorf("request body missing %q", k)
			} else if wantS, isStr := want.(string); isStr && gotV != wantS {
				t.Errorf("request body %q = %v, want %v", k, gotV, want)
			}
		}
		w.Write([]byte(respBody))
	}
}

func TestFaceClientLocations(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/face-locations",
		map[string]any{"source": "/thumb/abc.webp", "model": "hog"},
		`{"face_locations": [[10, 110, 90, 30], [200, 300, 280, 220]]}`))
	defer srv.Close()

	c := NewFaceClient(srv.URL)
	got, err := c.Locations(context.Background(), "/thumb/abc.webp", FaceModelHOG)
	if err != nil {
		t.Fatalf("Locations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d locations, want 2", len(got))
	}
	if got[0].Top() != 10 || got[0].Right() != 110 || got[0].Bottom() != 90 || got[0].Left() != 30 {
		t.Errorf("location order wrong: %v", got[0])
	}
}

func TestFaceClientEncodingsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"encodings": [[0.1, 0.2]]}`))
	}))
	defer srv.Close()

	c := NewFaceClient(srv.URL)
	_, err := c.Encodings(context.Background(), "x.webp", []FaceLocation{{1, 2, 3, 4}, {5, 6, 7, 8}})
	if err == nil {
		t.Fatal("expected error on encoding/location count mismatch")
	}
}

func TestEmbeddingClientImageEmbeddings(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/clip-embeddings",
		map[string]any{"model": "/models/clip"},
		`{"imgs_emb": [[0.1, 0.2], [0.3, 0.4]], "magnitudes": [1.1, 1.2]}`))
	defer srv.Close()

	c := NewEmbeddingClient(srv.URL, "/models/clip")
	embs, mags, err := c.ImageEmbeddings(context.Background(), []string{"a.webp", "b.webp"})
	if err != nil {
		t.Fatalf("ImageEmbeddings() error = %v", err)
	}
	if len(embs) != 2 || len(mags) != 2 {
		t.Fatalf("got %d embeddings and %d magnitudes, want 2 each", len(embs), len(mags))
	}
	if embs[1][0] != 0.3 || mags[1] != 1.2 {
		t.Errorf("embeddings out of order: %v %v", embs, mags)
	}
}

func TestEmbeddingClientQueryEmbedding(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/query-embeddings",
		map[string]any{"query": "dog on a beach"},
		`{"emb": [0.5, 0.5], "magnitude": 0.707}`))
	defer srv.Close()

	c := NewEmbeddingClient(srv.URL, "/models/clip")
	emb, mag, err := c.QueryEmbedding(context.Background(), "dog on a beach")
	if err != nil {
		t.Fatalf("QueryEmbedding() error = %v", err)
	}
	if len(emb) != 2 || mag != 0.707 {
		t.Errorf("emb = %v, mag = %v", emb, mag)
	}
}

func TestCaptionClient(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/generate-caption",
		map[string]any{"image_path": "/thumb/abc.webp"},
		`{"caption": "a dog running on a beach"}`))
	defer srv.Close()

	c := NewCaptionClient(srv.URL)
	got, err := c.GenerateCaption(context.Background(), "/thumb/abc.webp", false, true)
	if err != nil {
		t.Fatalf("GenerateCaption() error = %v", err)
	}
	if got != "a dog running on a beach" {
		t.Errorf("caption = %q", got)
	}
}

func TestTagsClientNullTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tags": null}`))
	}))
	defer srv.Close()

	c := NewTagsClient(srv.URL)
	got, err := c.GenerateTags(context.Background(), "x.webp", 0.5)
	if err != nil {
		t.Fatalf("GenerateTags() error = %v", err)
	}
	if got != nil {
		t.Errorf("tags = %+v, want nil", got)
	}
}

func TestTagsClient(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/generate-tags",
		map[string]any{"image_path": "x.webp"},
		`{"tags": {"attributes": ["open area"], "categories": ["beach"], "environment": "outdoor"}}`))
	defer srv.Close()

	c := NewTagsClient(srv.URL)
	got, err := c.GenerateTags(context.Background(), "x.webp", 0.5)
	if err != nil {
		t.Fatalf("GenerateTags() error = %v", err)
	}
	if got == nil || got.Environment != "outdoor" || len(got.Categories) != 1 {
		t.Errorf("tags = %+v", got)
	}
}

func TestLLMClient(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/",
		map[string]any{"prompt": "Name this event:"},
		`{"prompt": {"choices": [{"text": " Beach Day"}]}}`))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "/models/mistral.gguf")
	got, err := c.Generate(context.Background(), "Name this event:")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != " Beach Day" {
		t.Errorf("text = %q", got)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCaptionClient(srv.URL)
	if _, err := c.GenerateCaption(context.Background(), "x.webp", false, false); err == nil {
		t.Fatal("expected error from 503 response")
	}
}
