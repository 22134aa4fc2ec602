package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
)

func addPhoto(t *testing.T, store *mock.Store, id string, ownerID int64, emb []float32, hidden bool) {
	t.Helper()
	ar := 1.0
	mag := database.Magnitude(emb)
	photo := &database.Photo{
		ID:                      id,
		OwnerID:                 ownerID,
		AspectRatio:             &ar,
		Hidden:                  hidden,
		ClipEmbeddings:          emb,
		ClipEmbeddingsMagnitude: &mag,
	}
	if err := store.SavePhoto(context.Background(), photo); err != nil {
		t.Fatal(err)
	}
}

func TestBuildAndSearch(t *testing.T) {
	store := mock.NewStore()
	addPhoto(t, store, "sunset1", 1, []float32{1, 0, 0}, false)
	addPhoto(t, store, "sunset2", 1, []float32{0.99, 0.1, 0}, false)
	addPhoto(t, store, "portrait", 1, []float32{0, 1, 0}, false)

	e := NewEngine(0, slog.Default())
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := e.Count(1); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	hits := e.Search(1, []float32{1, 0, 0}, 10, 90)
	if len(hits) != 2 {
		t.Fatalf("Search() = %v, want the two sunsets", hits)
	}
	if hits[0] != "sunset1" {
		t.Errorf("nearest hit = %q, want sunset1", hits[0])
	}
}

func TestBuildSkipsHiddenAndEmbeddingless(t *testing.T) {
	store := mock.NewStore()
	addPhoto(t, store, "visible", 1, []float32{1, 0}, false)
	addPhoto(t, store, "hidden", 1, []float32{1, 0}, true)
	addPhoto(t, store, "no-embedding", 1, nil, false)

	e := NewEngine(0, slog.Default())
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}
	if got := e.Count(1); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestBuildRespectsCap(t *testing.T) {
	store := mock.NewStore()
	for i := 0; i < 10; i++ {
		addPhoto(t, store, fmt.Sprintf("p%02d", i), 1, []float32{float32(i), 1}, false)
	}

	e := NewEngine(4, slog.Default())
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}
	if got := e.Count(1); got != 4 {
		t.Errorf("Count() = %d, want cap of 4", got)
	}
}

func TestSearchSimilarToPhotoExcludesSelf(t *testing.T) {
	store := mock.NewStore()
	addPhoto(t, store, "a", 1, []float32{1, 0}, false)
	addPhoto(t, store, "b", 1, []float32{0.95, 0.05}, false)

	e := NewEngine(0, slog.Default())
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}

	hits := e.SearchSimilarToPhoto(1, "a", 5, 50)
	for _, h := range hits {
		if h == "a" {
			t.Error("result must not contain the query photo itself")
		}
	}
	if len(hits) != 1 || hits[0] != "b" {
		t.Errorf("hits = %v, want [b]", hits)
	}
}

func TestSearchUnbuiltUser(t *testing.T) {
	e := NewEngine(0, slog.Default())
	if hits := e.Search(42, []float32{1, 0}, 5, 0); hits != nil {
		t.Errorf("unbuilt user should yield nothing, got %v", hits)
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	store := mock.NewStore()
	addPhoto(t, store, "old", 1, []float32{1, 0}, false)

	e := NewEngine(0, slog.Default())
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}

	// The photo disappears before the rebuild.
	if err := store.DeletePhoto(context.Background(), "old"); err != nil {
		t.Fatal(err)
	}
	addPhoto(t, store, "new", 1, []float32{0, 1}, false)
	if err := e.Build(context.Background(), store, 1); err != nil {
		t.Fatal(err)
	}

	if hits := e.Search(1, []float32{1, 0}, 5, 0); len(hits) != 1 || hits[0] != "new" {
		t.Errorf("rebuilt index should only know the new photo, got %v", hits)
	}
}
