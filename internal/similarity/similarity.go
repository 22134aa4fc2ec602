// Package similarity maintains per-user nearest-neighbour indexes over
// CLIP embeddings. Indexes are rebuilt wholesale after a scan; they are
// never mutated in place, so a running search always sees a consistent
// graph.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-library/internal/database"
)

// DefaultBuildCap bounds how many photos enter one user's index.
const DefaultBuildCap = 2500

const (
	maxNeighbors = 16
)

type userIndex struct {
	graph      *hnsw.Graph[string]
	embeddings map[string][]float32
}

// Engine holds one in-memory index per user.
type Engine struct {
	mu       sync.RWMutex
	indexes  map[int64]*userIndex
	buildCap int
	logger   *slog.Logger
}

// NewEngine creates an empty similarity engine. buildCap <= 0 selects the
// default photo cap.
func NewEngine(buildCap int, logger *slog.Logger) *Engine {
	if buildCap <= 0 {
		buildCap = DefaultBuildCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		indexes:  make(map[int64]*userIndex),
		buildCap: buildCap,
		logger:   logger,
	}
}

// Build replaces the user's index with a fresh one over their visible
// photos that carry embeddings, up to the build cap.
func (e *Engine) Build(ctx context.Context, store database.PhotoStore, userID int64) error {
	photos, err := store.ListVisiblePhotos(ctx, userID)
	if err != nil {
		return fmt.Errorf("list photos for similarity index: %w", err)
	}

	idx := &userIndex{
		graph:      newGraph(),
		embeddings: make(map[string][]float32),
	}

	indexed := 0
	for i := range photos {
		if indexed >= e.buildCap {
			break
		}
		p := &photos[i]
		if len(p.ClipEmbeddings) == 0 {
			continue
		}
		idx.graph.Add(hnsw.MakeNode(p.ID, p.ClipEmbeddings))
		idx.embeddings[p.ID] = p.ClipEmbeddings
		indexed++
	}

	e.mu.Lock()
	e.indexes[userID] = idx
	e.mu.Unlock()

	e.logger.Info("similarity index built", "user_id", userID, "photos", indexed)
	return nil
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Search returns up to n photo hashes whose similarity score (0-100)
// reaches the threshold, nearest first. An unbuilt user yields nothing.
func (e *Engine) Search(userID int64, embedding []float32, n int, threshold float64) []string {
	e.mu.RLock()
	idx, ok := e.indexes[userID]
	e.mu.RUnlock()
	if !ok || len(idx.embeddings) == 0 {
		return nil
	}

	neighbors := idx.graph.Search(embedding, n)
	var hashes []string
	for _, nb := range neighbors {
		score := (1 - database.CosineDistance(embedding, nb.Value)) * 100
		if score < threshold {
			continue
		}
		hashes = append(hashes, nb.Key)
	}
	return hashes
}

// SearchSimilarToPhoto looks up neighbours of an indexed photo, excluding
// the photo itself.
func (e *Engine) SearchSimilarToPhoto(userID int64, photoID string, n int, threshold float64) []string {
	e.mu.RLock()
	idx, ok := e.indexes[userID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	emb, ok := idx.embeddings[photoID]
	if !ok {
		return nil
	}

	var out []string
	for _, hash := range e.Search(userID, emb, n+1, threshold) {
		if hash == photoID {
			continue
		}
		out = append(out, hash)
	}
	return out
}

// Count reports how many photos are indexed for the user.
func (e *Engine) Count(userID int64) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indexes[userID]
	if !ok {
		return 0
	}
	return len(idx.embeddings)
}
