package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/inference"
	"github.com/kozaktomas/photo-library/internal/similarity"
)

// semanticScoreFloor is the similarity score (0-100) below which an
// embedding hit is discarded.
const semanticScoreFloor = 22.5

// defaultTopK bounds the embedding candidates when the user has no
// explicit preference.
const defaultTopK = 100

type searchStore interface {
	database.PhotoStore
	database.FaceStore
	database.PersonStore
}

// queryEmbedder turns a text query into a CLIP embedding.
type queryEmbedder interface {
	QueryEmbedding(ctx context.Context, query string) ([]float32, float64, error)
}

// Engine answers photo search queries.
type Engine struct {
	store      searchStore
	embeddings queryEmbedder
	index      *similarity.Engine
	logger     *slog.Logger
}

// NewEngine creates a search engine on top of the similarity index.
func NewEngine(store searchStore, embeddings queryEmbedder, index *similarity.Engine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, embeddings: embeddings, index: index, logger: logger}
}

var _ queryEmbedder = (*inference.EmbeddingClient)(nil)

// Search returns the user's visible photos matching the query. Every
// whitespace-separated term must match at least one photo field or land
// the photo among the embedding neighbours of the full query.
func (e *Engine) Search(ctx context.Context, user *database.User, query string) ([]database.Photo, error) {
	terms := strings.Fields(Fold(query))
	if len(terms) == 0 {
		return nil, nil
	}

	semantic := e.semanticHits(ctx, user, query)

	photos, err := e.store.ListVisiblePhotos(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	var out []database.Photo
	for i := range photos {
		photo := &photos[i]
		haystack, err := e.photoText(ctx, photo)
		if err != nil {
			return nil, err
		}

		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) && !semantic[photo.ID] {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, *photo)
		}
	}
	return out, nil
}

// semanticHits resolves the query embedding and collects the nearby photo
// hashes. Embedding failures degrade the search to plain substring
// matching.
func (e *Engine) semanticHits(ctx context.Context, user *database.User, query string) map[string]bool {
	if e.embeddings == nil || e.index == nil {
		return nil
	}
	embedding, _, err := e.embeddings.QueryEmbedding(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, text-only search", "error", err)
		return nil
	}

	topK := user.SemanticSearchTopK
	if topK <= 0 {
		topK = defaultTopK
	}
	hits := make(map[string]bool)
	for _, hash := range e.index.Search(user.ID, embedding, topK, semanticScoreFloor) {
		hits[hash] = true
	}
	return hits
}

// photoText concatenates every searchable field of the photo, folded.
func (e *Engine) photoText(ctx context.Context, photo *database.Photo) (string, error) {
	var sb strings.Builder
	sb.WriteString(photo.SearchCaptions)
	sb.WriteByte(' ')
	if photo.Geolocation != nil {
		sb.WriteString(photo.Geolocation.Address)
		sb.WriteByte(' ')
	}
	if photo.ExifTimestamp != nil {
		sb.WriteString(photo.ExifTimestamp.Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	if photo.MainFile != nil {
		sb.WriteString(photo.MainFile.Path)
		sb.WriteByte(' ')
	}

	faces, err := e.store.ListFacesByPhoto(ctx, photo.ID)
	if err != nil {
		return "", fmt.Errorf("list faces of %s: %w", photo.ID, err)
	}
	for _, face := range faces {
		person, err := e.store.GetPerson(ctx, face.PersonID)
		if err != nil {
			continue
		}
		sb.WriteString(person.Name)
		sb.WriteByte(' ')
	}
	return Fold(sb.String()), nil
}
