package pipeline

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

const embeddingBatchSize = 32

// BackfillEmbeddings computes CLIP embeddings for every photo that does
// not have one yet, in batches. Used by the embedding backfill job after
// the inference service was unavailable during a scan.
func (p *Pipeline) BackfillEmbeddings(ctx context.Context, user *database.User, run *jobs.Run) error {
	if p.deps.Embeddings == nil {
		return fmt.Errorf("no embedding service configured")
	}

	photos, err := p.deps.Store.ListPhotosWithoutEmbeddings(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list photos without embeddings: %w", err)
	}

	var pending []database.Photo
	for _, photo := range photos {
		if photo.ThumbnailBig != "" {
			pending = append(pending, photo)
		}
	}
	if run != nil {
		if err := run.SetTarget(ctx, len(pending)); err != nil {
			return err
		}
	}

	done := 0
	for start := 0; start < len(pending); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(pending))
		batch := pending[start:end]

		paths := make([]string, len(batch))
		for i := range batch {
			paths[i] = batch[i].ThumbnailBig
		}
		embeddings, magnitudes, err := p.deps.Embeddings.ImageEmbeddings(ctx, paths)
		if err != nil {
			return fmt.Errorf("image embeddings: %w", err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding service returned %d vectors for %d images", len(embeddings), len(batch))
		}

		for i := range batch {
			if err := p.deps.Store.UpdateClipEmbedding(ctx, batch[i].ID, embeddings[i], magnitudes[i]); err != nil {
				return fmt.Errorf("store embedding of %s: %w", batch[i].ID, err)
			}
			done++
		}
		if run != nil {
			if err := run.Progress(ctx, done); err != nil {
				return err
			}
			if run.Cancelled() {
				return context.Canceled
			}
		}
	}
	return nil
}

// RescanFaces runs face extraction for every visible photo that has no
// faces yet, typically after enabling a better detection model.
func (p *Pipeline) RescanFaces(ctx context.Context, user *database.User, run *jobs.Run) error {
	if p.deps.Extractor == nil {
		return fmt.Errorf("no face extractor configured")
	}

	photos, err := p.deps.Store.ListVisiblePhotos(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	if run != nil {
		if err := run.SetTarget(ctx, len(photos)); err != nil {
			return err
		}
	}

	for i := range photos {
		photo := &photos[i]
		existing, err := p.deps.Store.ListFacesByPhoto(ctx, photo.ID)
		if err != nil {
			return fmt.Errorf("list faces of %s: %w", photo.ID, err)
		}
		if len(existing) == 0 {
			var source *exifmeta.Source
			if photo.MainFile != nil {
				source = p.metadata(photo.MainFile.Path)
			}
			if _, err := p.deps.Extractor.ExtractFaces(ctx, user, photo, source); err != nil {
				p.logger.Warn("face rescan failed", "photo", photo.ID, "error", err)
			}
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return err
			}
			if run.Cancelled() {
				return context.Canceled
			}
		}
	}
	return nil
}
