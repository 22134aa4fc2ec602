package scanner

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

// ExportZip writes the main files of the selected photos into a zip
// archive under root/zip and returns its path. The archive is named after
// the owner and the job id so concurrent exports never collide.
func (s *Scanner) ExportZip(ctx context.Context, user *database.User, root string, photoIDs []string, run *jobs.Run) (string, error) {
	dir := filepath.Join(root, "zip")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create zip dir: %w", err)
	}

	name := fmt.Sprintf("%d_export.zip", user.ID)
	if run != nil {
		name = fmt.Sprintf("%d_%s.zip", user.ID, run.Detail().JobID)
	}
	outPath := filepath.Join(dir, name)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()
	archive := zip.NewWriter(out)

	if run != nil {
		if err := run.SetTarget(ctx, len(photoIDs)); err != nil {
			return "", err
		}
	}

	for i, id := range photoIDs {
		photo, err := s.store.GetPhoto(ctx, id)
		if err != nil {
			s.logger.Warn("export skipped photo", "photo", id, "error", err)
			continue
		}
		if photo.MainFile == nil {
			continue
		}
		if err := addToZip(archive, photo.MainFile.Path); err != nil {
			s.logger.Warn("export skipped file", "path", photo.MainFile.Path, "error", err)
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return "", err
			}
		}
	}

	if err := archive.Close(); err != nil {
		return "", fmt.Errorf("finish zip: %w", err)
	}
	if run != nil {
		run.SetDetail("filename", name)
	}
	return outPath, nil
}

func addToZip(archive *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := archive.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
