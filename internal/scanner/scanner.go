// Package scanner walks a user's photo directory and feeds every media
// file through the enrichment pipeline, then rebuilds the similarity
// index. It also owns the filesystem-facing maintenance jobs: deleting
// photos whose files disappeared and exporting photo selections as zip
// archives.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
	"github.com/kozaktomas/photo-library/internal/pipeline"
	"github.com/kozaktomas/photo-library/internal/similarity"
)

// Store is the subset of the database the scanner touches directly.
type Store interface {
	database.FileStore
	database.PhotoStore
}

// Scanner discovers media files and drives the pipeline over them.
type Scanner struct {
	store    Store
	pipeline *pipeline.Pipeline
	index    *similarity.Engine
	logger   *slog.Logger
}

func New(store Store, p *pipeline.Pipeline, index *similarity.Engine, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, pipeline: p, index: index, logger: logger}
}

// Scan walks the user's scan directory, processes new files first and
// rescans known ones after, then rebuilds the similarity index. Failures
// are isolated per file.
func (s *Scanner) Scan(ctx context.Context, user *database.User, run *jobs.Run) error {
	found, err := s.discover(user.ScanDirectory)
	if err != nil {
		return err
	}

	existing, err := s.store.ListFilePaths(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list known files: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, path := range existing {
		known[path] = true
	}

	var fresh, rescan []string
	for _, path := range found {
		if known[path] {
			rescan = append(rescan, path)
		} else {
			fresh = append(fresh, path)
		}
	}
	sort.Strings(fresh)
	sort.Strings(rescan)

	if run != nil {
		if err := run.SetTarget(ctx, len(fresh)+len(rescan)); err != nil {
			return err
		}
	}

	done := 0
	for _, batch := range [][]string{fresh, rescan} {
		for _, path := range batch {
			if run != nil && run.Cancelled() {
				return context.Canceled
			}
			if err := s.pipeline.Process(ctx, user, path); err != nil {
				s.logger.Warn("scan skipped file", "path", path, "error", err)
			}
			done++
			if run != nil {
				if err := run.Progress(ctx, done); err != nil {
					return err
				}
			}
		}
	}

	if s.index != nil {
		if err := s.index.Build(ctx, s.store, user.ID); err != nil {
			return fmt.Errorf("rebuild similarity index: %w", err)
		}
	}
	return nil
}

// discover walks the directory tree, following symlinks, skipping hidden
// entries, and returns every regular file found. A symlink loop is broken
// by tracking resolved directories.
func (s *Scanner) discover(root string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("no scan directory configured")
	}
	visited := make(map[string]bool)
	var files []string
	if err := s.walk(root, visited, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Scanner) walk(dir string, visited map[string]bool, files *[]string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	if visited[resolved] {
		return nil
	}
	visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(dir, name)

		// Stat follows symlinks, so linked directories get walked too.
		info, err := os.Stat(full)
		if err != nil {
			s.logger.Warn("scan skipped entry", "path", full, "error", err)
			continue
		}
		if info.IsDir() {
			if err := s.walk(full, visited, files); err != nil {
				s.logger.Warn("scan skipped directory", "path", full, "error", err)
			}
			continue
		}
		if info.Mode().IsRegular() {
			*files = append(*files, full)
		}
	}
	return nil
}

// DeleteMissing marks files that vanished from disk and removes photos
// none of whose files remain.
func (s *Scanner) DeleteMissing(ctx context.Context, user *database.User, run *jobs.Run) error {
	paths, err := s.store.ListFilePaths(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list known files: %w", err)
	}
	for _, path := range paths {
		if fileExists(path) {
			continue
		}
		file, err := s.store.GetFileByPath(ctx, path)
		if err != nil {
			continue
		}
		if err := s.store.SetFileMissing(ctx, file.Hash, true); err != nil {
			return fmt.Errorf("mark %s missing: %w", path, err)
		}
	}

	photos, err := s.store.ListPhotos(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	if run != nil {
		if err := run.SetTarget(ctx, len(photos)); err != nil {
			return err
		}
	}

	deleted := 0
	for i := range photos {
		photo := &photos[i]
		gone := true
		for _, file := range photo.Files {
			if fileExists(file.Path) {
				gone = false
				break
			}
		}
		if gone {
			if err := s.store.DeletePhoto(ctx, photo.ID); err != nil {
				return fmt.Errorf("delete photo %s: %w", photo.ID, err)
			}
			deleted++
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return err
			}
		}
	}
	if run != nil {
		run.SetDetail("deleted", deleted)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
