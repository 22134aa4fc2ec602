package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

func (s *Store) UpsertFile(ctx context.Context, file *database.File) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (hash, path, type, missing)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hash) DO UPDATE
			SET path = EXCLUDED.path, type = EXCLUDED.type, missing = EXCLUDED.missing`,
		file.Hash, file.Path, string(file.Type), file.Missing)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", file.Path, err)
	}
	return nil
}

func (s *Store) GetFileByPath(ctx context.Context, path string) (*database.File, error) {
	var f database.File
	var fileType string
	err := s.pool.QueryRow(ctx,
		`SELECT hash, path, type, missing FROM files WHERE path = $1`, path,
	).Scan(&f.Hash, &f.Path, &fileType, &f.Missing)
	if err != nil {
		return nil, mapErr(err)
	}
	f.Type = database.MediaType(fileType)
	return &f, nil
}

// ListFilePaths returns the known paths of the owner. The file's hash is
// the photo id, so ownership comes from the photo row; files whose photo
// has not committed yet belong to no one and are not listed.
func (s *Store) ListFilePaths(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.path FROM files f
		JOIN photos p ON p.id = f.hash
		WHERE p.owner_id = $1
		ORDER BY f.path`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query file paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

func (s *Store) SetFileMissing(ctx context.Context, hash string, missing bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE files SET missing = $2 WHERE hash = $1`, hash, missing)
	if err != nil {
		return fmt.Errorf("mark file %s missing: %w", hash, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
