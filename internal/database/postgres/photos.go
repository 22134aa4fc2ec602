package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/geocode"
	"github.com/kozaktomas/photo-library/internal/timestamp"
)

const photoColumns = `id, owner_id, main_file, files, thumbnail_big, thumbnail_square,
	thumbnail_square_small, aspect_ratio, gps_lat, gps_lon, exif_timestamp, camera, lens,
	iso, fstop, shutter_speed, focal_length, width, height, video_length, geolocation,
	captions, search_captions, dominant_color, rating, deleted, hidden, public,
	clip_embeddings, clip_embeddings_magnitude, shared_to, added_on`

func scanPhoto(row pgx.Row) (*database.Photo, error) {
	var p database.Photo
	var mainFile, files, geolocation, captions []byte
	var exifTS *time.Time
	var vec *pgvector.Vector

	err := row.Scan(&p.ID, &p.OwnerID, &mainFile, &files, &p.ThumbnailBig, &p.ThumbnailSquare,
		&p.ThumbnailSquareSmall, &p.AspectRatio, &p.GPSLat, &p.GPSLon, &exifTS, &p.Camera, &p.Lens,
		&p.ISO, &p.FStop, &p.ShutterSpeed, &p.FocalLength, &p.Width, &p.Height, &p.VideoLength,
		&geolocation, &captions, &p.SearchCaptions, &p.DominantColor, &p.Rating, &p.Deleted,
		&p.Hidden, &p.Public, &vec, &p.ClipEmbeddingsMagnitude, &p.SharedTo, &p.AddedOn)
	if err != nil {
		return nil, mapErr(err)
	}

	if len(mainFile) > 0 {
		var f database.File
		if err := json.Unmarshal(mainFile, &f); err != nil {
			return nil, fmt.Errorf("parse main file of %s: %w", p.ID, err)
		}
		p.MainFile = &f
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &p.Files); err != nil {
			return nil, fmt.Errorf("parse files of %s: %w", p.ID, err)
		}
	}
	if len(geolocation) > 0 {
		var g geocode.Result
		if err := json.Unmarshal(geolocation, &g); err != nil {
			return nil, fmt.Errorf("parse geolocation of %s: %w", p.ID, err)
		}
		p.Geolocation = &g
	}
	if len(captions) > 0 {
		var c database.Captions
		if err := json.Unmarshal(captions, &c); err != nil {
			return nil, fmt.Errorf("parse captions of %s: %w", p.ID, err)
		}
		p.Captions = &c
	}
	if exifTS != nil {
		wall := timestamp.FromLocal(*exifTS)
		p.ExifTimestamp = &wall
	}
	if vec != nil {
		p.ClipEmbeddings = vec.Slice()
	}
	return &p, nil
}

func (s *Store) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	return scanPhoto(row)
}

func (s *Store) PhotoExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM photos WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("photo exists %s: %w", id, err)
	}
	return exists, nil
}

func (s *Store) SavePhoto(ctx context.Context, photo *database.Photo) error {
	mainFile, err := marshalOrNil(photo.MainFile)
	if err != nil {
		return fmt.Errorf("marshal main file of %s: %w", photo.ID, err)
	}
	files, err := json.Marshal(photo.Files)
	if err != nil {
		return fmt.Errorf("marshal files of %s: %w", photo.ID, err)
	}
	geolocation, err := marshalOrNil(photo.Geolocation)
	if err != nil {
		return fmt.Errorf("marshal geolocation of %s: %w", photo.ID, err)
	}
	captions, err := marshalOrNil(photo.Captions)
	if err != nil {
		return fmt.Errorf("marshal captions of %s: %w", photo.ID, err)
	}

	var exifTS *time.Time
	if photo.ExifTimestamp != nil {
		exifTS = &photo.ExifTimestamp.Time
	}
	var vec *pgvector.Vector
	if len(photo.ClipEmbeddings) > 0 {
		v := pgvector.NewVector(photo.ClipEmbeddings)
		vec = &v
	}
	addedOn := photo.AddedOn
	if addedOn.IsZero() {
		addedOn = time.Now()
	}
	sharedTo := photo.SharedTo
	if sharedTo == nil {
		sharedTo = []int64{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO photos (`+photoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
		ON CONFLICT (id) DO UPDATE SET
			main_file = EXCLUDED.main_file,
			files = EXCLUDED.files,
			thumbnail_big = EXCLUDED.thumbnail_big,
			thumbnail_square = EXCLUDED.thumbnail_square,
			thumbnail_square_small = EXCLUDED.thumbnail_square_small,
			aspect_ratio = EXCLUDED.aspect_ratio,
			gps_lat = EXCLUDED.gps_lat,
			gps_lon = EXCLUDED.gps_lon,
			exif_timestamp = EXCLUDED.exif_timestamp,
			camera = EXCLUDED.camera,
			lens = EXCLUDED.lens,
			iso = EXCLUDED.iso,
			fstop = EXCLUDED.fstop,
			shutter_speed = EXCLUDED.shutter_speed,
			focal_length = EXCLUDED.focal_length,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			video_length = EXCLUDED.video_length,
			geolocation = EXCLUDED.geolocation,
			captions = EXCLUDED.captions,
			search_captions = EXCLUDED.search_captions,
			dominant_color = EXCLUDED.dominant_color,
			rating = EXCLUDED.rating,
			deleted = EXCLUDED.deleted,
			hidden = EXCLUDED.hidden,
			public = EXCLUDED.public,
			clip_embeddings = EXCLUDED.clip_embeddings,
			clip_embeddings_magnitude = EXCLUDED.clip_embeddings_magnitude,
			shared_to = EXCLUDED.shared_to`,
		photo.ID, photo.OwnerID, mainFile, files, photo.ThumbnailBig, photo.ThumbnailSquare,
		photo.ThumbnailSquareSmall, photo.AspectRatio, photo.GPSLat, photo.GPSLon, exifTS,
		photo.Camera, photo.Lens, photo.ISO, photo.FStop, photo.ShutterSpeed, photo.FocalLength,
		photo.Width, photo.Height, photo.VideoLength, geolocation, captions, photo.SearchCaptions,
		photo.DominantColor, photo.Rating, photo.Deleted, photo.Hidden, photo.Public, vec,
		photo.ClipEmbeddingsMagnitude, sharedTo, addedOn)
	if err != nil {
		return fmt.Errorf("save photo %s: %w", photo.ID, mapErr(err))
	}
	return nil
}

func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) ListPhotos(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	return s.listPhotos(ctx, `WHERE owner_id = $1`, ownerID)
}

func (s *Store) ListVisiblePhotos(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	return s.listPhotos(ctx,
		`WHERE owner_id = $1 AND NOT hidden AND NOT deleted AND aspect_ratio IS NOT NULL`,
		ownerID)
}

func (s *Store) ListPhotosWithoutEmbeddings(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	return s.listPhotos(ctx, `WHERE owner_id = $1 AND clip_embeddings IS NULL`, ownerID)
}

func (s *Store) listPhotos(ctx context.Context, where string, args ...any) ([]database.Photo, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var out []database.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateClipEmbedding(ctx context.Context, id string, embedding []float32, magnitude float64) error {
	vec := pgvector.NewVector(embedding)
	tag, err := s.pool.Exec(ctx, `
		UPDATE photos SET clip_embeddings = $2, clip_embeddings_magnitude = $3 WHERE id = $1`,
		id, vec, magnitude)
	if err != nil {
		return fmt.Errorf("update embedding of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func marshalOrNil(v any) ([]byte, error) {
	switch t := v.(type) {
	case *database.File:
		if t == nil {
			return nil, nil
		}
	case *geocode.Result:
		if t == nil {
			return nil, nil
		}
	case *database.Captions:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
