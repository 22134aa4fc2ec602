package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
)

// --- date albums ---

const albumDateColumns = `id, owner_id, date, title, photo_ids, cover_photo_ids,
	cardinality(photo_ids)`

func scanAlbumDate(row pgx.Row) (*database.AlbumDate, error) {
	var a database.AlbumDate
	err := row.Scan(&a.ID, &a.OwnerID, &a.Date, &a.Title, &a.PhotoIDs, &a.CoverPhotoIDs,
		&a.PhotoCount)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) GetOrCreateAlbumDate(ctx context.Context, ownerID int64, date *time.Time) (*database.AlbumDate, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO album_dates (owner_id, date)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, COALESCE(date, '0001-01-01'::date)) DO NOTHING`,
		ownerID, date)
	if err != nil {
		return nil, fmt.Errorf("create date album: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+albumDateColumns+` FROM album_dates
		WHERE owner_id = $1 AND COALESCE(date, '0001-01-01'::date) = COALESCE($2, '0001-01-01'::date)`,
		ownerID, date)
	return scanAlbumDate(row)
}

// RelinkPhotoToAlbumDate moves the photo into the target date album,
// removing it from every other date album of the same owner first.
func (s *Store) RelinkPhotoToAlbumDate(ctx context.Context, albumID int64, photoID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin date relink: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID int64
	err = tx.QueryRow(ctx, `SELECT owner_id FROM album_dates WHERE id = $1`, albumID).Scan(&ownerID)
	if err != nil {
		return mapErr(err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE album_dates SET photo_ids = array_remove(photo_ids, $2)
		WHERE owner_id = $1 AND id <> $3 AND $2 = ANY (photo_ids)`,
		ownerID, photoID, albumID)
	if err != nil {
		return fmt.Errorf("unlink photo %s from date albums: %w", photoID, err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE album_dates SET photo_ids = array_append(photo_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY (photo_ids))`,
		albumID, photoID)
	if err != nil {
		return fmt.Errorf("link photo %s to date album %d: %w", photoID, albumID, err)
	}
	return tx.Commit(ctx)
}

// --- place albums ---

const albumPlaceColumns = `id, owner_id, title, level, photo_ids, cover_photo_ids,
	cardinality(photo_ids)`

func scanAlbumPlace(row pgx.Row) (*database.AlbumPlace, error) {
	var a database.AlbumPlace
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Level, &a.PhotoIDs, &a.CoverPhotoIDs,
		&a.PhotoCount)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) GetOrCreateAlbumPlace(ctx context.Context, ownerID int64, title string, level int) (*database.AlbumPlace, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO album_places (owner_id, title, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, title) DO NOTHING`,
		ownerID, title, level)
	if err != nil {
		return nil, fmt.Errorf("create place album %q: %w", title, err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+albumPlaceColumns+` FROM album_places
		WHERE owner_id = $1 AND title = $2`, ownerID, title)
	return scanAlbumPlace(row)
}

func (s *Store) AddPhotoToAlbumPlace(ctx context.Context, albumID int64, photoID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE album_places SET photo_ids = array_append(photo_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY (photo_ids))`,
		albumID, photoID)
	if err != nil {
		return fmt.Errorf("link photo %s to place album %d: %w", photoID, albumID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.albumExistsErr(ctx, "album_places", albumID)
	}
	return nil
}

func (s *Store) RemovePhotoFromAlbumPlaces(ctx context.Context, ownerID int64, photoID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE album_places SET photo_ids = array_remove(photo_ids, $2)
		WHERE owner_id = $1 AND $2 = ANY (photo_ids)`,
		ownerID, photoID)
	if err != nil {
		return fmt.Errorf("unlink photo %s from place albums: %w", photoID, err)
	}
	return nil
}

// --- thing albums ---

const albumThingColumns = `id, owner_id, title, thing_type, photo_ids, cover_photo_ids,
	cardinality(photo_ids)`

func scanAlbumThing(row pgx.Row) (*database.AlbumThing, error) {
	var a database.AlbumThing
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.ThingType, &a.PhotoIDs,
		&a.CoverPhotoIDs, &a.PhotoCount)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) GetOrCreateAlbumThing(ctx context.Context, ownerID int64, title, thingType string) (*database.AlbumThing, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO album_things (owner_id, title, thing_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, title, thing_type) DO NOTHING`,
		ownerID, title, thingType)
	if err != nil {
		return nil, fmt.Errorf("create thing album %q: %w", title, err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+albumThingColumns+` FROM album_things
		WHERE owner_id = $1 AND title = $2 AND thing_type = $3`, ownerID, title, thingType)
	return scanAlbumThing(row)
}

func (s *Store) AddPhotoToAlbumThing(ctx context.Context, albumID int64, photoID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE album_things SET photo_ids = array_append(photo_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY (photo_ids))`,
		albumID, photoID)
	if err != nil {
		return fmt.Errorf("link photo %s to thing album %d: %w", photoID, albumID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.albumExistsErr(ctx, "album_things", albumID)
	}
	return nil
}

func (s *Store) RemovePhotoFromAlbumThings(ctx context.Context, ownerID int64, photoID, thingType string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE album_things SET photo_ids = array_remove(photo_ids, $2)
		WHERE owner_id = $1 AND thing_type = $3 AND $2 = ANY (photo_ids)`,
		ownerID, photoID, thingType)
	if err != nil {
		return fmt.Errorf("unlink photo %s from thing albums: %w", photoID, err)
	}
	return nil
}

// --- user albums ---

const albumUserColumns = `id, owner_id, title, photo_ids, cover_photo_ids,
	cardinality(photo_ids)`

func scanAlbumUser(row pgx.Row) (*database.AlbumUser, error) {
	var a database.AlbumUser
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.PhotoIDs, &a.CoverPhotoIDs, &a.PhotoCount)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) GetOrCreateAlbumUser(ctx context.Context, ownerID int64, title string) (*database.AlbumUser, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO album_users (owner_id, title)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, title) DO NOTHING`,
		ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("create user album %q: %w", title, err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+albumUserColumns+` FROM album_users
		WHERE owner_id = $1 AND title = $2`, ownerID, title)
	return scanAlbumUser(row)
}

func (s *Store) AddPhotoToAlbumUser(ctx context.Context, albumID int64, photoID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE album_users SET photo_ids = array_append(photo_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY (photo_ids))`,
		albumID, photoID)
	if err != nil {
		return fmt.Errorf("link photo %s to user album %d: %w", photoID, albumID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.albumExistsErr(ctx, "album_users", albumID)
	}
	return nil
}

// --- auto albums ---

func (s *Store) CreateAlbumAuto(ctx context.Context, album *database.AlbumAuto) error {
	createdOn := album.CreatedOn
	if createdOn.IsZero() {
		createdOn = time.Now()
	}
	photoIDs := album.PhotoIDs
	if photoIDs == nil {
		photoIDs = []string{}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO album_autos (owner_id, title, timestamp, created_on, gps_lat, gps_lon,
			favorited, photo_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		album.OwnerID, album.Title, album.Timestamp, createdOn, album.GPSLat, album.GPSLon,
		album.Favorited, photoIDs,
	).Scan(&album.ID)
	if err != nil {
		return fmt.Errorf("create auto album %q: %w", album.Title, err)
	}
	album.CreatedOn = createdOn
	return nil
}

func (s *Store) SaveAlbumAuto(ctx context.Context, album *database.AlbumAuto) error {
	if album.ID == 0 {
		return s.CreateAlbumAuto(ctx, album)
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE album_autos SET title = $2, timestamp = $3, gps_lat = $4, gps_lon = $5,
			favorited = $6, photo_ids = $7
		WHERE id = $1`,
		album.ID, album.Title, album.Timestamp, album.GPSLat, album.GPSLon,
		album.Favorited, album.PhotoIDs)
	if err != nil {
		return fmt.Errorf("update auto album %d: %w", album.ID, err)
	}
	return nil
}

func (s *Store) ListAlbumAutos(ctx context.Context, ownerID int64) ([]database.AlbumAuto, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, title, timestamp, created_on, gps_lat, gps_lon, favorited, photo_ids
		FROM album_autos WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query auto albums: %w", err)
	}
	defer rows.Close()

	var out []database.AlbumAuto
	for rows.Next() {
		var a database.AlbumAuto
		err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Timestamp, &a.CreatedOn,
			&a.GPSLat, &a.GPSLon, &a.Favorited, &a.PhotoIDs)
		if err != nil {
			return nil, fmt.Errorf("scan auto album: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// albumExistsErr distinguishes "album gone" from "photo already linked"
// after a conditional array update touched no rows.
func (s *Store) albumExistsErr(ctx context.Context, table string, albumID int64) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, albumID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check album %d: %w", albumID, err)
	}
	if !exists {
		return database.ErrNotFound
	}
	return nil
}
