package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
)

const personColumns = `id, owner_id, name, kind, cover_photo_id, cover_face_id`

func scanPerson(row pgx.Row) (*database.Person, error) {
	var p database.Person
	var kind string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &kind, &p.CoverPhotoID, &p.CoverFaceID)
	if err != nil {
		return nil, mapErr(err)
	}
	p.Kind = database.PersonKind(kind)
	return &p, nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	return scanPerson(row)
}

// GetOrCreatePerson keeps the existing kind when the name is already taken;
// the insert only wins when no row exists for (owner, name).
func (s *Store) GetOrCreatePerson(ctx context.Context, ownerID int64, name string, kind database.PersonKind) (*database.Person, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persons (owner_id, name, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, name) DO NOTHING`,
		ownerID, name, string(kind))
	if err != nil {
		return nil, fmt.Errorf("create person %q: %w", name, err)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+personColumns+` FROM persons WHERE owner_id = $1 AND name = $2`, ownerID, name)
	return scanPerson(row)
}

func (s *Store) ListPersons(ctx context.Context, ownerID int64) ([]database.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+personColumns+` FROM persons WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var out []database.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) SavePerson(ctx context.Context, person *database.Person) error {
	if person.ID == 0 {
		err := s.pool.QueryRow(ctx, `
			INSERT INTO persons (owner_id, name, kind, cover_photo_id, cover_face_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			person.OwnerID, person.Name, string(person.Kind), person.CoverPhotoID, person.CoverFaceID,
		).Scan(&person.ID)
		if err != nil {
			return fmt.Errorf("insert person %q: %w", person.Name, mapErr(err))
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE persons SET name = $2, kind = $3, cover_photo_id = $4, cover_face_id = $5
		WHERE id = $1`,
		person.ID, person.Name, string(person.Kind), person.CoverPhotoID, person.CoverFaceID)
	if err != nil {
		return fmt.Errorf("update person %d: %w", person.ID, mapErr(err))
	}
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
