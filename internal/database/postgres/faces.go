package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
)

const faceColumns = `id, photo_id, owner_id, box_top, box_right, box_bottom, box_left,
	encoding, person_id, cluster_id, person_label_is_inferred, person_label_probability,
	image_path`

func scanFace(row pgx.Row) (*database.Face, error) {
	var f database.Face
	err := row.Scan(&f.ID, &f.PhotoID, &f.OwnerID, &f.Top, &f.Right, &f.Bottom, &f.Left,
		&f.Encoding, &f.PersonID, &f.ClusterID, &f.PersonLabelIsInferred,
		&f.PersonLabelProbability, &f.ImagePath)
	if err != nil {
		return nil, mapErr(err)
	}
	return &f, nil
}

func (s *Store) CreateFace(ctx context.Context, face *database.Face) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO faces (photo_id, owner_id, box_top, box_right, box_bottom, box_left,
			encoding, person_id, cluster_id, person_label_is_inferred,
			person_label_probability, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		face.PhotoID, face.OwnerID, face.Top, face.Right, face.Bottom, face.Left,
		face.Encoding, face.PersonID, face.ClusterID, face.PersonLabelIsInferred,
		face.PersonLabelProbability, face.ImagePath,
	).Scan(&face.ID)
	if err != nil {
		return fmt.Errorf("create face in %s: %w", face.PhotoID, mapErr(err))
	}
	return nil
}

func (s *Store) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+faceColumns+` FROM faces WHERE id = $1`, id)
	return scanFace(row)
}

func (s *Store) ListFacesByPhoto(ctx context.Context, photoID string) ([]database.Face, error) {
	return s.listFaces(ctx, `WHERE photo_id = $1`, photoID)
}

func (s *Store) ListFacesByUser(ctx context.Context, ownerID int64) ([]database.Face, error) {
	return s.listFaces(ctx, `WHERE owner_id = $1`, ownerID)
}

func (s *Store) listFaces(ctx context.Context, where string, args ...any) ([]database.Face, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+faceColumns+` FROM faces `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var out []database.Face
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

const updateFacePersonSQL = `
	UPDATE faces SET person_id = $2, person_label_is_inferred = $3,
		person_label_probability = $4
	WHERE id = $1`

func (s *Store) UpdateFacePerson(ctx context.Context, assignment database.FaceAssignment) error {
	tag, err := s.pool.Exec(ctx, updateFacePersonSQL,
		assignment.FaceID, assignment.PersonID, assignment.Inferred, assignment.Probability)
	if err != nil {
		return fmt.Errorf("update face %d: %w", assignment.FaceID, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) BulkUpdateFacePersons(ctx context.Context, assignments []database.FaceAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(updateFacePersonSQL, a.FaceID, a.PersonID, a.Inferred, a.Probability)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range assignments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("bulk update faces: %w", err)
		}
	}
	return nil
}

func (s *Store) SetFaceCluster(ctx context.Context, faceID int64, clusterID *int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE faces SET cluster_id = $2 WHERE id = $1`, faceID, clusterID)
	if err != nil {
		return fmt.Errorf("set cluster of face %d: %w", faceID, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFacesByPhoto(ctx context.Context, photoID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM faces WHERE photo_id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("delete faces of %s: %w", photoID, err)
	}
	return nil
}
