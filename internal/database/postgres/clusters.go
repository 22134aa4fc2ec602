package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
)

const clusterColumns = `id, owner_id, person_id, cluster_id, name, mean_face_encoding,
	mean_distance, std_dev_distance`

func scanCluster(row pgx.Row) (*database.Cluster, error) {
	var c database.Cluster
	err := row.Scan(&c.ID, &c.OwnerID, &c.PersonID, &c.ClusterID, &c.Name,
		&c.MeanFaceEncoding, &c.MeanDistance, &c.StdDevDistance)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateCluster(ctx context.Context, cluster *database.Cluster) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO clusters (owner_id, person_id, cluster_id, name, mean_face_encoding,
			mean_distance, std_dev_distance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		cluster.OwnerID, cluster.PersonID, cluster.ClusterID, cluster.Name,
		cluster.MeanFaceEncoding, cluster.MeanDistance, cluster.StdDevDistance,
	).Scan(&cluster.ID)
	if err != nil {
		return fmt.Errorf("create cluster %q: %w", cluster.Name, err)
	}
	return nil
}

func (s *Store) SaveCluster(ctx context.Context, cluster *database.Cluster) error {
	if cluster.ID == 0 {
		return s.CreateCluster(ctx, cluster)
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE clusters SET person_id = $2, cluster_id = $3, name = $4,
			mean_face_encoding = $5, mean_distance = $6, std_dev_distance = $7
		WHERE id = $1`,
		cluster.ID, cluster.PersonID, cluster.ClusterID, cluster.Name,
		cluster.MeanFaceEncoding, cluster.MeanDistance, cluster.StdDevDistance)
	if err != nil {
		return fmt.Errorf("update cluster %d: %w", cluster.ID, err)
	}
	return nil
}

func (s *Store) GetOrCreateUnknownCluster(ctx context.Context, ownerID int64) (*database.Cluster, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+clusterColumns+` FROM clusters
		WHERE owner_id = $1 AND cluster_id = $2`,
		ownerID, database.UnknownClusterID)
	c, err := scanCluster(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("query unknown cluster: %w", err)
	}

	c = &database.Cluster{
		OwnerID:   ownerID,
		ClusterID: database.UnknownClusterID,
		Name:      "unknown",
	}
	if err := s.CreateCluster(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListClusters(ctx context.Context, ownerID int64) ([]database.Cluster, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+clusterColumns+` FROM clusters WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var out []database.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ResetClusters drops every cluster of the owner except the unknown one and
// detaches all faces, so the next clustering run starts from scratch.
func (s *Store) ResetClusters(ctx context.Context, ownerID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cluster reset: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM clusters WHERE owner_id = $1 AND cluster_id <> $2`,
		ownerID, database.UnknownClusterID)
	if err != nil {
		return fmt.Errorf("delete clusters: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE faces SET cluster_id = NULL WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("detach faces: %w", err)
	}
	return tx.Commit(ctx)
}
