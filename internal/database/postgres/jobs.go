package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
)

const jobColumns = `job_id, job_type, started_by_id, queued_at, started_at, finished_at,
	finished, failed, result`

func scanJob(row pgx.Row) (*database.LongRunningJob, error) {
	var j database.LongRunningJob
	var result []byte
	err := row.Scan(&j.JobID, &j.JobType, &j.StartedByID, &j.QueuedAt, &j.StartedAt,
		&j.FinishedAt, &j.Finished, &j.Failed, &result)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &j.Result); err != nil {
			return nil, fmt.Errorf("parse result of job %s: %w", j.JobID, err)
		}
	}
	return &j, nil
}

func (s *Store) UpsertJob(ctx context.Context, job *database.LongRunningJob) error {
	result, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result of job %s: %w", job.JobID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE SET
			job_type = EXCLUDED.job_type,
			started_by_id = EXCLUDED.started_by_id,
			queued_at = EXCLUDED.queued_at,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			finished = EXCLUDED.finished,
			failed = EXCLUDED.failed,
			result = EXCLUDED.result`,
		job.JobID, job.JobType, job.StartedByID, job.QueuedAt, job.StartedAt,
		job.FinishedAt, job.Finished, job.Failed, result)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*database.LongRunningJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
	return scanJob(row)
}

func (s *Store) UpdateJob(ctx context.Context, job *database.LongRunningJob) error {
	result, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result of job %s: %w", job.JobID, err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET started_at = $2, finished_at = $3, finished = $4, failed = $5,
			result = $6
		WHERE job_id = $1`,
		job.JobID, job.StartedAt, job.FinishedAt, job.Finished, job.Failed, result)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) ListJobs(ctx context.Context, limit int) ([]database.LongRunningJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY queued_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []database.LongRunningJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (s *Store) CountRunningJobs(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE NOT finished`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count running jobs: %w", err)
	}
	return count, nil
}
