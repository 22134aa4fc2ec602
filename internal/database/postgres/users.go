package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/timestamp"
)

const userColumns = `id, username, scan_directory, confidence, semantic_search_topk,
	favorite_min_rating, default_timezone, datetime_rules, face_recognition_model`

func scanUser(row pgx.Row) (*database.User, error) {
	var u database.User
	var rules []byte
	err := row.Scan(&u.ID, &u.Username, &u.ScanDirectory, &u.Confidence, &u.SemanticSearchTopK,
		&u.FavoriteMinRating, &u.DefaultTimezone, &rules, &u.FaceRecognitionModel)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(rules) > 0 {
		var parsed []timestamp.Rule
		if err := json.Unmarshal(rules, &parsed); err != nil {
			return nil, fmt.Errorf("parse datetime rules of user %d: %w", u.ID, err)
		}
		u.DatetimeRules = parsed
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*database.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]database.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []database.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, user *database.User) error {
	var rules []byte
	if user.DatetimeRules != nil {
		var err error
		rules, err = json.Marshal(user.DatetimeRules)
		if err != nil {
			return fmt.Errorf("marshal datetime rules: %w", err)
		}
	}

	if user.ID == 0 {
		err := s.pool.QueryRow(ctx, `
			INSERT INTO users (username, scan_directory, confidence, semantic_search_topk,
				favorite_min_rating, default_timezone, datetime_rules, face_recognition_model)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			user.Username, user.ScanDirectory, user.Confidence, user.SemanticSearchTopK,
			user.FavoriteMinRating, user.DefaultTimezone, rules, user.FaceRecognitionModel,
		).Scan(&user.ID)
		if err != nil {
			return fmt.Errorf("insert user: %w", mapErr(err))
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE users SET username = $2, scan_directory = $3, confidence = $4,
			semantic_search_topk = $5, favorite_min_rating = $6, default_timezone = $7,
			datetime_rules = $8, face_recognition_model = $9
		WHERE id = $1`,
		user.ID, user.Username, user.ScanDirectory, user.Confidence, user.SemanticSearchTopK,
		user.FavoriteMinRating, user.DefaultTimezone, rules, user.FaceRecognitionModel)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, mapErr(err))
	}
	return nil
}
