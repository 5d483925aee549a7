package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepora/prepora-backend/internal/model"
)

// ArtifactRepository handles study artifact data access.
type ArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

// Create inserts a single artifact. Duplicate saved questions for the same
// user and question are ignored.
func (r *ArtifactRepository) Create(ctx context.Context, a *model.Artifact) error {
	if a.Kind == model.ArtifactSavedQuestion {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO artifacts (user_id, question_id, kind)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, question_id) WHERE kind = 'saved_question' DO NOTHING`,
			a.UserID, a.QuestionID, a.Kind)
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO artifacts (user_id, question_id, kind, content, front, back)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		a.UserID, a.QuestionID, a.Kind, a.Content, a.Front, a.Back,
	).Scan(&a.ID, &a.CreatedAt)
}

// ListByUser retrieves a user's artifacts, optionally filtered by kind.
func (r *ArtifactRepository) ListByUser(ctx context.Context, userID int, kind *model.ArtifactKind, limit, offset int) ([]model.Artifact, int, error) {
	countQuery := `SELECT COUNT(*) FROM artifacts WHERE user_id = $1`
	countArgs := []interface{}{userID}
	if kind != nil {
		countQuery += ` AND kind = $2`
		countArgs = append(countArgs, *kind)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, question_id, kind, content, front, back, created_at
	          FROM artifacts WHERE user_id = $1`
	args := []interface{}{userID}
	argIdx := 2

	if kind != nil {
		query += ` AND kind = $2`
		args = append(args, *kind)
		argIdx++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Kind, &a.Content, &a.Front, &a.Back, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, total, rows.Err()
}

// Delete removes one of the user's own artifacts.
func (r *ArtifactRepository) Delete(ctx context.Context, id uuid.UUID, userID int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM artifacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
