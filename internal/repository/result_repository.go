package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepora/prepora-backend/internal/model"
)

// ResultRepository handles exam result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a single result.
func (r *ResultRepository) Create(ctx context.Context, res *model.ExamResult) error {
	outcome, err := json.Marshal(res.PerQuestionOutcome)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_results
		   (exam_id, user_id, per_question_outcome, right_count, wrong_count,
		    score_percent, time_taken_seconds, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		res.ExamID, res.UserID, outcome, res.RightCount, res.WrongCount,
		res.ScorePercent, res.TimeTakenSeconds, res.CompletedAt,
	).Scan(&res.ID)
}

// BulkCreate inserts a batch of results in one round trip using UNNEST.
func (r *ResultRepository) BulkCreate(ctx context.Context, batch []*model.ExamResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	outcomes := make([]string, 0, n)
	rights := make([]int, 0, n)
	wrongs := make([]int, 0, n)
	scores := make([]int, 0, n)
	timeTakens := make([]int, 0, n)
	completedAts := make([]time.Time, 0, n)

	for _, res := range batch {
		outcome, err := json.Marshal(res.PerQuestionOutcome)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, res.ExamID)
		userIDs = append(userIDs, res.UserID)
		outcomes = append(outcomes, string(outcome))
		rights = append(rights, res.RightCount)
		wrongs = append(wrongs, res.WrongCount)
		scores = append(scores, res.ScorePercent)
		timeTakens = append(timeTakens, res.TimeTakenSeconds)
		completedAts = append(completedAts, res.CompletedAt)
	}

	query := `
		INSERT INTO exam_results
		  (exam_id, user_id, per_question_outcome, right_count, wrong_count,
		   score_percent, time_taken_seconds, completed_at)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::jsonb[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::timestamptz[]
		)
	`

	_, err := r.pool.Exec(ctx, query,
		examIDs, userIDs, outcomes, rights, wrongs, scores, timeTakens, completedAts)
	return err
}

// GetByID retrieves a single result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var outcome []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, per_question_outcome, right_count, wrong_count,
		        score_percent, time_taken_seconds, completed_at
		 FROM exam_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.ExamID, &res.UserID, &outcome, &res.RightCount, &res.WrongCount,
		&res.ScorePercent, &res.TimeTakenSeconds, &res.CompletedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(outcome, &res.PerQuestionOutcome); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByUser retrieves a user's attempts, most recent first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]model.ExamResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, per_question_outcome, right_count, wrong_count,
		        score_percent, time_taken_seconds, completed_at
		 FROM exam_results
		 WHERE user_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		var outcome []byte
		if err := rows.Scan(&res.ID, &res.ExamID, &res.UserID, &outcome, &res.RightCount,
			&res.WrongCount, &res.ScorePercent, &res.TimeTakenSeconds, &res.CompletedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(outcome, &res.PerQuestionOutcome); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// SubjectStat is a per-subject aggregate over a user's attempts.
type SubjectStat struct {
	SubjectID   int     `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Attempts    int     `json:"attempts"`
	AvgScore    float64 `json:"avg_score"`
	BestScore   int     `json:"best_score"`
}

// StatsByUser aggregates a user's attempts per subject.
func (r *ResultRepository) StatsByUser(ctx context.Context, userID int) ([]SubjectStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, COUNT(er.id),
		        ROUND(AVG(er.score_percent)::numeric, 1), MAX(er.score_percent)
		 FROM exam_results er
		 JOIN exams e ON e.id = er.exam_id
		 JOIN subjects s ON s.id = e.subject_id
		 WHERE er.user_id = $1
		 GROUP BY s.id
		 ORDER BY s.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SubjectStat
	for rows.Next() {
		var st SubjectStat
		if err := rows.Scan(&st.SubjectID, &st.SubjectName, &st.Attempts, &st.AvgScore, &st.BestScore); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
