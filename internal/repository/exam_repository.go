package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepora/prepora-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.subject_id, s.name, e.title, e.year, e.duration_minutes,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        e.status, e.created_at, e.updated_at
		 FROM exams e
		 JOIN subjects s ON s.id = e.subject_id
		 WHERE e.id = $1`, id,
	).Scan(&e.ID, &e.SubjectID, &e.SubjectName, &e.Title, &e.Year, &e.DurationMinutes,
		&e.QuestionCount, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListBySubjectPaginated retrieves published exams for a subject, newest
// year first. Pass subjectID=0 to list across all subjects.
func (r *ExamRepository) ListBySubjectPaginated(ctx context.Context, subjectID, limit, offset int) ([]model.Exam, int, error) {
	countQuery := `SELECT COUNT(*) FROM exams WHERE status = 'PUBLISHED'`
	var countArgs []interface{}
	if subjectID > 0 {
		countQuery += ` AND subject_id = $1`
		countArgs = append(countArgs, subjectID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT e.id, e.subject_id, s.name, e.title, e.year, e.duration_minutes,
	                 (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
	                 e.status, e.created_at, e.updated_at
	          FROM exams e
	          JOIN subjects s ON s.id = e.subject_id
	          WHERE e.status = 'PUBLISHED'`
	var args []interface{}
	argIdx := 1

	if subjectID > 0 {
		query += ` AND e.subject_id = $1`
		args = append(args, subjectID)
		argIdx++
	}

	query += ` ORDER BY e.year DESC, e.title ASC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.SubjectName, &e.Title, &e.Year, &e.DurationMinutes,
			&e.QuestionCount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all exams with PUBLISHED status.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.subject_id, s.name, e.title, e.year, e.duration_minutes,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        e.status, e.created_at, e.updated_at
		 FROM exams e
		 JOIN subjects s ON s.id = e.subject_id
		 WHERE e.status = $1
		 ORDER BY e.created_at DESC`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.SubjectName, &e.Title, &e.Year, &e.DurationMinutes,
			&e.QuestionCount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (subject_id, title, year, duration_minutes, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		e.SubjectID, e.Title, e.Year, e.DurationMinutes, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}
