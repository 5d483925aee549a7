package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/config"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/repository"
	"github.com/prepora/prepora-backend/internal/response"
)

// Domain errors.
var (
	ErrExamNotAvailable = errors.New("exam is not available")
	ErrNoQuestions      = errors.New("exam has no questions")
)

// ExamService handles the past-paper catalog and its Redis caches. The
// payload cache (what takers see) and the answer-key cache (what the grader
// reads) are warmed together so they can never describe different question
// sets.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotAvailable
		}
		return nil, err
	}
	return exam, nil
}

// ListBySubject retrieves published exams for a subject with pagination.
// Pass subjectID=0 to list across all subjects.
func (s *ExamService) ListBySubject(ctx context.Context, subjectID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	exams, total, err := s.examRepo.ListBySubjectPaginated(ctx, subjectID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	return exams, pagination, nil
}

// WarmExamCache loads an exam's payload and answer key from PostgreSQL into
// Redis. Used on startup prewarm and for lazy self-heal after cache loss.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	takerQuestions := make([]model.QuestionForTaker, len(questions))
	for i, q := range questions {
		takerQuestions[i] = model.QuestionForTaker{
			ID:       q.ID,
			Text:     q.Text,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		}
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Year:      exam.Year,
		Duration:  exam.DurationMinutes,
		Questions: takerQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = strconv.Itoa(q.CorrectIndex)
	}

	examID := exam.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(examID), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(examID), exam.DurationMinutes, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(examID))
	pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(examID), answerKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", examID).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published exams into Redis on application
// startup so first requests never hit a cold cache.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming published exams...")

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached taker payload, self-healing from
// PostgreSQL on a cache miss.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get payload: %w", err)
		}
		if err := s.healCache(ctx, examID); err != nil {
			return nil, err
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
		if err != nil {
			return nil, fmt.Errorf("get payload after heal: %w", err)
		}
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the raw answer key hash (question ID to encoded
// correct option), self-healing from PostgreSQL on a cache miss. Callers
// normalize the encoding.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		if err := s.healCache(ctx, examID); err != nil {
			return nil, err
		}
		result, err = s.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
		if err != nil {
			return nil, fmt.Errorf("get answer key after heal: %w", err)
		}
		if len(result) == 0 {
			return nil, ErrNoQuestions
		}
	}
	return result, nil
}

// healCache re-warms a published exam after cache loss (Redis restart,
// eviction). Non-published exams do not get healed back in.
func (s *ExamService) healCache(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotAvailable
	}
	s.log.Warn().Str("exam_id", examID.String()).Msg("Cache miss, re-warming from database")
	return s.WarmExamCache(ctx, exam)
}
