package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/repository"
	"github.com/prepora/prepora-backend/internal/response"
)

var ErrResultNotFound = errors.New("result not found")

// ResultService exposes past attempts and per-subject aggregates.
type ResultService struct {
	resultRepo *repository.ResultRepository
	log        zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, log zerolog.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// GetByID returns one result, restricted to its owner.
func (s *ResultService) GetByID(ctx context.Context, id uuid.UUID, userID int) (*model.ExamResult, error) {
	res, err := s.resultRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// ListByUser returns a user's attempt history, most recent first.
func (s *ResultService) ListByUser(ctx context.Context, userID, page, perPage int) ([]model.ExamResult, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := s.resultRepo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []model.ExamResult{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return results, pagination, nil
}

// StatsByUser aggregates a user's performance per subject.
func (s *ResultService) StatsByUser(ctx context.Context, userID int) ([]repository.SubjectStat, error) {
	stats, err := s.resultRepo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []repository.SubjectStat{}
	}
	return stats, nil
}
