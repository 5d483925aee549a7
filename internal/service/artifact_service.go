package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/repository"
	"github.com/prepora/prepora-backend/internal/response"
)

// ArtifactService exposes a user's saved questions, notes and flashcards
// for review outside exam sessions.
type ArtifactService struct {
	artifactRepo *repository.ArtifactRepository
	log          zerolog.Logger
}

// NewArtifactService creates a new ArtifactService.
func NewArtifactService(artifactRepo *repository.ArtifactRepository, log zerolog.Logger) *ArtifactService {
	return &ArtifactService{
		artifactRepo: artifactRepo,
		log:          log.With().Str("component", "artifact_service").Logger(),
	}
}

// ListByUser returns a user's artifacts, newest first, optionally filtered
// by kind.
func (s *ArtifactService) ListByUser(ctx context.Context, userID int, kind *model.ArtifactKind, page, perPage int) ([]model.Artifact, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	artifacts, total, err := s.artifactRepo.ListByUser(ctx, userID, kind, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if artifacts == nil {
		artifacts = []model.Artifact{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return artifacts, pagination, nil
}

// Create saves an artifact outside a live session (e.g. a note written
// while reviewing a past result).
func (s *ArtifactService) Create(ctx context.Context, a *model.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return s.artifactRepo.Create(ctx, a)
}

// Delete removes one of the user's artifacts. Returns false if nothing was
// deleted (wrong owner or unknown ID).
func (s *ArtifactService) Delete(ctx context.Context, id uuid.UUID, userID int) (bool, error) {
	return s.artifactRepo.Delete(ctx, id, userID)
}
