package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/middleware"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/response"
	"github.com/prepora/prepora-backend/internal/service"
	"github.com/prepora/prepora-backend/internal/validator"
)

// ArtifactHandler exposes saved questions, notes and flashcards for review.
type ArtifactHandler struct {
	artifactService *service.ArtifactService
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(artifactService *service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifactService: artifactService}
}

// List godoc
// GET /api/v1/artifacts?kind=&page=&per_page=
// Returns the caller's artifacts, newest first.
func (h *ArtifactHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	var kind *model.ArtifactKind
	if raw := c.Query("kind"); raw != "" {
		k := model.ArtifactKind(raw)
		switch k {
		case model.ArtifactSavedQuestion, model.ArtifactNote, model.ArtifactFlashcard:
			kind = &k
		default:
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
	}

	artifacts, pagination, err := h.artifactService.ListByUser(c.Request.Context(), claims.UserID, kind, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"artifacts": artifacts}, pagination)
}

type createArtifactRequest struct {
	Kind       string `json:"kind" binding:"required"`
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Content    string `json:"content"`
	Front      string `json:"front"`
	Back       string `json:"back"`
}

// Create godoc
// POST /api/v1/artifacts
// Saves an artifact outside a live session, e.g. while reviewing a result.
func (h *ArtifactHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req createArtifactRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	artifact := &model.Artifact{
		UserID:     claims.UserID,
		Kind:       model.ArtifactKind(req.Kind),
		QuestionID: questionID,
		Content:    req.Content,
		Front:      req.Front,
		Back:       req.Back,
	}

	if err := h.artifactService.Create(c.Request.Context(), artifact); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"artifact": artifact})
}

// Delete godoc
// DELETE /api/v1/artifacts/:artifact_id
// Removes one of the caller's artifacts.
func (h *ArtifactHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	artifactID, err := uuid.Parse(c.Param("artifact_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	deleted, err := h.artifactService.Delete(c.Request.Context(), artifactID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !deleted {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
