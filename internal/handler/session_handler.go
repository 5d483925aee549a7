package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/middleware"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/response"
	"github.com/prepora/prepora-backend/internal/service"
	"github.com/prepora/prepora-backend/internal/session"
	"github.com/prepora/prepora-backend/internal/validator"
)

// SessionHandler exposes the exam session over REST. The WebSocket stream
// is the primary interface; these endpoints serve clients that lost the
// socket and as the submission fallback.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func parseSessionTarget(c *gin.Context) (uuid.UUID, int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, 0, false
	}
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}
	return examID, claims.UserID, true
}

// failSession maps session and service errors onto API error codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
	case errors.Is(err, service.ErrExamNotAvailable), errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
	case errors.Is(err, session.ErrSessionFinished):
		response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
	case errors.Is(err, session.ErrInvalidPosition):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
	case errors.Is(err, session.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
	case errors.Is(err, session.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	default:
		var fe *session.FetchError
		var pe *session.PersistError
		switch {
		case errors.As(err, &fe):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrAnswerKeyUnfetched)
		case errors.As(err, &pe):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrResultNotPersisted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}

// Start godoc
// POST /api/v1/exams/:exam_id/session
// Starts a session or resumes the existing one, returning the paper and
// the current snapshot.
func (h *SessionHandler) Start(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	started, err := h.sessionService.Start(c.Request.Context(), examID, userID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, started)
}

// Snapshot godoc
// GET /api/v1/exams/:exam_id/session
// Returns the live session snapshot.
func (h *SessionHandler) Snapshot(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.Snapshot(examID, userID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

type answerRequest struct {
	Position int `json:"position" binding:"min=0"`
	Option   int `json:"option" binding:"min=0"`
}

// Answer godoc
// PUT /api/v1/exams/:exam_id/session/answer
// Records an answer (last write wins).
func (h *SessionHandler) Answer(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.Answer(c.Request.Context(), examID, userID, req.Position, req.Option)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

type positionRequest struct {
	Position int `json:"position" binding:"min=0"`
}

// Flag godoc
// PUT /api/v1/exams/:exam_id/session/flag
// Toggles the review flag on a question.
func (h *SessionHandler) Flag(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	var req positionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.ToggleFlag(examID, userID, req.Position)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// GoTo godoc
// PUT /api/v1/exams/:exam_id/session/position
// Jumps to a question position.
func (h *SessionHandler) GoTo(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	var req positionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.GoTo(examID, userID, req.Position)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

type artifactRequest struct {
	Kind       string `json:"kind" binding:"required"`
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Content    string `json:"content"`
	Front      string `json:"front"`
	Back       string `json:"back"`
}

// SaveArtifact godoc
// POST /api/v1/exams/:exam_id/session/artifacts
// Attaches a saved question, note or flashcard to the live session.
func (h *SessionHandler) SaveArtifact(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	var req artifactRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	artifact := model.Artifact{
		Kind:       model.ArtifactKind(req.Kind),
		QuestionID: questionID,
		Content:    req.Content,
		Front:      req.Front,
		Back:       req.Back,
	}

	snap, err := h.sessionService.SaveArtifact(examID, userID, artifact)
	if err != nil {
		if errors.Is(err, session.ErrSessionFinished) {
			failSession(c, err)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// Submit godoc
// POST /api/v1/exams/:exam_id/session/submit
// Grades the session against the authoritative answer key.
func (h *SessionHandler) Submit(c *gin.Context) {
	examID, userID, ok := parseSessionTarget(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), examID, userID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}
