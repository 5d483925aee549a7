package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/middleware"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/response"
	"github.com/prepora/prepora-backend/internal/service"
	"github.com/prepora/prepora-backend/internal/session"
	ws "github.com/prepora/prepora-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live exam session: commands in, state and timer
// events out.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// wsClient serializes writes to one connection. The read loop and the
// timer pump both push frames, and gorilla connections allow only one
// concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  zerolog.Logger
}

func (w *wsClient) write(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ws.WriteTyped(w.conn, v); err != nil {
		w.log.Debug().Err(err).Msg("WebSocket write failed")
	}
}

func (w *wsClient) writeError(code response.ErrCode) {
	w.write(ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: response.GetMessage(code)})
}

// OnTick implements service.SessionListener.
func (w *wsClient) OnTick(remaining int) {
	w.write(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: remaining})
}

// OnExpired implements service.SessionListener.
func (w *wsClient) OnExpired(result *model.ExamResult, submitErr error) {
	resp := ws.ExpiredResponse{Event: ws.EventExpired, Result: result}
	if submitErr != nil && !errors.Is(submitErr, session.ErrAlreadySubmitted) && !errors.Is(submitErr, session.ErrSubmitInFlight) {
		resp.Error = "time expired but submission failed, retry submit"
	}
	w.write(resp)
}

// Stream godoc
// WS /ws/v1/exams/:exam_id/stream?token=...
// Upgrades to WebSocket, starts or resumes the session and streams it.
func (h *WSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	userID := claims.UserID

	// Start (or resume) before upgrading so a bad exam still gets a clean
	// HTTP error instead of an immediately closed socket.
	if _, err := h.sessionService.Start(c.Request.Context(), examID, userID); err != nil {
		failSession(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("exam_id", examID.String()).
		Logger()

	client := &wsClient{conn: conn, log: wsLog}

	snap, err := h.sessionService.Subscribe(examID, userID, client)
	if err != nil {
		client.writeError(response.ErrNoActiveSession)
		return
	}
	defer h.sessionService.Unsubscribe(examID, userID, client)

	wsLog.Info().Msg("Taker connected")
	client.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})

	for {
		var envelope ws.RequestEnvelope
		raw, err := readRaw(conn, &envelope)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if done := h.dispatch(c, client, examID, userID, envelope.Action, raw); done {
			break
		}
	}
}

// dispatch runs one client action. Returns true when the stream is over.
func (h *WSHandler) dispatch(c *gin.Context, client *wsClient, examID uuid.UUID, userID int, action ws.Action, raw []byte) bool {
	switch action {
	case ws.ActionAnswer:
		var req ws.AnswerRequest
		if !decodeInto(client, raw, &req) {
			return false
		}
		snap, err := h.sessionService.Answer(c.Request.Context(), examID, userID, req.Position, req.Option)
		h.pushState(client, snap, err)

	case ws.ActionFlag:
		var req ws.FlagRequest
		if !decodeInto(client, raw, &req) {
			return false
		}
		snap, err := h.sessionService.ToggleFlag(examID, userID, req.Position)
		h.pushState(client, snap, err)

	case ws.ActionGoTo:
		var req ws.GoToRequest
		if !decodeInto(client, raw, &req) {
			return false
		}
		snap, err := h.sessionService.GoTo(examID, userID, req.Position)
		h.pushState(client, snap, err)

	case ws.ActionNext:
		snap, err := h.sessionService.Next(examID, userID)
		h.pushState(client, snap, err)

	case ws.ActionPrev:
		snap, err := h.sessionService.Previous(examID, userID)
		h.pushState(client, snap, err)

	case ws.ActionSaveArtifact:
		var req ws.SaveArtifactRequest
		if !decodeInto(client, raw, &req) {
			return false
		}
		h.handleSaveArtifact(client, examID, userID, &req)

	case ws.ActionSubmit:
		result, err := h.sessionService.Submit(c.Request.Context(), examID, userID)
		if err != nil {
			client.writeError(sessionErrCode(err))
			return false
		}
		client.write(ws.GradedResponse{Event: ws.EventGraded, Result: result})
		return true

	case ws.ActionPing:
		client.write(ws.PongResponse{Event: ws.EventPong})

	default:
		client.log.Warn().Str("action", string(action)).Msg("Unknown action")
		client.writeError(response.ErrInvalidPayload)
	}
	return false
}

func (h *WSHandler) handleSaveArtifact(client *wsClient, examID uuid.UUID, userID int, req *ws.SaveArtifactRequest) {
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		client.writeError(response.ErrInvalidID)
		return
	}

	artifact := model.Artifact{
		Kind:       model.ArtifactKind(req.Kind),
		QuestionID: questionID,
		Content:    req.Content,
		Front:      req.Front,
		Back:       req.Back,
	}

	if _, err := h.sessionService.SaveArtifact(examID, userID, artifact); err != nil {
		client.writeError(sessionErrCode(err))
		return
	}
	client.write(ws.SavedResponse{Event: ws.EventSaved, Kind: req.Kind})
}

func (h *WSHandler) pushState(client *wsClient, snap session.Snapshot, err error) {
	if err != nil {
		client.writeError(sessionErrCode(err))
		return
	}
	client.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})
}

// readRaw reads one message with a deadline and peeks at its action.
func readRaw(conn *websocket.Conn, envelope *ws.RequestEnvelope) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeInto(client *wsClient, raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		client.writeError(response.ErrInvalidPayload)
		return false
	}
	return true
}

// sessionErrCode maps session and service errors to wire error codes.
func sessionErrCode(err error) response.ErrCode {
	var fe *session.FetchError
	var pe *session.PersistError
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		return response.ErrNoActiveSession
	case errors.Is(err, session.ErrSessionFinished):
		return response.ErrSessionFinished
	case errors.Is(err, session.ErrInvalidPosition):
		return response.ErrInvalidPosition
	case errors.Is(err, session.ErrInvalidOption):
		return response.ErrInvalidOption
	case errors.Is(err, session.ErrSubmitInFlight):
		return response.ErrSubmitInFlight
	case errors.Is(err, session.ErrAlreadySubmitted):
		return response.ErrAlreadySubmitted
	case errors.As(err, &fe):
		return response.ErrAnswerKeyUnfetched
	case errors.As(err, &pe):
		return response.ErrResultNotPersisted
	default:
		return response.ErrInvalidPayload
	}
}
