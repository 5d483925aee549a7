package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer       Action = "answer"
	ActionFlag         Action = "flag"
	ActionGoTo         Action = "goto"
	ActionNext         Action = "next"
	ActionPrev         Action = "prev"
	ActionSaveArtifact Action = "save_artifact"
	ActionSubmit       Action = "submit"
	ActionPing         Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records the selected option for a question position.
type AnswerRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
	Option   int    `json:"option"`
}

// FlagRequest toggles the review flag on a question position.
type FlagRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// GoToRequest jumps to a question position.
type GoToRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// SaveArtifactRequest attaches a study artifact to the session.
type SaveArtifactRequest struct {
	Action     Action `json:"action"`
	Kind       string `json:"kind"`
	QuestionID string `json:"question_id"`
	Content    string `json:"content,omitempty"`
	Front      string `json:"front,omitempty"`
	Back       string `json:"back,omitempty"`
}

// SubmitRequest finishes and grades the session.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState   Event = "state"
	EventTick    Event = "tick"
	EventExpired Event = "expired"
	EventGraded  Event = "graded"
	EventSaved   Event = "saved"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// StateResponse carries a full session snapshot after a state-changing
// action and on connect.
type StateResponse struct {
	Event    Event       `json:"event"`
	Snapshot interface{} `json:"snapshot"`
}

// TickResponse is pushed every second while the countdown runs.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// ExpiredResponse announces that time ran out and the server submitted the
// session. Result is nil if the forced submission failed.
type ExpiredResponse struct {
	Event  Event       `json:"event"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// GradedResponse carries the result of a client-requested submission.
type GradedResponse struct {
	Event  Event       `json:"event"`
	Result interface{} `json:"result"`
}

// SavedResponse confirms an artifact was attached to the session.
type SavedResponse struct {
	Event Event  `json:"event"`
	Kind  string `json:"kind"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
