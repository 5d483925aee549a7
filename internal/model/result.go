package model

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a graded answer.
type Outcome string

const (
	OutcomeRight Outcome = "right"
	OutcomeWrong Outcome = "wrong"
)

// ExamResult is the immutable record of one graded attempt. It is created
// once at submission and owned by the result store after handoff.
// Unanswered questions do not appear in PerQuestionOutcome.
type ExamResult struct {
	ID                 uuid.UUID             `json:"id,omitempty"`
	ExamID             uuid.UUID             `json:"exam_id"`
	UserID             int                   `json:"user_id"`
	PerQuestionOutcome map[uuid.UUID]Outcome `json:"per_question_outcome"`
	RightCount         int                   `json:"right_count"`
	WrongCount         int                   `json:"wrong_count"`
	ScorePercent       int                   `json:"score_percent"`
	TimeTakenSeconds   int                   `json:"time_taken_seconds"`
	CompletedAt        time.Time             `json:"completed_at"`
}
