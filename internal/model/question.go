package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// CorrectIndex is always a valid index into Options. Questions are
// immutable once loaded into a session.
type Question struct {
	ID           uuid.UUID `json:"id"`
	ExamID       uuid.UUID `json:"exam_id"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  string    `json:"explanation,omitempty"`
	OrderNum     int       `json:"order_num"`
}

// QuestionForTaker is a question without the correct answer, sent to clients.
// Grading never relies on the client-held copy anyway, but there is no
// reason to hand the key out either.
type QuestionForTaker struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
	OrderNum int       `json:"order_num"`
}
