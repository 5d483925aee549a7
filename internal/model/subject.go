package model

import "time"

// Subject groups past exams (Mathematics, Physics, ...).
type Subject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ExamCount int       `json:"exam_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
