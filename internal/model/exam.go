package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents one past paper: a subject, a year and a fixed question set.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	SubjectID       int        `json:"subject_id"`
	SubjectName     string     `json:"subject_name,omitempty"`
	Title           string     `json:"title"`
	Year            int        `json:"year"`
	DurationMinutes int        `json:"duration_minutes"`
	QuestionCount   int        `json:"question_count"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ExamPayload is the Redis-cached payload sent to clients (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID          `json:"exam_id"`
	Title     string             `json:"title"`
	Year      int                `json:"year"`
	Duration  int                `json:"duration_minutes"`
	Questions []QuestionForTaker `json:"questions"`
}
