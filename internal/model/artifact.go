package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArtifactKind tags the variant of a study artifact. Every kind carries its
// own payload fields; consumers switch on the kind exhaustively instead of
// probing fields at runtime.
type ArtifactKind string

const (
	ArtifactSavedQuestion ArtifactKind = "saved_question"
	ArtifactNote          ArtifactKind = "note"
	ArtifactFlashcard     ArtifactKind = "flashcard"
)

// Artifact is a study aid created during an exam session: a bookmarked
// question, a free-form note, or a flashcard. Artifacts are persisted
// independently of the exam result and of each other.
type Artifact struct {
	ID         uuid.UUID    `json:"id"`
	UserID     int          `json:"user_id"`
	QuestionID uuid.UUID    `json:"question_id"`
	Kind       ArtifactKind `json:"kind"`

	// Note payload.
	Content string `json:"content,omitempty"`

	// Flashcard payload.
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the kind tag and its payload.
func (a *Artifact) Validate() error {
	if a.QuestionID == uuid.Nil {
		return fmt.Errorf("artifact: question id required")
	}
	switch a.Kind {
	case ArtifactSavedQuestion:
		return nil
	case ArtifactNote:
		if a.Content == "" {
			return fmt.Errorf("artifact: note content required")
		}
		return nil
	case ArtifactFlashcard:
		if a.Front == "" || a.Back == "" {
			return fmt.Errorf("artifact: flashcard front and back required")
		}
		return nil
	default:
		return fmt.Errorf("artifact: unknown kind %q", a.Kind)
	}
}
