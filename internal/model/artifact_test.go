package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestArtifactValidate(t *testing.T) {
	qid := uuid.New()
	tests := []struct {
		name    string
		a       Artifact
		wantErr bool
	}{
		{name: "saved question", a: Artifact{Kind: ArtifactSavedQuestion, QuestionID: qid}},
		{name: "note", a: Artifact{Kind: ArtifactNote, QuestionID: qid, Content: "revise"}},
		{name: "flashcard", a: Artifact{Kind: ArtifactFlashcard, QuestionID: qid, Front: "q", Back: "a"}},
		{name: "missing question id", a: Artifact{Kind: ArtifactSavedQuestion}, wantErr: true},
		{name: "note without content", a: Artifact{Kind: ArtifactNote, QuestionID: qid}, wantErr: true},
		{name: "flashcard without back", a: Artifact{Kind: ArtifactFlashcard, QuestionID: qid, Front: "q"}, wantErr: true},
		{name: "unknown kind", a: Artifact{Kind: "bookmark", QuestionID: qid}, wantErr: true},
		{name: "empty kind", a: Artifact{QuestionID: qid}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}
