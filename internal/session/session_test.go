package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/model"
)

func buildQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.New(),
			Text:         "question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 0,
			OrderNum:     i,
		}
	}
	return qs
}

func TestNewSessionDefaults(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		s := New(uuid.New(), 1, buildQuestions(n), 600, 600)
		snap := s.Snapshot()

		if snap.AnsweredCount != 0 {
			t.Errorf("n=%d: AnsweredCount = %d, want 0", n, snap.AnsweredCount)
		}
		if snap.FlaggedCount != 0 {
			t.Errorf("n=%d: FlaggedCount = %d, want 0", n, snap.FlaggedCount)
		}
		if snap.CurrentIndex != 0 {
			t.Errorf("n=%d: CurrentIndex = %d, want 0", n, snap.CurrentIndex)
		}
		if snap.Status != StatusActive {
			t.Errorf("n=%d: Status = %s, want %s", n, snap.Status, StatusActive)
		}
		if snap.LeftCount != n {
			t.Errorf("n=%d: LeftCount = %d, want %d", n, snap.LeftCount, n)
		}
		if snap.Progress != 0 {
			t.Errorf("n=%d: Progress = %f, want 0", n, snap.Progress)
		}
	}
}

func TestSelectAnswerLastWriteWins(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(3), 600, 600)

	calls := []struct{ pos, opt int }{
		{0, 1}, {1, 2}, {0, 3}, {0, 3}, {2, 0}, {1, 0},
	}
	for _, c := range calls {
		if err := s.SelectAnswer(c.pos, c.opt); err != nil {
			t.Fatalf("SelectAnswer(%d, %d): %v", c.pos, c.opt, err)
		}
	}

	snap := s.Snapshot()
	want := map[int]int{0: 3, 1: 0, 2: 0}
	if len(snap.Answers) != len(want) {
		t.Fatalf("Answers = %v, want %v", snap.Answers, want)
	}
	for pos, opt := range want {
		if snap.Answers[pos] != opt {
			t.Errorf("Answers[%d] = %d, want %d", pos, snap.Answers[pos], opt)
		}
	}
	if snap.AnsweredCount != 3 || snap.LeftCount != 0 {
		t.Errorf("counts = %d answered / %d left, want 3/0", snap.AnsweredCount, snap.LeftCount)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(2), 600, 600)

	tests := []struct {
		name    string
		pos     int
		opt     int
		wantErr error
	}{
		{"negative position", -1, 0, ErrInvalidPosition},
		{"position past end", 2, 0, ErrInvalidPosition},
		{"negative option", 0, -1, ErrInvalidOption},
		{"option past end", 0, 4, ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SelectAnswer(tt.pos, tt.opt); !errors.Is(err, tt.wantErr) {
				t.Errorf("SelectAnswer(%d, %d) = %v, want %v", tt.pos, tt.opt, err, tt.wantErr)
			}
		})
	}

	if snap := s.Snapshot(); snap.AnsweredCount != 0 {
		t.Errorf("rejected calls mutated state: %v", snap.Answers)
	}
}

func TestToggleFlagIsItsOwnInverse(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(3), 600, 600)

	if err := s.ToggleFlag(1); err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if snap := s.Snapshot(); snap.FlaggedCount != 1 || snap.Flags[0] != 1 {
		t.Fatalf("after first toggle: %v", snap.Flags)
	}

	if err := s.ToggleFlag(1); err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if snap := s.Snapshot(); snap.FlaggedCount != 0 {
		t.Fatalf("after second toggle: %v", snap.Flags)
	}

	// A question may be both answered and flagged.
	if err := s.SelectAnswer(2, 1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.ToggleFlag(2); err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	snap := s.Snapshot()
	if snap.AnsweredCount != 1 || snap.FlaggedCount != 1 {
		t.Errorf("answered+flagged: %d/%d, want 1/1", snap.AnsweredCount, snap.FlaggedCount)
	}
}

func TestNavigationClampsAtBounds(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(3), 600, 600)

	s.Previous()
	if snap := s.Snapshot(); snap.CurrentIndex != 0 {
		t.Errorf("Previous at 0 moved to %d", snap.CurrentIndex)
	}

	s.Next()
	s.Next()
	if snap := s.Snapshot(); snap.CurrentIndex != 2 {
		t.Errorf("CurrentIndex = %d, want 2", snap.CurrentIndex)
	}

	// At the last question Next is a no-op.
	s.Next()
	if snap := s.Snapshot(); snap.CurrentIndex != 2 {
		t.Errorf("Next at last question moved to %d", snap.CurrentIndex)
	}

	if err := s.GoTo(1); err != nil {
		t.Fatalf("GoTo(1): %v", err)
	}
	if err := s.GoTo(3); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("GoTo(3) = %v, want ErrInvalidPosition", err)
	}
	if err := s.GoTo(-1); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("GoTo(-1) = %v, want ErrInvalidPosition", err)
	}
	if snap := s.Snapshot(); snap.CurrentIndex != 1 {
		t.Errorf("rejected GoTo moved cursor to %d", snap.CurrentIndex)
	}
}

func TestFinishedSessionRejectsMutation(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(2), 600, 600)
	if err := s.beginSubmit(); err != nil {
		t.Fatalf("beginSubmit: %v", err)
	}

	if err := s.SelectAnswer(0, 1); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("SelectAnswer on finished = %v", err)
	}
	if err := s.ToggleFlag(0); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("ToggleFlag on finished = %v", err)
	}
	if err := s.GoTo(1); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("GoTo on finished = %v", err)
	}

	// A late timer tick is a benign race, not an error, and must not
	// mutate the frozen remainder.
	before := s.Snapshot().RemainingSeconds
	s.Tick(before - 10)
	if after := s.Snapshot().RemainingSeconds; after != before {
		t.Errorf("tick after freeze changed remaining: %d -> %d", before, after)
	}
}

func TestSaveArtifactDedupAndValidation(t *testing.T) {
	qs := buildQuestions(2)
	s := New(uuid.New(), 7, qs, 600, 600)

	saved := model.Artifact{Kind: model.ArtifactSavedQuestion, QuestionID: qs[0].ID}
	if err := s.SaveArtifact(saved); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	// Saving the same question twice keeps one copy.
	if err := s.SaveArtifact(saved); err != nil {
		t.Fatalf("SaveArtifact duplicate: %v", err)
	}
	if err := s.SaveArtifact(model.Artifact{Kind: model.ArtifactNote, QuestionID: qs[0].ID, Content: "revise"}); err != nil {
		t.Fatalf("SaveArtifact note: %v", err)
	}
	if err := s.SaveArtifact(model.Artifact{Kind: model.ArtifactNote, QuestionID: qs[0].ID}); err == nil {
		t.Error("note without content accepted")
	}
	if err := s.SaveArtifact(model.Artifact{Kind: "bookmark", QuestionID: qs[0].ID}); err == nil {
		t.Error("unknown kind accepted")
	}

	_, artifacts, _ := s.gradingView()
	if len(artifacts) != 2 {
		t.Fatalf("artifact count = %d, want 2", len(artifacts))
	}
	for _, a := range artifacts {
		if a.UserID != 7 {
			t.Errorf("artifact UserID = %d, want 7", a.UserID)
		}
	}
}

func TestRestoreAnswersDropsInvalidEntries(t *testing.T) {
	s := New(uuid.New(), 1, buildQuestions(2), 600, 600)

	s.RestoreAnswers(map[int]int{0: 2, 1: 9, 5: 0, -1: 1})

	snap := s.Snapshot()
	if snap.AnsweredCount != 1 || snap.Answers[0] != 2 {
		t.Errorf("restored answers = %v, want {0:2}", snap.Answers)
	}
}
