package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/rs/zerolog"
)

// stubStore implements the grading collaborator interfaces in memory,
// standing in for the Redis/PostgreSQL-backed production wiring.
type stubStore struct {
	mu        sync.Mutex
	key       map[uuid.UUID]int
	keyErr    error
	fetchGate chan struct{} // when set, FetchAnswerKey blocks until closed
	fetched   chan struct{} // when set, closed once the first fetch starts
	fetchedOn sync.Once

	resultErr   error
	results     []*model.ExamResult
	artifactErr func(a model.Artifact) error
	artifacts   []model.Artifact
}

func (st *stubStore) FetchAnswerKey(_ context.Context, _ uuid.UUID) (map[uuid.UUID]int, error) {
	if st.fetched != nil {
		st.fetchedOn.Do(func() { close(st.fetched) })
	}
	if st.fetchGate != nil {
		<-st.fetchGate
	}
	if st.keyErr != nil {
		return nil, st.keyErr
	}
	return st.key, nil
}

func (st *stubStore) SaveResult(_ context.Context, r *model.ExamResult) error {
	if st.resultErr != nil {
		return st.resultErr
	}
	st.mu.Lock()
	st.results = append(st.results, r)
	st.mu.Unlock()
	return nil
}

func (st *stubStore) SaveArtifact(_ context.Context, a model.Artifact) error {
	if st.artifactErr != nil {
		if err := st.artifactErr(a); err != nil {
			return err
		}
	}
	st.mu.Lock()
	st.artifacts = append(st.artifacts, a)
	st.mu.Unlock()
	return nil
}

func newGrader(st *stubStore) *Grader {
	return NewGrader(st, st, st, zerolog.Nop())
}

func TestSubmitGradesAgainstAuthoritativeKey(t *testing.T) {
	// Three questions with authoritative correct indices [1, 0, 2]; the
	// session recorded {0: 1, 1: 1} and left position 2 unanswered. The
	// display copy carries a deliberately wrong CorrectIndex to prove the
	// grader never trusts it.
	qs := buildQuestions(3)
	for i := range qs {
		qs[i].CorrectIndex = 3
	}
	st := &stubStore{key: map[uuid.UUID]int{
		qs[0].ID: 1,
		qs[1].ID: 0,
		qs[2].ID: 2,
	}}

	s := New(uuid.New(), 42, qs, 600, 480)
	if err := s.SelectAnswer(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectAnswer(1, 1); err != nil {
		t.Fatal(err)
	}

	result, err := newGrader(st).Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if result.RightCount != 1 || result.WrongCount != 1 {
		t.Errorf("right/wrong = %d/%d, want 1/1", result.RightCount, result.WrongCount)
	}
	// Unanswered questions are excluded from the denominator.
	if result.ScorePercent != 50 {
		t.Errorf("ScorePercent = %d, want 50", result.ScorePercent)
	}
	if got := result.PerQuestionOutcome[qs[0].ID]; got != model.OutcomeRight {
		t.Errorf("outcome[q0] = %s, want right", got)
	}
	if got := result.PerQuestionOutcome[qs[1].ID]; got != model.OutcomeWrong {
		t.Errorf("outcome[q1] = %s, want wrong", got)
	}
	if _, ok := result.PerQuestionOutcome[qs[2].ID]; ok {
		t.Error("unanswered question appears in outcome map")
	}
	if result.TimeTakenSeconds != 120 {
		t.Errorf("TimeTakenSeconds = %d, want 120", result.TimeTakenSeconds)
	}
	if len(st.results) != 1 {
		t.Fatalf("persisted %d results, want 1", len(st.results))
	}
	if s.Status() != StatusFinished {
		t.Errorf("status = %s, want FINISHED", s.Status())
	}
}

func TestSubmitNoAnswersScoresZero(t *testing.T) {
	qs := buildQuestions(2)
	st := &stubStore{key: map[uuid.UUID]int{qs[0].ID: 0, qs[1].ID: 1}}
	s := New(uuid.New(), 1, qs, 60, 60)

	result, err := newGrader(st).Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ScorePercent != 0 || len(result.PerQuestionOutcome) != 0 {
		t.Errorf("empty submit graded as %+v", result)
	}
}

func TestSubmitFetchFailureAbortsGrading(t *testing.T) {
	qs := buildQuestions(2)
	st := &stubStore{keyErr: errors.New("store unavailable")}
	s := New(uuid.New(), 1, qs, 60, 60)
	_ = s.SelectAnswer(0, 1)

	g := newGrader(st)
	result, err := g.Submit(context.Background(), s)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if len(st.results) != 0 {
		t.Errorf("persisted %d results after fetch failure", len(st.results))
	}
	// Session stays finished but ungraded; a retry succeeds.
	if s.Status() != StatusFinished {
		t.Errorf("status = %s, want FINISHED", s.Status())
	}

	st.keyErr = nil
	st.key = map[uuid.UUID]int{qs[0].ID: 1, qs[1].ID: 0}
	result, err = g.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if result.ScorePercent != 100 {
		t.Errorf("retry ScorePercent = %d, want 100", result.ScorePercent)
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want 1", len(st.results))
	}
}

func TestSubmitPersistFailureReturnsScoreAndAllowsRetry(t *testing.T) {
	qs := buildQuestions(1)
	st := &stubStore{
		key:       map[uuid.UUID]int{qs[0].ID: 0},
		resultErr: errors.New("queue down"),
	}
	s := New(uuid.New(), 1, qs, 60, 60)
	_ = s.SelectAnswer(0, 0)

	g := newGrader(st)
	result, err := g.Submit(context.Background(), s)

	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PersistError", err)
	}
	// The score is known even though it was not saved.
	if result == nil || result.ScorePercent != 100 {
		t.Fatalf("result = %+v, want score 100", result)
	}

	st.resultErr = nil
	if _, err := g.Submit(context.Background(), s); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want 1", len(st.results))
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	qs := buildQuestions(1)
	st := &stubStore{
		key:       map[uuid.UUID]int{qs[0].ID: 0},
		fetchGate: make(chan struct{}),
		fetched:   make(chan struct{}),
	}
	s := New(uuid.New(), 1, qs, 60, 60)
	_ = s.SelectAnswer(0, 0)

	g := newGrader(st)

	done := make(chan error, 1)
	go func() {
		_, err := g.Submit(context.Background(), s)
		done <- err
	}()

	// Wait until the first submit is inside the answer-key fetch, then
	// race a second submit against it.
	<-st.fetched
	if _, err := g.Submit(context.Background(), s); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("concurrent Submit = %v, want ErrSubmitInFlight", err)
	}

	close(st.fetchGate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	// After success a further submit is a benign no-op.
	if _, err := g.Submit(context.Background(), s); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("repeat Submit = %v, want ErrAlreadySubmitted", err)
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want exactly 1", len(st.results))
	}
}

func TestSubmitArtifactFailuresAreIndependent(t *testing.T) {
	qs := buildQuestions(1)
	st := &stubStore{
		key: map[uuid.UUID]int{qs[0].ID: 0},
		artifactErr: func(a model.Artifact) error {
			if a.Kind == model.ArtifactFlashcard {
				return errors.New("flashcard table locked")
			}
			return nil
		},
	}
	s := New(uuid.New(), 1, qs, 60, 60)
	_ = s.SaveArtifact(model.Artifact{Kind: model.ArtifactNote, QuestionID: qs[0].ID, Content: "before"})
	_ = s.SaveArtifact(model.Artifact{Kind: model.ArtifactFlashcard, QuestionID: qs[0].ID, Front: "f", Back: "b"})
	_ = s.SaveArtifact(model.Artifact{Kind: model.ArtifactSavedQuestion, QuestionID: qs[0].ID})

	if _, err := newGrader(st).Submit(context.Background(), s); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The failed flashcard must not block the note saved before it or the
	// saved question after it, and must not fail the submit.
	if len(st.artifacts) != 2 {
		t.Fatalf("saved %d artifacts, want 2", len(st.artifacts))
	}
	if len(st.results) != 1 {
		t.Errorf("persisted %d results, want 1", len(st.results))
	}
}
