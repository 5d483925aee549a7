package session

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/rs/zerolog"
)

// AnswerKeyFetcher retrieves the authoritative answer key for an exam at
// grading time. The key maps question ID to the correct option index in
// canonical numeric encoding (see Normalize). Implementations must not
// serve the client-held display copy.
type AnswerKeyFetcher interface {
	FetchAnswerKey(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]int, error)
}

// ResultStore receives the single graded result of a session.
type ResultStore interface {
	SaveResult(ctx context.Context, result *model.ExamResult) error
}

// ArtifactStore receives study artifacts one at a time. Each call is
// independent: one failure must not affect the others.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, artifact model.Artifact) error
}

// Grader runs the submit protocol: freeze the session, re-fetch the
// authoritative answer key, grade, persist the result, then persist
// auxiliary artifacts best-effort. Manual and timer-forced submission both
// funnel through Submit.
type Grader struct {
	keys      AnswerKeyFetcher
	results   ResultStore
	artifacts ArtifactStore
	log       zerolog.Logger
}

// NewGrader creates a Grader.
func NewGrader(keys AnswerKeyFetcher, results ResultStore, artifacts ArtifactStore, log zerolog.Logger) *Grader {
	return &Grader{
		keys:      keys,
		results:   results,
		artifacts: artifacts,
		log:       log.With().Str("component", "grader").Logger(),
	}
}

// Submit grades the session and hands the result off for persistence.
//
// The ordering is fixed: the session is frozen before the answer-key fetch,
// grading runs only on the frozen answer set, and persistence follows
// grading. A concurrent second call is a no-op (ErrSubmitInFlight); a call
// after success returns ErrAlreadySubmitted. On FetchError or PersistError
// the guard is released so the caller can retry; the session stays
// FINISHED either way and a score is never fabricated from unverified data.
// On PersistError the computed result is returned alongside the error.
func (g *Grader) Submit(ctx context.Context, s *Session) (*model.ExamResult, error) {
	if err := s.beginSubmit(); err != nil {
		return nil, err
	}

	key, err := g.keys.FetchAnswerKey(ctx, s.ExamID())
	if err != nil {
		s.abortSubmit()
		return nil, &FetchError{Err: err}
	}

	answers, artifacts, timeTaken := s.gradingView()

	result := grade(s.ExamID(), s.UserID(), s.Questions(), answers, key)
	result.TimeTakenSeconds = timeTaken
	result.CompletedAt = time.Now().UTC()

	if err := g.results.SaveResult(ctx, result); err != nil {
		s.abortSubmit()
		return result, &PersistError{Err: err}
	}

	// Auxiliary artifacts are best-effort and independent: a failed
	// flashcard must not block a note, and none of them roll back the
	// primary result.
	for _, a := range artifacts {
		if err := g.artifacts.SaveArtifact(ctx, a); err != nil {
			g.log.Warn().
				Err(err).
				Str("kind", string(a.Kind)).
				Str("question_id", a.QuestionID.String()).
				Msg("Artifact save failed, continuing")
		}
	}

	s.completeSubmit()

	g.log.Info().
		Str("exam_id", result.ExamID.String()).
		Int("user_id", result.UserID).
		Int("score", result.ScorePercent).
		Int("right", result.RightCount).
		Int("wrong", result.WrongCount).
		Msg("Session graded")

	return result, nil
}

// grade compares recorded answers against the authoritative key. Positions
// with no recorded answer are excluded from both the outcome map and the
// score denominator. A question missing from the key cannot be verified and
// is likewise excluded.
func grade(examID uuid.UUID, userID int, questions []model.Question, answers map[int]int, key map[uuid.UUID]int) *model.ExamResult {
	outcome := make(map[uuid.UUID]model.Outcome, len(answers))
	right, wrong := 0, 0

	for pos, selected := range answers {
		if pos < 0 || pos >= len(questions) {
			continue
		}
		qID := questions[pos].ID
		correct, ok := key[qID]
		if !ok {
			continue
		}
		if selected == correct {
			outcome[qID] = model.OutcomeRight
			right++
		} else {
			outcome[qID] = model.OutcomeWrong
			wrong++
		}
	}

	score := 0
	if graded := right + wrong; graded > 0 {
		score = int(math.Round(100 * float64(right) / float64(graded)))
	}

	return &model.ExamResult{
		ExamID:             examID,
		UserID:             userID,
		PerQuestionOutcome: outcome,
		RightCount:         right,
		WrongCount:         wrong,
		ScorePercent:       score,
	}
}
