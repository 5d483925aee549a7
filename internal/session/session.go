package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/prepora/prepora-backend/internal/model"
)

// Status enumerates session lifecycle states. The only transition is
// ACTIVE → FINISHED, and FINISHED is terminal.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Session is the authoritative in-memory state of one user's attempt at one
// exam: current position, recorded answers, review flags and the countdown
// remainder. All operations are guarded by a mutex; the WebSocket read loop
// and the timer pump are the only writers.
type Session struct {
	mu sync.Mutex

	examID    uuid.UUID
	userID    int
	questions []model.Question
	duration  int // seconds

	current   int
	answers   map[int]int
	flags     map[int]struct{}
	artifacts []model.Artifact
	remaining int
	status    Status

	submitInFlight bool
	submitted      bool
}

// New creates an active session over a fixed, ordered question set. The
// countdown starts at remainingSeconds, which is the full duration for a
// fresh attempt and less after a resume.
func New(examID uuid.UUID, userID int, questions []model.Question, durationSeconds, remainingSeconds int) *Session {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	return &Session{
		examID:    examID,
		userID:    userID,
		questions: questions,
		duration:  durationSeconds,
		answers:   make(map[int]int),
		flags:     make(map[int]struct{}),
		remaining: remainingSeconds,
		status:    StatusActive,
	}
}

// ExamID returns the exam this session belongs to.
func (s *Session) ExamID() uuid.UUID { return s.examID }

// UserID returns the owning user.
func (s *Session) UserID() int { return s.userID }

// Questions returns the session's question set. The slice is fixed for the
// lifetime of the session and must not be mutated by callers.
func (s *Session) Questions() []model.Question { return s.questions }

// SelectAnswer records the option chosen for the question at position.
// Last write wins; repeating an identical call is a no-op. No validation
// against the correct answer happens here; grading is deferred to submit.
func (s *Session) SelectAnswer(position, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return ErrSessionFinished
	}
	if position < 0 || position >= len(s.questions) {
		return ErrInvalidPosition
	}
	if optionIndex < 0 || optionIndex >= len(s.questions[position].Options) {
		return ErrInvalidOption
	}
	s.answers[position] = optionIndex
	return nil
}

// ToggleFlag flips the review flag on the question at position.
func (s *Session) ToggleFlag(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return ErrSessionFinished
	}
	if position < 0 || position >= len(s.questions) {
		return ErrInvalidPosition
	}
	if _, ok := s.flags[position]; ok {
		delete(s.flags, position)
	} else {
		s.flags[position] = struct{}{}
	}
	return nil
}

// GoTo moves the cursor to position. Out-of-range positions are rejected
// rather than clamped; state is unchanged on error.
func (s *Session) GoTo(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return ErrSessionFinished
	}
	if position < 0 || position >= len(s.questions) {
		return ErrInvalidPosition
	}
	s.current = position
	return nil
}

// Next advances the cursor by one, clamped at the last question.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return
	}
	if s.current < len(s.questions)-1 {
		s.current++
	}
}

// Previous moves the cursor back by one, clamped at the first question.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return
	}
	if s.current > 0 {
		s.current--
	}
}

// SaveArtifact attaches a study artifact (saved question, note, flashcard)
// to the session for persistence at submit. Saved questions deduplicate by
// question ID; notes and flashcards always append.
func (s *Session) SaveArtifact(a model.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return ErrSessionFinished
	}
	if a.Kind == model.ArtifactSavedQuestion {
		for _, existing := range s.artifacts {
			if existing.Kind == model.ArtifactSavedQuestion && existing.QuestionID == a.QuestionID {
				return nil
			}
		}
	}
	a.UserID = s.userID
	s.artifacts = append(s.artifacts, a)
	return nil
}

// Tick records a new remaining value from the timer. A tick that arrives
// after the session has been frozen by a submit is an expected benign race
// and is ignored.
func (s *Session) Tick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	s.remaining = remaining
}

// RestoreAnswers seeds recorded answers from a persisted snapshot, used
// when a session is resumed after a reconnect. Positions outside the
// question set and invalid option indexes are dropped.
func (s *Session) RestoreAnswers(answers map[int]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return
	}
	for pos, opt := range answers {
		if pos < 0 || pos >= len(s.questions) {
			continue
		}
		if opt < 0 || opt >= len(s.questions[pos].Options) {
			continue
		}
		s.answers[pos] = opt
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot is a read-only view of the session for rendering and transport.
type Snapshot struct {
	ExamID           uuid.UUID   `json:"exam_id"`
	CurrentIndex     int         `json:"current_index"`
	Answers          map[int]int `json:"answers"`
	Flags            []int       `json:"flags"`
	AnsweredCount    int         `json:"answered_count"`
	LeftCount        int         `json:"left_count"`
	FlaggedCount     int         `json:"flagged_count"`
	Progress         float64     `json:"progress"`
	RemainingSeconds int         `json:"remaining_seconds"`
	QuestionCount    int         `json:"question_count"`
	Status           Status      `json:"status"`
}

// Snapshot returns a copy of the observable session state. Progress is 0
// (not NaN) for an empty question set.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	flags := make([]int, 0, len(s.flags))
	for pos := range s.flags {
		flags = append(flags, pos)
	}
	sort.Ints(flags)

	n := len(s.questions)
	progress := 0.0
	if n > 0 {
		progress = float64(len(s.answers)) / float64(n)
	}

	return Snapshot{
		ExamID:           s.examID,
		CurrentIndex:     s.current,
		Answers:          answers,
		Flags:            flags,
		AnsweredCount:    len(s.answers),
		LeftCount:        n - len(s.answers),
		FlaggedCount:     len(s.flags),
		Progress:         progress,
		RemainingSeconds: s.remaining,
		QuestionCount:    n,
		Status:           s.status,
	}
}

// beginSubmit atomically claims the right to run the submit protocol.
func (s *Session) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrAlreadySubmitted
	}
	if s.submitInFlight {
		return ErrSubmitInFlight
	}
	s.submitInFlight = true
	// Freeze before any grading I/O: a late tick or stray command must not
	// mutate the answer set once grading has started.
	s.status = StatusFinished
	return nil
}

// abortSubmit releases the in-flight guard after a failed attempt so the
// caller can retry. The session stays FINISHED.
func (s *Session) abortSubmit() {
	s.mu.Lock()
	s.submitInFlight = false
	s.mu.Unlock()
}

// completeSubmit marks the session permanently submitted.
func (s *Session) completeSubmit() {
	s.mu.Lock()
	s.submitInFlight = false
	s.submitted = true
	s.mu.Unlock()
}

// gradingView returns the data the grader needs, captured under the lock.
func (s *Session) gradingView() (answers map[int]int, artifacts []model.Artifact, timeTaken int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers = make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	artifacts = append([]model.Artifact(nil), s.artifacts...)

	timeTaken = s.duration - s.remaining
	if timeTaken < 0 {
		timeTaken = 0
	}
	return answers, artifacts, timeTaken
}
