package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/config"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/session"
)

var ErrNoActiveSession = errors.New("no active session for this exam")

// SessionListener receives push events from a live session. The WebSocket
// handler is the usual implementation; at most one listener is attached per
// session at a time (newest connection wins).
type SessionListener interface {
	OnTick(remaining int)
	OnExpired(result *model.ExamResult, submitErr error)
}

// liveSession pairs one session state machine with its countdown timer.
type liveSession struct {
	sess  *session.Session
	timer *session.Timer

	mu         sync.Mutex
	listener   SessionListener
	lastActive time.Time
}

func (ls *liveSession) setListener(l SessionListener) {
	ls.mu.Lock()
	ls.listener = l
	ls.lastActive = time.Now()
	ls.mu.Unlock()
}

func (ls *liveSession) getListener() SessionListener {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.listener
}

func (ls *liveSession) touch() {
	ls.mu.Lock()
	ls.lastActive = time.Now()
	ls.mu.Unlock()
}

func (ls *liveSession) idleSince() (time.Time, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.lastActive, ls.listener == nil
}

// SessionService owns the live exam sessions. Each session lives in memory
// for its whole run; Redis carries the durable parts (start time, answer
// snapshot) so a crashed or restarted server resumes instead of resetting.
type SessionService struct {
	cfg   *config.Config
	exams *ExamService
	rdb   *redis.Client
	log   zerolog.Logger

	grader *session.Grader

	mu   sync.Mutex
	live map[string]*liveSession
}

// NewSessionService creates a SessionService. The grading collaborators are
// the service itself: answer keys come from the exam cache, results and
// artifacts go to the persistence queues.
func NewSessionService(cfg *config.Config, exams *ExamService, rdb *redis.Client, log zerolog.Logger) *SessionService {
	s := &SessionService{
		cfg:   cfg,
		exams: exams,
		rdb:   rdb,
		log:   log.With().Str("component", "session_service").Logger(),
		live:  make(map[string]*liveSession),
	}
	ga := gradingAdapter{svc: s}
	s.grader = session.NewGrader(ga, ga, ga, log)
	return s
}

func liveKey(examID uuid.UUID, userID int) string {
	return examID.String() + ":" + strconv.Itoa(userID)
}

// StartedSession is what a taker gets when entering or re-entering an exam.
type StartedSession struct {
	Payload          *model.ExamPayload `json:"payload"`
	Snapshot         session.Snapshot   `json:"snapshot"`
	RemainingSeconds int                `json:"remaining_seconds"`
}

// Start begins a session for the given exam, or resumes the existing one.
// The start time lives in Redis, so time keeps running across disconnects
// and server restarts. A reconnect to a live session returns it as is.
func (s *SessionService) Start(ctx context.Context, examID uuid.UUID, userID int) (*StartedSession, error) {
	payload, err := s.exams.GetExamPayload(ctx, examID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if ls, ok := s.live[liveKey(examID, userID)]; ok {
		s.mu.Unlock()
		ls.touch()
		snap := ls.sess.Snapshot()
		return &StartedSession{
			Payload:          payload,
			Snapshot:         snap,
			RemainingSeconds: snap.RemainingSeconds,
		}, nil
	}
	s.mu.Unlock()

	durationSeconds := payload.Duration * 60
	remaining, err := s.remainingSeconds(ctx, examID, userID, durationSeconds)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(payload.Questions))
	for i, q := range payload.Questions {
		questions[i] = model.Question{
			ID:       q.ID,
			ExamID:   examID,
			Text:     q.Text,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		}
	}

	sess := session.New(examID, userID, questions, durationSeconds, remaining)

	// Restore any autosaved answers from a previous connection.
	saved, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(examID.String(), userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("restore answers: %w", err)
	}
	if len(saved) > 0 {
		answers := make(map[int]int, len(saved))
		for posStr, optStr := range saved {
			pos, err1 := strconv.Atoi(posStr)
			opt, err2 := strconv.Atoi(optStr)
			if err1 != nil || err2 != nil {
				continue
			}
			answers[pos] = opt
		}
		sess.RestoreAnswers(answers)
	}

	ls := &liveSession{
		sess:       sess,
		timer:      session.NewTimer(remaining),
		lastActive: time.Now(),
	}

	s.mu.Lock()
	// A concurrent Start for the same key may have won the race.
	if existing, ok := s.live[liveKey(examID, userID)]; ok {
		s.mu.Unlock()
		ls.timer.Stop()
		snap := existing.sess.Snapshot()
		return &StartedSession{Payload: payload, Snapshot: snap, RemainingSeconds: snap.RemainingSeconds}, nil
	}
	s.live[liveKey(examID, userID)] = ls
	s.mu.Unlock()

	go s.pump(ls)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Int("remaining", remaining).
		Msg("Session started")

	snap := sess.Snapshot()
	return &StartedSession{Payload: payload, Snapshot: snap, RemainingSeconds: snap.RemainingSeconds}, nil
}

// remainingSeconds computes the countdown from the persisted start time,
// recording the start time on first entry.
func (s *SessionService) remainingSeconds(ctx context.Context, examID uuid.UUID, userID, durationSeconds int) (int, error) {
	key := config.CacheKey.SessionStartKey(examID.String(), userID)

	startedAt := time.Now()
	set, err := s.rdb.SetNX(ctx, key, startedAt.Unix(), 0).Result()
	if err != nil {
		return 0, fmt.Errorf("record session start: %w", err)
	}
	if set {
		return durationSeconds, nil
	}

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("get session start: %w", err)
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse session start: %w", err)
	}

	elapsed := int(time.Since(time.Unix(unix, 0)).Seconds())
	remaining := durationSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// pump drives one timer into its session and listener. When the countdown
// reaches zero, the server submits on the taker's behalf.
func (s *SessionService) pump(ls *liveSession) {
	session.Run(ls.sess, ls.timer, sessionEvents{svc: s, ls: ls})
}

// sessionEvents adapts a liveSession to the session.Events interface.
type sessionEvents struct {
	svc *SessionService
	ls  *liveSession
}

func (e sessionEvents) Tick(remaining int) {
	if l := e.ls.getListener(); l != nil {
		l.OnTick(remaining)
	}
}

func (e sessionEvents) Expired() {
	e.svc.handleExpiry(e.ls)
}

func (s *SessionService) handleExpiry(ls *liveSession) {
	sess := ls.sess
	s.log.Info().
		Str("exam_id", sess.ExamID().String()).
		Int("user_id", sess.UserID()).
		Msg("Timer expired, forcing submission")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := s.grader.Submit(ctx, sess)
	if err != nil && !errors.Is(err, session.ErrAlreadySubmitted) && !errors.Is(err, session.ErrSubmitInFlight) {
		s.log.Error().Err(err).
			Str("exam_id", sess.ExamID().String()).
			Int("user_id", sess.UserID()).
			Msg("Forced submission failed")
	}

	if l := ls.getListener(); l != nil {
		l.OnExpired(result, err)
	}
	if err == nil {
		s.cleanup(ctx, sess.ExamID(), sess.UserID())
	}
}

// lookup returns the live session or ErrNoActiveSession.
func (s *SessionService) lookup(examID uuid.UUID, userID int) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[liveKey(examID, userID)]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return ls, nil
}

// Snapshot returns the current state of a live session.
func (s *SessionService) Snapshot(examID uuid.UUID, userID int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ls.sess.Snapshot(), nil
}

// Answer records an answer and autosaves it to Redis.
func (s *SessionService) Answer(ctx context.Context, examID uuid.UUID, userID, position, option int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	if err := ls.sess.SelectAnswer(position, option); err != nil {
		return session.Snapshot{}, err
	}

	// Autosave is best-effort: losing one write costs at most one answer
	// on crash recovery.
	key := config.CacheKey.SessionAnswersKey(examID.String(), userID)
	if err := s.rdb.HSet(ctx, key, strconv.Itoa(position), strconv.Itoa(option)).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Int("user_id", userID).Msg("Answer autosave failed")
	}
	return ls.sess.Snapshot(), nil
}

// ToggleFlag flips the review flag on a question.
func (s *SessionService) ToggleFlag(examID uuid.UUID, userID, position int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	if err := ls.sess.ToggleFlag(position); err != nil {
		return session.Snapshot{}, err
	}
	return ls.sess.Snapshot(), nil
}

// GoTo jumps to a question position.
func (s *SessionService) GoTo(examID uuid.UUID, userID, position int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	if err := ls.sess.GoTo(position); err != nil {
		return session.Snapshot{}, err
	}
	return ls.sess.Snapshot(), nil
}

// Next advances to the next question, clamped at the last one.
func (s *SessionService) Next(examID uuid.UUID, userID int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	ls.sess.Next()
	return ls.sess.Snapshot(), nil
}

// Previous steps back one question, clamped at the first one.
func (s *SessionService) Previous(examID uuid.UUID, userID int) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	ls.sess.Previous()
	return ls.sess.Snapshot(), nil
}

// SaveArtifact attaches a study artifact to the live session. It is
// persisted at submission together with the result.
func (s *SessionService) SaveArtifact(examID uuid.UUID, userID int, a model.Artifact) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.touch()
	a.UserID = userID
	if err := ls.sess.SaveArtifact(a); err != nil {
		return session.Snapshot{}, err
	}
	return ls.sess.Snapshot(), nil
}

// Submit grades the session. On success the timer is stopped and the
// session removed; on a fetch or persist failure the session stays live so
// the taker can retry.
func (s *SessionService) Submit(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamResult, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.grader.Submit(ctx, ls.sess)
	if err != nil {
		return result, err
	}

	ls.timer.Stop()
	s.cleanup(ctx, examID, userID)
	return result, nil
}

// Subscribe attaches a listener for timer and expiry events, replacing any
// previous one. Returns the current snapshot for the initial push.
func (s *SessionService) Subscribe(examID uuid.UUID, userID int, l SessionListener) (session.Snapshot, error) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	ls.setListener(l)
	return ls.sess.Snapshot(), nil
}

// Unsubscribe detaches the listener if it is still the active one.
func (s *SessionService) Unsubscribe(examID uuid.UUID, userID int, l SessionListener) {
	ls, err := s.lookup(examID, userID)
	if err != nil {
		return
	}
	ls.mu.Lock()
	if ls.listener == l {
		ls.listener = nil
		ls.lastActive = time.Now()
	}
	ls.mu.Unlock()
}

// cleanup drops the live entry and the Redis start marker. The answer
// snapshot is cleared by the result worker once the row is in PostgreSQL.
func (s *SessionService) cleanup(ctx context.Context, examID uuid.UUID, userID int) {
	s.mu.Lock()
	delete(s.live, liveKey(examID, userID))
	s.mu.Unlock()

	if err := s.rdb.Del(ctx, config.CacheKey.SessionStartKey(examID.String(), userID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Int("user_id", userID).Msg("Failed to clear session start marker")
	}
}

// StartJanitor discards sessions that have sat without a connected client
// past the idle timeout. Their Redis state survives, so a returning taker
// resumes with the clock still counted against them.
func (s *SessionService) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.log.Info().Dur("idle_timeout", s.cfg.SessionIdleTimeout).Msg("Session janitor started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdle()
		}
	}
}

func (s *SessionService) sweepIdle() {
	cutoff := time.Now().Add(-s.cfg.SessionIdleTimeout)

	s.mu.Lock()
	var stale []*liveSession
	var staleKeys []string
	for key, ls := range s.live {
		if last, detached := ls.idleSince(); detached && last.Before(cutoff) {
			stale = append(stale, ls)
			staleKeys = append(staleKeys, key)
		}
	}
	for _, key := range staleKeys {
		delete(s.live, key)
	}
	s.mu.Unlock()

	for _, ls := range stale {
		ls.timer.Stop()
		s.log.Info().
			Str("exam_id", ls.sess.ExamID().String()).
			Int("user_id", ls.sess.UserID()).
			Msg("Idle session discarded")
	}
}

// gradingAdapter wires the grader's collaborator interfaces to the exam
// cache and the persistence queues.
type gradingAdapter struct {
	svc *SessionService
}

// FetchAnswerKey re-fetches the authoritative key at grading time and
// normalizes each entry to a numeric option index.
func (g gradingAdapter) FetchAnswerKey(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]int, error) {
	s := g.svc
	raw, err := s.exams.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, err
	}

	key := make(map[uuid.UUID]int, len(raw))
	for idStr, encoded := range raw {
		qID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse question id %q: %w", idStr, err)
		}
		idx, err := session.OptionIndex(encoded)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", idStr, err)
		}
		key[qID] = idx
	}
	return key, nil
}

// SaveResult queues the graded result for the persistence worker.
func (g gradingAdapter) SaveResult(ctx context.Context, result *model.ExamResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := g.svc.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		return fmt.Errorf("queue result: %w", err)
	}
	return nil
}

// SaveArtifact queues one artifact for the persistence worker.
func (g gradingAdapter) SaveArtifact(ctx context.Context, a model.Artifact) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := g.svc.rdb.RPush(ctx, config.WorkerKey.PersistArtifactsQueue, raw).Err(); err != nil {
		return fmt.Errorf("queue artifact: %w", err)
	}
	return nil
}
