package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/grader"
	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
)

// Programming errors surfaced to callers. Everything infrastructural is
// folded into the session's persistence warning instead.
var (
	ErrNoSession       = errors.New("no active session loaded")
	ErrUnknownQuestion = errors.New("question does not exist in this exam")
)

// LocalStore is the fast-path session store: exact-key get/set/delete of one
// serialized session per (exam, user). Reads during an active attempt hit
// this store only.
type LocalStore interface {
	Get(ctx context.Context, examID, userKey string) (*model.ExamSession, error)
	Put(ctx context.Context, userKey string, s *model.ExamSession) error
	Delete(ctx context.Context, examID, userKey string) error
}

// BackupStore is the authoritative off-device store used for cross-device
// recovery and dashboard queries.
type BackupStore interface {
	GetInProgress(ctx context.Context, examID, userKey string) (*model.ExamSession, error)
	Upsert(ctx context.Context, userKey string, s *model.ExamSession) error
	Delete(ctx context.Context, examID, userKey string) error
}

// RetryQueue receives session snapshots whose remote backup failed.
type RetryQueue interface {
	Enqueue(ctx context.Context, userKey string, s *model.ExamSession) error
}

// ProgressSink receives live progress events. Best-effort.
type ProgressSink interface {
	Publish(ctx context.Context, ev repository.ProgressEvent) error
}

// Engine orchestrates exam sessions: it owns the state machine, merges local
// and remote state, and is the only component other subsystems call. Local
// writes are synchronous with every mutation; remote backups are trailing-edge
// debounced behind the configured quiet period.
type Engine struct {
	local    LocalStore
	backup   BackupStore
	grader   grader.Authoritative
	retry    RetryQueue
	progress ProgressSink

	quiet        time.Duration
	gradeTimeout time.Duration
	newTimer     TimerFactory
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithRetryQueue wires the background-retry queue for failed remote backups.
func WithRetryQueue(q RetryQueue) Option {
	return func(e *Engine) { e.retry = q }
}

// WithProgressSink wires the live progress event publisher.
func WithProgressSink(p ProgressSink) Option {
	return func(e *Engine) { e.progress = p }
}

// WithGradeTimeout bounds the single authoritative grading attempt.
func WithGradeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.gradeTimeout = d }
}

// WithClock substitutes the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTimerFactory substitutes the debounce timer. Test hook.
func WithTimerFactory(f TimerFactory) Option {
	return func(e *Engine) { e.newTimer = f }
}

// NewEngine creates the session engine. quiet is the remote-backup debounce
// quiet period.
func NewEngine(local LocalStore, backup BackupStore, auth grader.Authoritative, quiet time.Duration, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		backup:   backup,
		grader:   auth,
		quiet:    quiet,
		newTimer: defaultTimerFactory,
		now:      time.Now,
		log:      log.With().Str("component", "session_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load resolves the session for (exam, identity): local copy first, then the
// remote backup for logged-in students, then a brand-new session. Remote
// failures during lookup are treated as not-found so this path never blocks an
// exam start on the network.
func (e *Engine) Load(ctx context.Context, exam *model.Exam, identity model.Identity) (*Session, error) {
	if exam == nil || exam.ID == "" {
		return nil, errors.New("load: exam document is required")
	}
	userKey := identity.Key()

	state, err := e.local.Get(ctx, exam.ID, userKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		e.log.Warn().Err(err).Str("exam_id", exam.ID).Msg("Local session read failed, falling through")
	}

	if state == nil && !identity.IsGuest() {
		remote, rerr := e.backup.GetInProgress(ctx, exam.ID, userKey)
		switch {
		case rerr == nil:
			state = remote
			// Cache the recovered session so subsequent loads stay off the network.
			if perr := e.local.Put(ctx, userKey, state); perr != nil {
				e.log.Warn().Err(perr).Str("exam_id", exam.ID).Msg("Failed to cache recovered session locally")
			}
		case !errors.Is(rerr, repository.ErrNotFound):
			e.log.Warn().Err(rerr).Str("exam_id", exam.ID).Msg("Remote session lookup failed, treating as not found")
		}
	}

	created := false
	if state == nil {
		state = model.NewExamSession(exam, e.now())
		created = true
	}
	clampIndex(state, exam)

	s := &Session{
		engine:   e,
		exam:     exam,
		identity: identity,
		userKey:  userKey,
		state:    state,
		saver:    newDebouncer(e.quiet, e.newTimer),
		log:      e.log.With().Str("exam_id", exam.ID).Str("user_key", userKey).Logger(),
	}

	if created {
		s.mu.Lock()
		s.saveLocalLocked(ctx)
		snap := s.state.Clone()
		s.mu.Unlock()
		// Best-effort initial backup; failure only degrades durability.
		s.backupSnapshot(ctx, snap)
	}

	return s, nil
}

// clampIndex keeps the current question index inside [0, totalQuestions-1].
// A session recovered against a shrunk exam would otherwise point past the end.
func clampIndex(s *model.ExamSession, exam *model.Exam) {
	max := exam.QuestionCount() - 1
	if max < 0 {
		max = 0
	}
	if s.CurrentQuestionIndex < 0 {
		s.CurrentQuestionIndex = 0
	}
	if s.CurrentQuestionIndex > max {
		s.CurrentQuestionIndex = max
	}
}
