package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/grader"
	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
)

const warnBackupPrefix = "remote backup failed"

// Session is the explicit handle for one student's attempt at one exam. It is
// returned by Engine.Load and threaded through every subsequent call; there
// is no implicit current-session singleton. Methods are safe for the
// single-caller-plus-async-save model: the mutex exists because debounced
// backups complete (and update the persistence warning) asynchronously.
type Session struct {
	engine   *Engine
	exam     *model.Exam
	identity model.Identity
	userKey  string
	saver    *debouncer
	log      zerolog.Logger

	mu    sync.Mutex
	state *model.ExamSession
}

// Exam returns the immutable exam definition this session runs against.
func (s *Session) Exam() *model.Exam { return s.exam }

// Snapshot returns a deep copy of the current session state.
func (s *Session) Snapshot() *model.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SubmitAnswer records the answer text for a question and, when autoGrade is
// set, attaches the deterministic grade. An answer already graded
// heuristically keeps its mark, correctness and feedback: only the raw text
// and timestamp are updated. Unknown question IDs are a caller programming
// error and return ErrUnknownQuestion.
func (s *Session) SubmitAnswer(ctx context.Context, questionID, answerText string, autoGrade bool) (model.StudentAnswer, error) {
	s.mu.Lock()

	if s.state == nil {
		s.mu.Unlock()
		return model.StudentAnswer{}, ErrNoSession
	}
	q := s.exam.QuestionByID(questionID)
	if q == nil {
		s.mu.Unlock()
		return model.StudentAnswer{}, fmt.Errorf("submit answer %q: %w", questionID, ErrUnknownQuestion)
	}

	now := s.engine.now()
	ans := s.state.Answers[questionID]
	if ans != nil && ans.GradingMode == model.GradingModeHeuristic {
		// Heuristic marks are authoritative and monotonic: never regraded
		// deterministically.
		ans.Answer = answerText
		ans.SubmittedAt = now
	} else {
		ans = &model.StudentAnswer{
			QuestionID:  questionID,
			Answer:      answerText,
			SubmittedAt: now,
		}
		if autoGrade {
			res := grader.GradeDeterministic(q, answerText)
			correct := res.IsCorrect
			marks := res.MarksAwarded
			ans.IsCorrect = &correct
			ans.MarksAwarded = &marks
			ans.Feedback = res.Feedback
			ans.GradingMode = model.GradingModeDeterministic
		}
		s.state.Answers[questionID] = ans
	}
	s.state.RecomputeEarnedMarks()

	s.saveLocalLocked(ctx)
	out := *ans
	s.mu.Unlock()

	s.scheduleBackup()
	s.publishProgress(ctx)
	return out, nil
}

// GoToQuestion moves the current question index, clamped into range. No
// grading side effects.
func (s *Session) GoToQuestion(ctx context.Context, index int) {
	s.mu.Lock()
	s.state.CurrentQuestionIndex = index
	clampIndex(s.state, s.exam)
	s.saveLocalLocked(ctx)
	s.mu.Unlock()

	s.scheduleBackup()
}

// Progress returns the rounded percentage of questions answered, regardless
// of correctness. 0 when the exam has no questions.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.exam.QuestionCount()
	if s.state == nil || total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.state.AnsweredCount()) / float64(total)))
}

// Complete transitions the session to completed and runs one authoritative
// grading attempt. Grading failure never fails completion: the session keeps
// its deterministic totals and records a warning instead, so the student
// always sees a result. Calling Complete again on a completed session re-runs
// the same merge, which is how callers retry a failed grading pass.
func (s *Session) Complete(ctx context.Context) (*model.ExamSession, error) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}

	now := s.engine.now()
	s.state.Status = model.SessionStatusCompleted
	s.state.CompletedAt = &now

	answers := make(map[string]string, len(s.state.Answers))
	for qid, a := range s.state.Answers {
		answers[qid] = a.Answer
	}
	s.mu.Unlock()

	gctx := ctx
	if s.engine.gradeTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.engine.gradeTimeout)
		defer cancel()
	}

	// Single attempt, no internal retry. The raw answer text goes over the
	// wire; provisional marks never influence authoritative grading.
	res, err := s.engine.grader.Grade(gctx, grader.Request{
		ExamID:    s.exam.ID,
		Exam:      s.exam,
		Answers:   answers,
		StudentID: s.identity.StudentID,
		ClassID:   s.identity.ClassID,
		SchoolID:  s.identity.SchoolID,
	})

	s.mu.Lock()
	switch {
	case err != nil:
		s.log.Warn().Err(err).Msg("Authoritative grading failed, keeping deterministic totals")
		s.state.RecomputeEarnedMarks()
		s.state.PersistenceWarning = "authoritative grading unavailable: " + err.Error()
	case res == nil || !res.Success:
		detail := "grader reported failure"
		if res != nil && res.Error != "" {
			detail = res.Error
		}
		s.log.Warn().Str("detail", detail).Msg("Authoritative grading rejected, keeping deterministic totals")
		s.state.RecomputeEarnedMarks()
		s.state.PersistenceWarning = "authoritative grading unavailable: " + detail
	default:
		mergeAuthoritative(s.exam, s.state, res)
	}

	// The final state is persisted directly to both stores; a pending
	// debounced backup would only duplicate it.
	s.saver.Stop()
	s.saveLocalLocked(ctx)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.backupSnapshot(ctx, snap)
	s.publishProgress(ctx)
	return s.Snapshot(), nil
}

// Abandon marks the attempt abandoned and persists it. Abandoned sessions are
// not candidates for cross-device recovery.
func (s *Session) Abandon(ctx context.Context) error {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.state.Status = model.SessionStatusAbandoned
	s.saver.Stop()
	s.saveLocalLocked(ctx)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.backupSnapshot(ctx, snap)
	s.publishProgress(ctx)
	return nil
}

// Reset deletes the session from both stores and starts a brand-new
// in-progress attempt with empty answers. Prior attempt data is gone as far
// as this engine is concerned; retention is an upstream concern.
func (s *Session) Reset(ctx context.Context) error {
	s.saver.Stop()

	if err := s.engine.local.Delete(ctx, s.exam.ID, s.userKey); err != nil {
		s.log.Warn().Err(err).Msg("Local session delete failed during reset")
	}
	if err := s.engine.backup.Delete(ctx, s.exam.ID, s.userKey); err != nil {
		s.log.Warn().Err(err).Msg("Remote session delete failed during reset")
	}

	s.mu.Lock()
	s.state = model.NewExamSession(s.exam, s.engine.now())
	s.saveLocalLocked(ctx)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.backupSnapshot(ctx, snap)
	s.publishProgress(ctx)
	return nil
}

// saveLocalLocked writes the session to the local store synchronously so a
// Load right after a mutation is guaranteed to observe it. Failures degrade
// durability, never the mutation. Caller holds s.mu.
func (s *Session) saveLocalLocked(ctx context.Context) {
	if err := s.engine.local.Put(ctx, s.userKey, s.state); err != nil {
		s.log.Error().Err(err).Msg("Local session write failed")
		s.state.PersistenceWarning = "local save failed: " + err.Error()
	}
}

// scheduleBackup arms the trailing-edge debounce for the remote backup. The
// fired callback snapshots the state current at fire time, not at arm time.
func (s *Session) scheduleBackup() {
	s.saver.Trigger(func() {
		ctx := context.Background()
		s.mu.Lock()
		snap := s.state.Clone()
		s.mu.Unlock()
		s.backupSnapshot(ctx, snap)
	})
}

// backupSnapshot upserts one snapshot to the remote store. On failure the
// snapshot is queued for background retry and the warning is surfaced on the
// live session; on success a previous backup warning is cleared.
func (s *Session) backupSnapshot(ctx context.Context, snap *model.ExamSession) {
	err := s.engine.backup.Upsert(ctx, s.userKey, snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Msg("Remote backup failed")
		s.state.PersistenceWarning = warnBackupPrefix + ": " + err.Error()
		if s.engine.retry != nil {
			if qerr := s.engine.retry.Enqueue(ctx, s.userKey, snap); qerr != nil {
				s.log.Error().Err(qerr).Msg("Backup retry enqueue failed")
			}
		}
		return
	}

	if s.state.RemoteID == nil {
		s.state.RemoteID = snap.RemoteID
	}
	// Only clear warnings this path owns; a grading warning must survive
	// later successful backups.
	if strings.HasPrefix(s.state.PersistenceWarning, warnBackupPrefix) {
		s.state.PersistenceWarning = ""
	}
}

// publishProgress emits a live progress event. Best-effort.
func (s *Session) publishProgress(ctx context.Context) {
	if s.engine.progress == nil {
		return
	}

	s.mu.Lock()
	ev := repository.ProgressEvent{
		ExamID:      s.exam.ID,
		UserKey:     s.userKey,
		Status:      s.state.Status,
		EarnedMarks: s.state.EarnedMarks,
		TotalMarks:  s.state.TotalMarks,
		At:          s.engine.now(),
	}
	total := s.exam.QuestionCount()
	if total > 0 {
		ev.Progress = int(math.Round(100 * float64(s.state.AnsweredCount()) / float64(total)))
	}
	s.mu.Unlock()

	if err := s.engine.progress.Publish(ctx, ev); err != nil {
		s.log.Debug().Err(err).Msg("Progress publish failed")
	}
}
