package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusAbandoned  SessionStatus = "ABANDONED"
)

// GradingMode identifies which grader produced the current mark for an answer.
type GradingMode string

const (
	// GradingModeDeterministic marks come from the on-device exact-match grader.
	GradingModeDeterministic GradingMode = "DETERMINISTIC"
	// GradingModeHeuristic marks come from the authoritative remote grader and
	// are never overwritten by a later deterministic result.
	GradingModeHeuristic GradingMode = "HEURISTIC"
)

// StudentAnswer records one submitted answer and its current grade.
type StudentAnswer struct {
	QuestionID   string      `json:"question_id"`
	Answer       string      `json:"answer"`
	IsCorrect    *bool       `json:"is_correct,omitempty"`
	Feedback     string      `json:"feedback,omitempty"`
	MarksAwarded *float64    `json:"marks_awarded,omitempty"`
	GradingMode  GradingMode `json:"grading_mode,omitempty"`
	SubmittedAt  time.Time   `json:"submitted_at"`
}

// Marks returns the awarded marks, or 0 when the answer has not been graded.
func (a *StudentAnswer) Marks() float64 {
	if a == nil || a.MarksAwarded == nil {
		return 0
	}
	return *a.MarksAwarded
}

// SectionResult is one row of the authoritative grading breakdown.
type SectionResult struct {
	Title       string  `json:"title"`
	EarnedMarks float64 `json:"earned_marks"`
	TotalMarks  float64 `json:"total_marks"`
}

// TopicNote is per-topic feedback from the authoritative grader.
type TopicNote struct {
	Topic    string `json:"topic"`
	Feedback string `json:"feedback"`
}

// GradeReport is the structured report attached after authoritative grading.
type GradeReport struct {
	SectionBreakdown    []SectionResult `json:"section_breakdown,omitempty"`
	TopicFeedback       []TopicNote     `json:"topic_feedback,omitempty"`
	RecommendedPractice []string        `json:"recommended_practice,omitempty"`
	GradingStatus       string          `json:"grading_status,omitempty"`
	Percentage          float64         `json:"percentage,omitempty"`
}

// ExamSession is the aggregate root tracking one student's attempt at one exam.
type ExamSession struct {
	ExamID               string                    `json:"exam_id"`
	RemoteID             *uuid.UUID                `json:"remote_id,omitempty"`
	GradingSessionID     string                    `json:"grading_session_id,omitempty"`
	Answers              map[string]*StudentAnswer `json:"answers"`
	CurrentQuestionIndex int                       `json:"current_question_index"`
	StartedAt            time.Time                 `json:"started_at"`
	CompletedAt          *time.Time                `json:"completed_at,omitempty"`
	TotalMarks           float64                   `json:"total_marks"`
	EarnedMarks          float64                   `json:"earned_marks"`
	Status               SessionStatus             `json:"status"`
	Report               *GradeReport              `json:"report,omitempty"`
	// PersistenceWarning describes degraded durability (remote write failed,
	// authoritative grading unavailable). It never blocks the attempt.
	PersistenceWarning string `json:"persistence_warning,omitempty"`
}

// NewExamSession constructs a fresh in-progress session for an exam.
func NewExamSession(exam *Exam, now time.Time) *ExamSession {
	return &ExamSession{
		ExamID:     exam.ID,
		Answers:    make(map[string]*StudentAnswer),
		StartedAt:  now,
		TotalMarks: exam.TotalMarks(),
		Status:     SessionStatusInProgress,
	}
}

// RecomputeEarnedMarks re-derives the earned total from the answer map.
func (s *ExamSession) RecomputeEarnedMarks() {
	var total float64
	for _, a := range s.Answers {
		total += a.Marks()
	}
	s.EarnedMarks = total
}

// AnsweredCount returns the number of distinct questions with a submitted
// answer, regardless of correctness.
func (s *ExamSession) AnsweredCount() int {
	return len(s.Answers)
}

// Clone returns a deep copy of the session. The engine hands copies to
// asynchronous persistence so in-flight saves never race with new mutations.
func (s *ExamSession) Clone() *ExamSession {
	cp := *s
	cp.Answers = make(map[string]*StudentAnswer, len(s.Answers))
	for qid, a := range s.Answers {
		ac := *a
		if a.IsCorrect != nil {
			v := *a.IsCorrect
			ac.IsCorrect = &v
		}
		if a.MarksAwarded != nil {
			v := *a.MarksAwarded
			ac.MarksAwarded = &v
		}
		cp.Answers[qid] = &ac
	}
	if s.RemoteID != nil {
		id := *s.RemoteID
		cp.RemoteID = &id
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	if s.Report != nil {
		rep := *s.Report
		rep.SectionBreakdown = append([]SectionResult(nil), s.Report.SectionBreakdown...)
		rep.TopicFeedback = append([]TopicNote(nil), s.Report.TopicFeedback...)
		rep.RecommendedPractice = append([]string(nil), s.Report.RecommendedPractice...)
		cp.Report = &rep
	}
	return &cp
}
