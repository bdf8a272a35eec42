package grader

import (
	"context"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// Request carries everything the authoritative grader needs: raw answer text
// only, never the provisional deterministic marks.
type Request struct {
	ExamID    string            `json:"exam_id"`
	Exam      *model.Exam       `json:"exam"`
	Answers   map[string]string `json:"answers"`
	StudentID string            `json:"student_id,omitempty"`
	ClassID   string            `json:"class_id,omitempty"`
	SchoolID  string            `json:"school_id,omitempty"`
}

// QuestionFeedback is the authoritative verdict for one question.
type QuestionFeedback struct {
	IsCorrect    bool    `json:"is_correct"`
	MarksAwarded float64 `json:"marks_awarded"`
	Feedback     string  `json:"feedback"`
}

// AuthoritativeResult is the full grading response. Success=false is treated
// identically to a transport error by the session engine.
type AuthoritativeResult struct {
	Success             bool                        `json:"success"`
	SessionID           string                      `json:"session_id,omitempty"`
	EarnedMarks         float64                     `json:"earned_marks"`
	TotalMarks          float64                     `json:"total_marks"`
	Percentage          float64                     `json:"percentage"`
	GradingStatus       string                      `json:"grading_status,omitempty"`
	QuestionFeedback    map[string]QuestionFeedback `json:"question_feedback,omitempty"`
	SectionBreakdown    []model.SectionResult       `json:"section_breakdown,omitempty"`
	TopicFeedback       []model.TopicNote           `json:"topic_feedback,omitempty"`
	RecommendedPractice []string                    `json:"recommended_practice,omitempty"`
	Error               string                      `json:"error,omitempty"`
}

// Authoritative is the remote grading oracle invoked once at completion. It
// may use semantic matching beyond exact comparison; its marks override
// deterministic ones. Implementations make a single attempt with no retry;
// the caller retries by completing the exam again.
type Authoritative interface {
	Grade(ctx context.Context, req Request) (*AuthoritativeResult, error)
}
