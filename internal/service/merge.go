package service

import (
	"github.com/brightsteps/brightsteps-backend/internal/grader"
	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// mergeAuthoritative folds a successful authoritative grading result into the
// session. Heuristic marks replace deterministic ones per answer; the grading
// warning is cleared; totals and the structured report come from the grader.
// The merge is explicit so last-write-wins store semantics can never violate
// the grading monotonicity rule.
func mergeAuthoritative(exam *model.Exam, s *model.ExamSession, res *grader.AuthoritativeResult) {
	for qid, fb := range res.QuestionFeedback {
		ans, ok := s.Answers[qid]
		if !ok {
			// Feedback for questions with no submitted answer (including IDs
			// the exam does not know, e.g. questions added after the session
			// started) is informational only: it stays in the report and is
			// never invented into the answer map.
			continue
		}
		q := exam.QuestionByID(qid)
		if q == nil {
			continue
		}

		correct := fb.IsCorrect
		marks := fb.MarksAwarded
		if marks < 0 {
			marks = 0
		}
		if marks > q.Marks {
			marks = q.Marks
		}
		ans.IsCorrect = &correct
		ans.MarksAwarded = &marks
		ans.Feedback = fb.Feedback
		ans.GradingMode = model.GradingModeHeuristic
	}

	// Earned marks come from the answer map, not the grader's arithmetic:
	// feedback for questions with no submitted answer must never be credited.
	s.RecomputeEarnedMarks()
	if res.TotalMarks > 0 {
		s.TotalMarks = res.TotalMarks
	}
	s.GradingSessionID = res.SessionID
	s.Report = &model.GradeReport{
		SectionBreakdown:    res.SectionBreakdown,
		TopicFeedback:       res.TopicFeedback,
		RecommendedPractice: res.RecommendedPractice,
		GradingStatus:       res.GradingStatus,
		Percentage:          res.Percentage,
	}
	s.PersistenceWarning = ""
}
