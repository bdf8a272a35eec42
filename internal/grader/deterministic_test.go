package grader

import (
	"strings"
	"testing"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

func TestGradeDeterministic_ShortText(t *testing.T) {
	q := &model.Question{
		ID:    "q1",
		Type:  model.QuestionTypeShortText,
		Spec:  model.AnswerSpec{Accepted: []string{"Jakarta", "DKI Jakarta"}},
		Marks: 5,
	}

	tests := []struct {
		name     string
		answer   string
		answered bool
		correct  bool
		marks    float64
	}{
		{"exact match", "Jakarta", true, true, 5},
		{"case folded", "jakarta", true, true, 5},
		{"alternate accepted", "DKI Jakarta", true, true, 5},
		{"surrounding whitespace", "  Jakarta  ", true, true, 5},
		{"wrong answer", "Bandung", true, false, 0},
		{"empty answer", "", false, false, 0},
		{"whitespace only", "   ", false, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GradeDeterministic(q, tc.answer)
			if got.Answered != tc.answered {
				t.Fatalf("answered = %v, want %v", got.Answered, tc.answered)
			}
			if got.IsCorrect != tc.correct {
				t.Fatalf("is_correct = %v, want %v", got.IsCorrect, tc.correct)
			}
			if got.MarksAwarded != tc.marks {
				t.Fatalf("marks = %v, want %v", got.MarksAwarded, tc.marks)
			}
			if got.Feedback == "" {
				t.Fatal("feedback must never be empty")
			}
		})
	}
}

func TestGradeDeterministic_CaseSensitive(t *testing.T) {
	q := &model.Question{
		ID:    "q1",
		Type:  model.QuestionTypeShortText,
		Spec:  model.AnswerSpec{Accepted: []string{"pH"}, CaseSensitive: true},
		Marks: 2,
	}

	if got := GradeDeterministic(q, "pH"); !got.IsCorrect {
		t.Fatal("exact case should be correct")
	}
	if got := GradeDeterministic(q, "PH"); got.IsCorrect {
		t.Fatal("wrong case should be incorrect when case sensitive")
	}
}

func TestGradeDeterministic_MultipleChoice(t *testing.T) {
	q := &model.Question{
		ID:    "q2",
		Type:  model.QuestionTypeMultipleChoice,
		Spec:  model.AnswerSpec{Accepted: []string{"A", "D"}},
		Marks: 4,
	}

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact set", "A,D", true},
		{"order insensitive", "D, A", true},
		{"case folded", "a,d", true},
		{"missing one", "A", false},
		{"extra one", "A,D,B", false},
		{"duplicates collapse", "A,A,D", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GradeDeterministic(q, tc.answer)
			if got.IsCorrect != tc.correct {
				t.Fatalf("is_correct = %v, want %v", got.IsCorrect, tc.correct)
			}
		})
	}
}

func TestGradeDeterministic_Numeric(t *testing.T) {
	q := &model.Question{
		ID:    "q3",
		Type:  model.QuestionTypeNumeric,
		Spec:  model.AnswerSpec{Accepted: []string{"3.14"}, Tolerance: 0.01},
		Marks: 3,
	}

	tests := []struct {
		answer  string
		correct bool
	}{
		{"3.14", true},
		{"3.141", true},
		{"3.15", true}, // exactly at tolerance
		{"3.2", false},
		{"not a number", false},
	}

	for _, tc := range tests {
		got := GradeDeterministic(q, tc.answer)
		if got.IsCorrect != tc.correct {
			t.Fatalf("answer %q: is_correct = %v, want %v", tc.answer, got.IsCorrect, tc.correct)
		}
	}
}

func TestGradeDeterministic_NegativeWeightClamped(t *testing.T) {
	q := &model.Question{
		ID:    "q4",
		Type:  model.QuestionTypeShortText,
		Spec:  model.AnswerSpec{Accepted: []string{"yes"}},
		Marks: -1,
	}

	got := GradeDeterministic(q, "yes")
	if !got.IsCorrect || got.MarksAwarded != 0 {
		t.Fatalf("negative weight must clamp to 0, got marks=%v", got.MarksAwarded)
	}
}

func TestGradeDeterministic_WrongFeedbackNamesExpected(t *testing.T) {
	q := &model.Question{
		ID:    "q5",
		Type:  model.QuestionTypeShortText,
		Spec:  model.AnswerSpec{Accepted: []string{"photosynthesis"}},
		Marks: 1,
	}

	got := GradeDeterministic(q, "respiration")
	if !strings.Contains(got.Feedback, "photosynthesis") {
		t.Fatalf("feedback should name the expected answer, got %q", got.Feedback)
	}
}
