package grader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// Result is the outcome of grading a single answer deterministically.
type Result struct {
	Answered     bool    `json:"answered"`
	IsCorrect    bool    `json:"is_correct"`
	MarksAwarded float64 `json:"marks_awarded"`
	Feedback     string  `json:"feedback"`
}

// GradeDeterministic compares a submitted answer against the question's
// expected-answer specification. It is a pure function: no I/O, no state.
// Marks are all-or-nothing at the question's weight.
func GradeDeterministic(q *model.Question, answer string) Result {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return Result{Feedback: "No answer submitted."}
	}

	weight := q.Marks
	if weight < 0 {
		weight = 0
	}

	var correct bool
	switch q.Type {
	case model.QuestionTypeNumeric:
		correct = matchNumeric(q.Spec, trimmed)
	case model.QuestionTypeMultipleChoice:
		correct = matchSet(q.Spec, trimmed)
	default:
		// SHORT_TEXT and SINGLE_CHOICE are both single-value comparisons.
		correct = matchSingle(q.Spec, trimmed)
	}

	if correct {
		return Result{Answered: true, IsCorrect: true, MarksAwarded: weight, Feedback: "Correct."}
	}
	return Result{Answered: true, Feedback: wrongFeedback(q.Spec)}
}

// matchSingle reports whether the submitted value equals any accepted answer.
func matchSingle(spec model.AnswerSpec, submitted string) bool {
	for _, accepted := range spec.Accepted {
		accepted = strings.TrimSpace(accepted)
		if accepted == "" {
			continue
		}
		if spec.CaseSensitive {
			if submitted == accepted {
				return true
			}
		} else if strings.EqualFold(submitted, accepted) {
			return true
		}
	}
	return false
}

// matchSet compares comma-separated selections against the accepted set,
// order-insensitive, exact membership.
func matchSet(spec model.AnswerSpec, submitted string) bool {
	selected := normalizeSet(strings.Split(submitted, ","), spec.CaseSensitive)
	accepted := normalizeSet(spec.Accepted, spec.CaseSensitive)
	if len(selected) == 0 || len(selected) != len(accepted) {
		return false
	}
	for i := range selected {
		if selected[i] != accepted[i] {
			return false
		}
	}
	return true
}

// matchNumeric parses both sides as decimals and applies the spec tolerance.
func matchNumeric(spec model.AnswerSpec, submitted string) bool {
	got, err := strconv.ParseFloat(strings.TrimSpace(submitted), 64)
	if err != nil {
		return false
	}
	for _, accepted := range spec.Accepted {
		want, err := strconv.ParseFloat(strings.TrimSpace(accepted), 64)
		if err != nil {
			continue
		}
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff <= spec.Tolerance {
			return true
		}
	}
	return false
}

func normalizeSet(values []string, caseSensitive bool) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !caseSensitive {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func wrongFeedback(spec model.AnswerSpec) string {
	for _, accepted := range spec.Accepted {
		if accepted = strings.TrimSpace(accepted); accepted != "" {
			return fmt.Sprintf("Incorrect. The expected answer was %q.", accepted)
		}
	}
	return "Incorrect."
}
