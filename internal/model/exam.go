package model

import "strings"

// QuestionType enumerates the answer formats the deterministic grader understands.
type QuestionType string

const (
	QuestionTypeShortText      QuestionType = "SHORT_TEXT"
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeNumeric        QuestionType = "NUMERIC"
)

// AnswerSpec is the expected-answer specification for a question.
// Accepted holds every answer treated as correct (option keys for choice
// questions, literal strings for text, a decimal string for numeric).
type AnswerSpec struct {
	Accepted      []string `json:"accepted"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	// Tolerance is the absolute error allowed for NUMERIC questions.
	Tolerance float64 `json:"tolerance,omitempty"`
}

// Question is a single question inside an exam section.
type Question struct {
	ID    string       `json:"id"`
	Text  string       `json:"text"`
	Type  QuestionType `json:"type"`
	Topic string       `json:"topic,omitempty"`
	Spec  AnswerSpec   `json:"spec"`
	Marks float64      `json:"marks"`
}

// Section is an ordered group of questions.
type Section struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Exam is the immutable exam definition. It is supplied by the authoring
// system already parsed; this service never mutates it.
type Exam struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// TotalMarks sums the mark weight of every question in the exam.
func (e *Exam) TotalMarks() float64 {
	var total float64
	for _, sec := range e.Sections {
		for _, q := range sec.Questions {
			total += q.Marks
		}
	}
	return total
}

// QuestionCount returns the number of questions across all sections.
func (e *Exam) QuestionCount() int {
	n := 0
	for _, sec := range e.Sections {
		n += len(sec.Questions)
	}
	return n
}

// QuestionByID looks up a question across sections. Returns nil if absent.
func (e *Exam) QuestionByID(id string) *Question {
	for si := range e.Sections {
		for qi := range e.Sections[si].Questions {
			if e.Sections[si].Questions[qi].ID == id {
				return &e.Sections[si].Questions[qi]
			}
		}
	}
	return nil
}

// QuestionAt returns the question at the given flat index across sections,
// or nil when the index is out of range.
func (e *Exam) QuestionAt(index int) *Question {
	if index < 0 {
		return nil
	}
	for si := range e.Sections {
		qs := e.Sections[si].Questions
		if index < len(qs) {
			return &qs[index]
		}
		index -= len(qs)
	}
	return nil
}

// Identity names the exam taker. StudentID is set for logged-in students,
// GuestID for anonymous practice runs. ClassID/SchoolID are passed through to
// the authoritative grader for reporting.
type Identity struct {
	StudentID string `json:"student_id,omitempty"`
	GuestID   string `json:"guest_id,omitempty"`
	ClassID   string `json:"class_id,omitempty"`
	SchoolID  string `json:"school_id,omitempty"`
}

// Key returns the identifier used for session keying: the student ID when
// known, otherwise the guest ID.
func (id Identity) Key() string {
	if s := strings.TrimSpace(id.StudentID); s != "" {
		return s
	}
	if g := strings.TrimSpace(id.GuestID); g != "" {
		return g
	}
	return "guest"
}

// IsGuest reports whether no student identity is attached.
func (id Identity) IsGuest() bool {
	return strings.TrimSpace(id.StudentID) == ""
}
