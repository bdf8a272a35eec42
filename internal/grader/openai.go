package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// OpenAIGrader grades a full answer set with an OpenAI-compatible chat
// completion endpoint. It asks for a JSON object response and parses it into
// an AuthoritativeResult. Any transport error, refusal, or malformed body is
// returned as an error; the session engine folds all of them into the same
// degraded-completion branch.
type OpenAIGrader struct {
	api   *openai.Client
	model string
	log   zerolog.Logger
}

// NewOpenAIGrader creates a grader client. baseURL may point at any
// OpenAI-compatible server; empty means the default endpoint.
func NewOpenAIGrader(baseURL, apiKey, modelName string, log zerolog.Logger) *OpenAIGrader {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGrader{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
		log:   log.With().Str("component", "openai_grader").Logger(),
	}
}

// gradedPayload is the JSON shape the model is instructed to return.
type gradedPayload struct {
	Questions map[string]struct {
		IsCorrect    bool    `json:"is_correct"`
		MarksAwarded float64 `json:"marks_awarded"`
		Feedback     string  `json:"feedback"`
	} `json:"questions"`
	Sections []struct {
		Title       string  `json:"title"`
		EarnedMarks float64 `json:"earned_marks"`
		TotalMarks  float64 `json:"total_marks"`
	} `json:"sections"`
	Topics []struct {
		Topic    string `json:"topic"`
		Feedback string `json:"feedback"`
	} `json:"topics"`
	RecommendedPractice []string `json:"recommended_practice"`
}

// Grade implements Authoritative. One attempt, no internal retry.
func (g *OpenAIGrader) Grade(ctx context.Context, req Request) (*AuthoritativeResult, error) {
	if req.Exam == nil {
		return nil, fmt.Errorf("grade: exam document is required")
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGradingPrompt(req.Exam)},
			{Role: openai.ChatMessageRoleUser, Content: buildAnswerSheet(req.Exam, req.Answers)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("grading API returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	g.log.Debug().Str("exam_id", req.ExamID).Int("bytes", len(raw)).Msg("Grading response received")

	result, err := parseGradedPayload(req.Exam, raw)
	if err != nil {
		return nil, err
	}
	result.SessionID = resp.ID
	return result, nil
}

// parseGradedPayload converts the model's JSON body into an
// AuthoritativeResult, clamping per-question marks into [0, question.marks]
// and recomputing totals from the clamped values.
func parseGradedPayload(exam *model.Exam, raw string) (*AuthoritativeResult, error) {
	var payload gradedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parse grading response: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("grading response contains no question feedback")
	}

	result := &AuthoritativeResult{
		Success:          true,
		TotalMarks:       exam.TotalMarks(),
		GradingStatus:    "GRADED",
		QuestionFeedback: make(map[string]QuestionFeedback, len(payload.Questions)),
	}

	var earned float64
	for qid, fb := range payload.Questions {
		marks := fb.MarksAwarded
		if marks < 0 {
			marks = 0
		}
		// Feedback for questions the exam does not know is kept verbatim and
		// left unclamped; the engine treats it as informational only.
		if q := exam.QuestionByID(qid); q != nil {
			if marks > q.Marks {
				marks = q.Marks
			}
			earned += marks
		}
		result.QuestionFeedback[qid] = QuestionFeedback{
			IsCorrect:    fb.IsCorrect,
			MarksAwarded: marks,
			Feedback:     fb.Feedback,
		}
	}
	result.EarnedMarks = earned
	if result.TotalMarks > 0 {
		result.Percentage = 100 * earned / result.TotalMarks
	}

	for _, s := range payload.Sections {
		result.SectionBreakdown = append(result.SectionBreakdown, model.SectionResult{
			Title:       s.Title,
			EarnedMarks: s.EarnedMarks,
			TotalMarks:  s.TotalMarks,
		})
	}
	for _, tn := range payload.Topics {
		result.TopicFeedback = append(result.TopicFeedback, model.TopicNote{
			Topic:    tn.Topic,
			Feedback: tn.Feedback,
		})
	}
	result.RecommendedPractice = payload.RecommendedPractice

	return result, nil
}

// buildGradingPrompt renders the exam definition into the grading instructions.
func buildGradingPrompt(exam *model.Exam) string {
	var sb strings.Builder
	sb.WriteString("You are an exam grader for a school assessment platform. ")
	sb.WriteString("Grade every answer on the sheet against the expected answers below. ")
	sb.WriteString("Accept semantically equivalent answers, not only literal matches. ")
	sb.WriteString("Partial credit is allowed for partially correct answers.\n\n")
	sb.WriteString("EXAM: " + exam.Title + "\n\n")

	for _, sec := range exam.Sections {
		sb.WriteString("SECTION: " + sec.Title + "\n")
		for _, q := range sec.Questions {
			fmt.Fprintf(&sb, "- id=%s marks=%g topic=%s\n  question: %s\n  expected: %s\n",
				q.ID, q.Marks, q.Topic, q.Text, strings.Join(q.Spec.Accepted, " | "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString(`{"questions": {"<question id>": {"is_correct": bool, "marks_awarded": number, "feedback": string}}, ` +
		`"sections": [{"title": string, "earned_marks": number, "total_marks": number}], ` +
		`"topics": [{"topic": string, "feedback": string}], ` +
		`"recommended_practice": [string]}` + "\n")
	sb.WriteString("Include an entry in \"questions\" for every question, including unanswered ones.\n")
	return sb.String()
}

// buildAnswerSheet renders the submitted answers in question order so the
// model sees unanswered questions explicitly.
func buildAnswerSheet(exam *model.Exam, answers map[string]string) string {
	var sb strings.Builder
	sb.WriteString("ANSWER SHEET:\n")
	seen := make(map[string]bool, len(answers))
	for _, sec := range exam.Sections {
		for _, q := range sec.Questions {
			seen[q.ID] = true
			answer, ok := answers[q.ID]
			if !ok || strings.TrimSpace(answer) == "" {
				fmt.Fprintf(&sb, "- %s: (no answer)\n", q.ID)
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s\n", q.ID, answer)
		}
	}

	// Answers for unknown question IDs are still shown, deterministically ordered.
	var extra []string
	for qid := range answers {
		if !seen[qid] {
			extra = append(extra, qid)
		}
	}
	sort.Strings(extra)
	for _, qid := range extra {
		fmt.Fprintf(&sb, "- %s: %s\n", qid, answers[qid])
	}
	return sb.String()
}
