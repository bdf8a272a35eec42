package model

// SubmitAnswerRequest is the payload for submitting an answer.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,min=1,max=100"`
	Answer     string `json:"answer" binding:"max=10000"`
	// AutoGrade defaults to true when omitted.
	AutoGrade *bool `json:"auto_grade"`
}

// GoToQuestionRequest is the payload for moving the current question index.
type GoToQuestionRequest struct {
	Index *int `json:"index" binding:"required"`
}
