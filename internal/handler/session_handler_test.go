package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/response"
	"github.com/brightsteps/brightsteps-backend/internal/validator"
)

// Binding runs before any store access, so a handler with nil collaborators
// is enough to exercise the error paths.
func bindingTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.Setup()

	h := NewSessionHandler(nil, nil, nil, zerolog.Nop())
	r := gin.New()
	r.POST("/exams/:exam_id/session/answers", h.SubmitAnswer)
	return r
}

func postAnswers(t *testing.T, r *gin.Engine, body string) (int, response.ErrCode) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/exams/exam-1/session/answers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env struct {
		Error *struct {
			Code response.ErrCode `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error == nil {
		t.Fatalf("expected an error body, got none (status %d)", rec.Code)
	}
	return rec.Code, env.Error.Code
}

func TestSubmitAnswer_MalformedBodyIsInvalidPayload(t *testing.T) {
	r := bindingTestRouter()

	status, code := postAnswers(t, r, `{not json`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if code != response.ErrInvalidPayload {
		t.Fatalf("code = %s, want %s", code, response.ErrInvalidPayload)
	}
}

func TestSubmitAnswer_MissingFieldIsValidationError(t *testing.T) {
	r := bindingTestRouter()

	status, code := postAnswers(t, r, `{"answer":"photosynthesis"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if code != response.ErrValidation {
		t.Fatalf("code = %s, want %s", code, response.ErrValidation)
	}
}
