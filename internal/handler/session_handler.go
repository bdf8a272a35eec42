package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/middleware"
	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
	"github.com/brightsteps/brightsteps-backend/internal/response"
	"github.com/brightsteps/brightsteps-backend/internal/service"
	"github.com/brightsteps/brightsteps-backend/internal/validator"
)

// SessionHandler exposes the exam session engine to the UI screens. Screens
// never talk to the stores or graders directly; every call goes through a
// session handle acquired from the manager.
type SessionHandler struct {
	manager *service.Manager
	exams   *repository.ExamProvider
	backups *repository.BackupSessionRepository
	log     zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *service.Manager, exams *repository.ExamProvider, backups *repository.BackupSessionRepository, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		exams:   exams,
		backups: backups,
		log:     log.With().Str("component", "session_handler").Logger(),
	}
}

// failBinding distinguishes an unparseable body from field-level validation
// failures: TranslateErrors reports the former under the single "detail" key.
func failBinding(c *gin.Context, fields map[string]string) {
	code := response.ErrValidation
	if _, ok := fields["detail"]; ok {
		code = response.ErrInvalidPayload
	}
	response.FailWithFields(c, http.StatusBadRequest, code, fields)
}

// acquire resolves the exam document and the live session handle for the
// request. Writes the error response itself and returns nil on failure.
func (h *SessionHandler) acquire(c *gin.Context) *service.Session {
	identity := middleware.GetIdentity(c)
	examID := c.Param("exam_id")

	exam, err := h.exams.GetExam(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotPublished)
			return nil
		}
		h.log.Error().Err(err).Str("exam_id", examID).Msg("Exam lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil
	}

	session, err := h.manager.Acquire(c.Request.Context(), exam, identity)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID).Msg("Session load failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil
	}
	return session
}

// LoadSession godoc
// POST /api/v1/exams/:exam_id/session
// Loads (or creates) the session for this exam and identity.
func (h *SessionHandler) LoadSession(c *gin.Context) {
	session := h.acquire(c)
	if session == nil {
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"session":  session.Snapshot(),
		"progress": session.Progress(),
	})
}

// SubmitAnswer godoc
// POST /api/v1/exams/:exam_id/session/answers
// Records an answer and returns its (provisional) grade.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		failBinding(c, fields)
		return
	}

	session := h.acquire(c)
	if session == nil {
		return
	}

	autoGrade := req.AutoGrade == nil || *req.AutoGrade
	answer, err := session.SubmitAnswer(c.Request.Context(), req.QuestionID, req.Answer, autoGrade)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
		case errors.Is(err, service.ErrNoSession):
			response.Fail(c, http.StatusConflict, response.ErrNoSession)
		default:
			h.log.Error().Err(err).Msg("Submit answer failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answer":   answer,
		"progress": session.Progress(),
	})
}

// GoToQuestion godoc
// PUT /api/v1/exams/:exam_id/session/position
// Moves the current question index (clamped into range).
func (h *SessionHandler) GoToQuestion(c *gin.Context) {
	var req model.GoToQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		failBinding(c, fields)
		return
	}

	session := h.acquire(c)
	if session == nil {
		return
	}

	session.GoToQuestion(c.Request.Context(), *req.Index)
	response.Success(c, http.StatusOK, gin.H{
		"current_question_index": session.Snapshot().CurrentQuestionIndex,
	})
}

// CompleteExam godoc
// POST /api/v1/exams/:exam_id/session/complete
// Completes the attempt and runs authoritative grading. Always succeeds when
// the session exists: grading failures surface as a persistence warning on
// the returned session, never as an HTTP error.
func (h *SessionHandler) CompleteExam(c *gin.Context) {
	session := h.acquire(c)
	if session == nil {
		return
	}

	final, err := session.Complete(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			response.Fail(c, http.StatusConflict, response.ErrNoSession)
			return
		}
		h.log.Error().Err(err).Msg("Complete failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": final})
}

// AbandonExam godoc
// POST /api/v1/exams/:exam_id/session/abandon
// Marks the attempt abandoned; it will not be recovered cross-device.
func (h *SessionHandler) AbandonExam(c *gin.Context) {
	session := h.acquire(c)
	if session == nil {
		return
	}

	if err := session.Abandon(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrNoSession)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session.Snapshot()})
}

// ResetExam godoc
// DELETE /api/v1/exams/:exam_id/session
// Deletes the attempt from both stores and starts a fresh one.
func (h *SessionHandler) ResetExam(c *gin.Context) {
	session := h.acquire(c)
	if session == nil {
		return
	}

	if err := session.Reset(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Reset failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session.Snapshot()})
}

// GetProgress godoc
// GET /api/v1/exams/:exam_id/session/progress
// Returns the answered-question percentage for the progress indicator.
func (h *SessionHandler) GetProgress(c *gin.Context) {
	session := h.acquire(c)
	if session == nil {
		return
	}

	snap := session.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"progress":     session.Progress(),
		"earned_marks": snap.EarnedMarks,
		"total_marks":  snap.TotalMarks,
		"status":       snap.Status,
	})
}

// ListSessions godoc
// GET /api/v1/exams/:exam_id/sessions
// Paginated session summaries for teacher dashboards, served from the
// denormalized backup columns.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	examID := c.Param("exam_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	summaries, total, err := h.backups.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID).Msg("List sessions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if summaries == nil {
		summaries = []repository.ExamSessionSummary{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": summaries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}
