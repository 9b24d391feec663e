package handler

import (
	"errors"
	"net/http"

	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/response"
	"github.com/examina/examina-backend/internal/service"
	"github.com/examina/examina-backend/internal/session"
	"github.com/examina/examina-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionHandler exposes the exam session lifecycle over HTTP. Every
// endpoint resolves the student from the JWT and the exam from the path;
// the session itself lives in memory behind SessionService.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

type answerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Option     int    `json:"option" binding:"min=0,max=3"`
}

type markRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

type jumpRequest struct {
	SectionIndex  int `json:"section_index" binding:"min=0"`
	QuestionIndex int `json:"question_index" binding:"min=0"`
}

// Begin godoc
// POST /api/v1/student/exams/:exam_id/session
// Starts the student's session for an exam, or re-attaches to the live one.
func (h *SessionHandler) Begin(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.Begin(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// State godoc
// GET /api/v1/student/exams/:exam_id/session
// Returns the live session snapshot.
func (h *SessionHandler) State(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.State(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// SubmitPassword godoc
// POST /api/v1/student/exams/:exam_id/session/password
// Checks the exam password; a wrong one just keeps the gate closed.
func (h *SessionHandler) SubmitPassword(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	var req passwordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SubmitPassword(c.Request.Context(), studentID, examID, req.Password); err != nil {
		h.failSession(c, err)
		return
	}

	h.respondState(c, studentID, examID)
}

// SelectAnswer godoc
// POST /api/v1/student/exams/:exam_id/session/answer
// Records an option choice. Answering drops any review mark on the question.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.SelectAnswer(c.Request.Context(), studentID, examID, questionID, req.Option); err != nil {
		h.failSession(c, err)
		return
	}

	h.respondState(c, studentID, examID)
}

// ToggleMark godoc
// POST /api/v1/student/exams/:exam_id/session/mark
// Flips the marked-for-review state of a question.
func (h *SessionHandler) ToggleMark(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	var req markRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.ToggleMark(c.Request.Context(), studentID, examID, questionID); err != nil {
		h.failSession(c, err)
		return
	}

	h.respondState(c, studentID, examID)
}

// Next godoc
// POST /api/v1/student/exams/:exam_id/session/next
func (h *SessionHandler) Next(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.GoNext(studentID, examID)
	})
}

// Prev godoc
// POST /api/v1/student/exams/:exam_id/session/prev
func (h *SessionHandler) Prev(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.GoPrev(studentID, examID)
	})
}

// Jump godoc
// POST /api/v1/student/exams/:exam_id/session/jump
// Moves directly to a (section, question) position.
func (h *SessionHandler) Jump(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	var req jumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.JumpTo(studentID, examID, req.SectionIndex, req.QuestionIndex); err != nil {
		h.failSession(c, err)
		return
	}

	h.respondState(c, studentID, examID)
}

// TakeBreak godoc
// POST /api/v1/student/exams/:exam_id/session/break
// Hides the questions. The exam clock keeps running.
func (h *SessionHandler) TakeBreak(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.TakeBreak(studentID, examID)
	})
}

// Resume godoc
// POST /api/v1/student/exams/:exam_id/session/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.ResumeFromBreak(studentID, examID)
	})
}

// RequestSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit
// Opens the submit-confirmation flow.
func (h *SessionHandler) RequestSubmit(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.RequestSubmit(studentID, examID)
	})
}

// ConfirmSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit/confirm
// Finalizes the submission. This is the point of no return.
func (h *SessionHandler) ConfirmSubmit(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	result, err := h.sessionService.ConfirmSubmit(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CancelSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit/cancel
func (h *SessionHandler) CancelSubmit(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.CancelSubmit(studentID, examID)
	})
}

// AcknowledgeFailure godoc
// POST /api/v1/student/exams/:exam_id/session/failure/ack
// Returns a failed submission to RUNNING so the student can retry.
func (h *SessionHandler) AcknowledgeFailure(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.AcknowledgeFailure(studentID, examID)
	})
}

// ReportBackNavigation godoc
// POST /api/v1/student/exams/:exam_id/session/events/back-nav
// Reports a browser history back/forward attempt; returns the guard's verdict.
func (h *SessionHandler) ReportBackNavigation(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	decision, err := h.sessionService.ReportBackNavigation(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"decision": decision})
}

// ConfirmAbandonment godoc
// POST /api/v1/student/exams/:exam_id/session/events/back-nav/confirm
// The student confirmed leaving: submit irreversibly.
func (h *SessionHandler) ConfirmAbandonment(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	result, err := h.sessionService.ConfirmAbandonment(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ReportUnload godoc
// POST /api/v1/student/exams/:exam_id/session/events/unload
// Persists the reload marker before the page goes away. Must be called
// synchronously from the client's unload path.
func (h *SessionHandler) ReportUnload(c *gin.Context) {
	h.navigate(c, func(studentID int, examID uuid.UUID) error {
		return h.sessionService.ReportUnload(c.Request.Context(), studentID, examID)
	})
}

// Result godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the persisted submission for a finished attempt.
func (h *SessionHandler) Result(c *gin.Context) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	sub, err := h.sessionService.Result(c.Request.Context(), studentID, examID)
	if err != nil {
		if errors.Is(err, service.ErrNoLiveSession) {
			response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sub)
}

// ────────────────────────────────────────────────────────────
// helpers
// ────────────────────────────────────────────────────────────

// identify resolves the student from the JWT and the exam from the path.
func (h *SessionHandler) identify(c *gin.Context) (int, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, uuid.Nil, false
	}

	return claims.UserID, examID, true
}

// navigate wraps the body-less session mutations: run the op, then return
// the fresh snapshot.
func (h *SessionHandler) navigate(c *gin.Context, op func(studentID int, examID uuid.UUID) error) {
	studentID, examID, ok := h.identify(c)
	if !ok {
		return
	}

	if err := op(studentID, examID); err != nil {
		h.failSession(c, err)
		return
	}

	h.respondState(c, studentID, examID)
}

func (h *SessionHandler) respondState(c *gin.Context, studentID int, examID uuid.UUID) {
	snap, err := h.sessionService.State(c.Request.Context(), studentID, examID)
	if err != nil {
		h.failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// failSession maps domain errors onto the error catalog.
func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrNoLiveSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoLiveSession)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
	case errors.Is(err, session.ErrSessionActive):
		response.Fail(c, http.StatusConflict, response.ErrExamSessionActive)
	case errors.Is(err, session.ErrWrongPassword):
		response.Fail(c, http.StatusBadRequest, response.ErrWrongExamPassword)
	case errors.Is(err, session.ErrInvalidPhase):
		response.Fail(c, http.StatusConflict, response.ErrPhaseConflict)
	case errors.Is(err, session.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrOutOfBounds):
		response.Fail(c, http.StatusBadRequest, response.ErrNavigationBounds)
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, session.ErrSubmitRejected):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmissionFailed)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
