package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

type accessRequest struct {
	AccessKey string `json:"access_key"`
}

type submitRequest struct {
	StudentInfo           json.RawMessage `json:"student_info"`
	Answers               any             `json:"answers"`
	StartTime             *time.Time      `json:"start_time"`
	EndTime               *time.Time      `json:"end_time"`
	SubmittedDueToTimeout bool            `json:"submitted_due_to_timeout"`
}

type Handler struct {
	service *app.QuizService
	log     zerolog.Logger
}

func NewHandler(service *app.QuizService, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) AccessQuiz(c *gin.Context) {
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domain.Validation("invalid request body"))
		return
	}
	payload, err := h.service.AccessQuiz(c.Request.Context(), req.AccessKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) SubmitQuiz(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domain.Validation("invalid request body"))
		return
	}
	res, err := h.service.SubmitQuiz(c.Request.Context(), app.Submission{
		QuizID:                c.Param("id"),
		Students:              parseStudents(req.StudentInfo),
		Answers:               req.Answers,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		SubmittedDueToTimeout: req.SubmittedDueToTimeout,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListAttempts(c *gin.Context) {
	summaries, err := h.service.ListAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) RegenerateKey(c *gin.Context) {
	key, err := h.service.RegenerateAccessKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_key": key})
}

func (h *Handler) Overview(c *gin.Context) {
	ov, err := h.service.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *Handler) fail(c *gin.Context, err error) { writeError(c, h.log, err) }

// writeError maps err to a status. Internal causes are logged, never returned.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(statusFor(kind), ErrorResponse{Error: domain.MessageOf(err), Kind: kind})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// parseStudents accepts one student object or a list of them. Anything else
// yields nil so the service reports it alongside its other checks.
func parseStudents(raw json.RawMessage) []domain.Student {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var list []domain.Student
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	case '{':
		var one domain.Student
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		return []domain.Student{one}
	default:
		return nil
	}
}
