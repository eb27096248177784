// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints. Every
// error goes through fail(), which logs 5xx responses with the
// request-scoped logger, and every success through ok() or noContent().
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "journal entry not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/http/middleware"
	"github.com/tbourn/go-wellness-backend/internal/llm"
	"github.com/tbourn/go-wellness-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"journal entry not found"`
}

// AIErrorResponse is returned with 500 when the language model could not
// answer. The user's message is already stored; clients offer a retry.
type AIErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Error     string `json:"error" example:"AI service error"`
	Details   string `json:"details" example:"upstream timed out"`
	Code      string `json:"code" example:"AI_UNAVAILABLE"`
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get("X-Request-ID")
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failAI writes the AI-failure envelope.
func failAI(c *gin.Context, err error) {
	resp := AIErrorResponse{
		RequestID: requestID(c),
		Error:     "AI service error",
		Details:   err.Error(),
		Code:      ErrCodeAIFailed,
	}
	var f llm.Failure
	if errors.As(err, &f) {
		resp.Details = f.Details()
		resp.Code = f.Code()
	}
	middleware.LoggerFrom(c).Error().
		Err(err).
		Str("code", resp.Code).
		Msg("ai service error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}

// failFrom maps a service error onto an HTTP response. fallback is the
// code used for unexpected 500s.
func failFrom(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMissingUser):
		fail(c, http.StatusBadRequest, ErrCodeMissingUser, "userId is required")
	case errors.Is(err, services.ErrInvalidAssessment),
		errors.Is(err, services.ErrEmptyPrompt),
		errors.Is(err, services.ErrTooLong),
		errors.Is(err, services.ErrInvalidSender),
		errors.Is(err, services.ErrInvalidProfile),
		errors.Is(err, services.ErrInvalidFeedback):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEntryNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrForbiddenFeedback):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrDuplicateFeedback),
		errors.Is(err, services.ErrNothingToRetry):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrAIServiceUnavailable):
		failAI(c, err)
	case errors.Is(err, services.ErrStorageUnavailable):
		fail(c, http.StatusInternalServerError, ErrCodeUnavailable, "storage unavailable")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
