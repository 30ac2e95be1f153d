package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memoapp/planner-backend/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondAppError maps planner error codes onto HTTP statuses.
func RespondAppError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	RespondError(c, statusForCode(code), string(code), err)
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict, apperr.CodeInvariantViolation:
		return http.StatusConflict
	case apperr.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case apperr.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
