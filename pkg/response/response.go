// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/service"
)

// ErrRateLimited is returned by throttling middleware (maps to HTTP 429).
var ErrRateLimited = errors.New("rate limited")

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
// Extend here as new domain error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, ErrorPayload{Error: "already_exists"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorPayload{Error: "conflict"}
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized", Message: "missing bearer token"}
	case errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized", Message: "token expired"}
	case errors.Is(err, auth.ErrRevokedToken):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized", Message: "token revoked"}
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized", Message: "invalid token"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized", Message: "invalid username or password"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorPayload{Error: "forbidden", Message: "insufficient scope"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, ErrorPayload{Error: "rate_limited", Message: "too many requests"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}
