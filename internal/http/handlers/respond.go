package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/perfeval/internal/auth"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondServiceError maps the errors of the domain and repository layers
// onto the envelope. what names the resource in not-found messages.
func RespondServiceError(ctx *gin.Context, err error, what string) {
	_ = ctx.Error(err)

	if verr, ok := validation.As(err); ok {
		RespondBadRequest(ctx, "Validation failed", gin.H{"fields": verr.Fields})
		return
	}

	switch {
	case errors.Is(err, repo.ErrNotFound):
		RespondNotFound(ctx, what+" not found")
	case errors.Is(err, auth.ErrUsernameTaken):
		RespondConflict(ctx, "username_taken", "Username already exists")
	default:
		RespondInternal(ctx, "Could not save "+what)
	}
}
