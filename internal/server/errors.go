package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/smallbiznis/fnol/internal/validation"
)

type errorPayload struct {
	Type      string                  `json:"type"`
	Message   string                  `json:"message"`
	Errors    []validation.FieldError `json:"errors,omitempty"`
	FnolID    string                  `json:"fnolId,omitempty"`
	RetrySafe *bool                   `json:"retrySafe,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too_many_requests")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return validation.Errors{{Field: field, Code: code, Message: message}}
}

func mapError(err error) (int, errorPayload) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  verrs,
		}
	}

	var startErr *fnoldomain.WorkflowStartError
	if errors.As(err, &startErr) {
		// The case was persisted; only the workflow start needs retrying.
		retrySafe := !startErr.OutcomeUnknown
		return http.StatusBadGateway, errorPayload{
			Type:      "workflow_start_failed",
			Message:   "case accepted but workflow start failed",
			FnolID:    startErr.CaseID,
			RetrySafe: &retrySafe,
		}
	}

	switch {
	case errors.Is(err, fnoldomain.ErrInvalidCaseID), errors.Is(err, fnoldomain.ErrCaseNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "fnol not found",
		}
	case errors.Is(err, fnoldomain.ErrCorruptedIdempotencyState):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "inconsistent submission state, contact support",
		}
	case errors.Is(err, fnoldomain.ErrSequenceAllocationFailed),
		errors.Is(err, fnoldomain.ErrPersistenceFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "temporary storage failure, retry later",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing or invalid API key",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog labels request errors for structured logs without
// leaking message contents.
func classifyErrorForLog(err error) (string, string) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		code := ""
		if len(verrs) > 0 {
			code = verrs[0].Code
		}
		return "validation_error", code
	}

	var startErr *fnoldomain.WorkflowStartError
	if errors.As(err, &startErr) {
		if startErr.OutcomeUnknown {
			return "workflow_start_failed", "outcome_unknown"
		}
		return "workflow_start_failed", "start_failed"
	}

	switch {
	case errors.Is(err, fnoldomain.ErrInvalidCaseID), errors.Is(err, fnoldomain.ErrCaseNotFound):
		return "not_found", ""
	case errors.Is(err, fnoldomain.ErrCorruptedIdempotencyState):
		return "internal_error", "corrupted_idempotency_state"
	case errors.Is(err, fnoldomain.ErrSequenceAllocationFailed):
		return "service_unavailable", "sequence_allocation_failed"
	case errors.Is(err, fnoldomain.ErrPersistenceFailed):
		return "service_unavailable", "persistence_failed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized", ""
	case errors.Is(err, ErrTooManyRequests):
		return "rate_limited", ""
	}
	return "internal_error", ""
}
