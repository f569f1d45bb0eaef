package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"gradschool/internal/rates"
	"gradschool/internal/service"
	"gradschool/internal/workflow"
)

// statusFor maps service and workflow errors to HTTP status codes
func statusFor(err error) int {
	var (
		unresolved *workflow.UnresolvedCoordinatorError
		noRate     *rates.RateNotFoundError
		syncErr    *service.SyncTransactionError
	)

	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &unresolved),
		errors.Is(err, workflow.ErrIllegalTransition),
		errors.Is(err, workflow.ErrMissingAdviser),
		errors.Is(err, workflow.ErrMissingChair),
		errors.Is(err, workflow.ErrPanelPolicy),
		errors.Is(err, workflow.ErrMissingSchedule),
		errors.Is(err, service.ErrSyncNotReady),
		errors.Is(err, service.ErrEmptyCommittee):
		return http.StatusConflict
	case errors.As(err, &noRate),
		errors.Is(err, workflow.ErrMissingReason),
		errors.Is(err, rates.ErrUnknownDefenseType):
		return http.StatusUnprocessableEntity
	case errors.As(err, &syncErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes the mapped status. Internal errors are logged and
// replaced by a generic message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request handling failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			ErrorResponse(w, status, ErrMsgInternal)
			return
		}
	}
	ErrorResponse(w, status, err.Error())
}
