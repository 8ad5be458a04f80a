package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/tutor/internal/curriculum"
	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/lesson"
	"github.com/pavelanni/tutor/internal/tutor"
)

// validationError is malformed client input.
type validationError struct {
	msgID string
	data  map[string]any
	cause error
}

func (e *validationError) Error() string {
	if e.cause != nil {
		return e.msgID + ": " + e.cause.Error()
	}
	return e.msgID
}

func (e *validationError) Unwrap() error { return e.cause }

func requiredField(name string) error {
	return &validationError{msgID: "ErrFieldRequired", data: map[string]any{"Field": name}}
}

var stateMessages = map[*tutor.StateError]string{
	tutor.ErrSessionNotReady:    "ErrSessionNotReady",
	tutor.ErrNoLessonManager:    "ErrNoLessonManager",
	tutor.ErrNoPriorInteraction: "ErrNoPriorInteraction",
	tutor.ErrEmptyCurriculum:    "ErrEmptyCurriculum",
	tutor.ErrCurriculumExists:   "ErrCurriculumExists",
}

// errorResponse maps an error to a status code and a localized message ID.
// Upstream and internal causes are logged here and never sent to the client.
func errorResponse(err error) (status int, msgID string, data map[string]any) {
	var (
		ve *validationError
		se *tutor.StateError
		ue *tutor.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.msgID, ve.data
	case errors.Is(err, tutor.ErrSessionNotFound):
		return http.StatusNotFound, "ErrSessionNotFound", nil
	case errors.As(err, &se):
		if id, ok := stateMessages[se]; ok {
			return http.StatusBadRequest, id, nil
		}
		return http.StatusBadRequest, "ErrInternal", nil
	case errors.Is(err, lesson.ErrNotInitialized):
		return http.StatusBadRequest, "ErrNoLessonManager", nil
	case errors.As(err, &ue):
		if ue.Op == "response" {
			return http.StatusInternalServerError, "ErrResponseFailed", nil
		}
		return http.StatusInternalServerError, "ErrFeedbackFailed", nil
	case errors.Is(err, curriculum.ErrCurriculumParse), errors.Is(err, curriculum.ErrGeneration):
		return http.StatusInternalServerError, "ErrCurriculumFailed", nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The turn lock was not acquired before the request gave up.
		return http.StatusServiceUnavailable, "ErrSessionBusy", nil
	default:
		return http.StatusInternalServerError, "ErrInternal", nil
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msgID, data := errorResponse(err)

	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status, "error", err}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Debug("request rejected", attrs...)
	}

	msg := i18n.T(r.Context(), msgID)
	if data != nil {
		msg = i18n.Td(r.Context(), msgID, data)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
