package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/validate"
)

const (
	msgValidation = "Validation Error"
	msgNotFound   = "Note not found"
	msgInternal   = "Internal Server Error"
)

// requestError is a client mistake that is not a field validation failure,
// such as a malformed or oversized body.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// handlerFunc is an HTTP handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h into an http.HandlerFunc. It is the single place where
// errors are turned into response envelopes.
func handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	var rerr *requestError
	switch {
	case errors.As(err, &verr):
		writeFailure(w, http.StatusBadRequest, msgValidation, verr.Issues)
	case errors.As(err, &rerr):
		writeFailure(w, rerr.status, rerr.message, nil)
	case errors.Is(err, apperr.ErrNotFound):
		writeFailure(w, http.StatusNotFound, msgNotFound, nil)
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, msgInternal, []string{err.Error()})
	}
}
