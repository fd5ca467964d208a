package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Gnoscenti/founder-autopilot/internal/graph"
	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
	"github.com/Gnoscenti/founder-autopilot/internal/state"
)

// ErrInvalidInput marks a malformed or incomplete request.
var ErrInvalidInput = errors.New("invalid input")

// ErrorCode represents an API error code.
type ErrorCode string

const (
	CodeInvalidInput        ErrorCode = "invalid_input"
	CodeGraphCycle          ErrorCode = "graph_cycle"
	CodeRunNotFound         ErrorCode = "run_not_found"
	CodeTaskNotFound        ErrorCode = "task_not_found"
	CodeNotAwaitingApproval ErrorCode = "not_awaiting_approval"
	CodeInvalidTransition   ErrorCode = "invalid_transition"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorDTO is the JSON error body.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPError carries an HTTP status alongside a domain error.
type HTTPError struct {
	StatusCode int
	Code       ErrorCode
	Err        error
}

func (e *HTTPError) Error() string { return e.Err.Error() }

func (e *HTTPError) Unwrap() error { return e.Err }

// MapError maps a domain error to an HTTPError.
func MapError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return &HTTPError{http.StatusBadRequest, CodeInvalidInput, err}

	case errors.Is(err, graph.ErrCycleDetected):
		return &HTTPError{http.StatusUnprocessableEntity, CodeGraphCycle, err}

	case errors.Is(err, orchestrator.ErrRunNotFound), errors.Is(err, state.ErrRunNotFound):
		return &HTTPError{http.StatusNotFound, CodeRunNotFound, err}

	case errors.Is(err, graph.ErrTaskNotFound):
		return &HTTPError{http.StatusNotFound, CodeTaskNotFound, err}

	case errors.Is(err, orchestrator.ErrNotAwaitingApproval):
		return &HTTPError{http.StatusConflict, CodeNotAwaitingApproval, err}

	case errors.Is(err, graph.ErrInvalidTransition):
		return &HTTPError{http.StatusConflict, CodeInvalidTransition, err}

	default:
		return &HTTPError{http.StatusInternalServerError, CodeInternalError, err}
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	httpErr := MapError(err)
	if httpErr == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.StatusCode)
	writeJSON(w, ErrorDTO{Code: string(httpErr.Code), Message: httpErr.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err
	}
}
