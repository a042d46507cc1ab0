package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/bookings"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string               `json:"error"`
	Conflicts []selection.Conflict `json:"conflicts,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dates.ErrInvalidDate), errors.Is(err, availability.ErrInvalidTimeSlot):
		return http.StatusBadRequest
	case errors.Is(err, schedules.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedules.ErrAlreadySubmitted),
		errors.Is(err, schedules.ErrDuplicateLink),
		errors.Is(err, selection.ErrStaleSelection):
		return http.StatusConflict
	case errors.Is(err, bookings.ErrInvalidSelection),
		errors.Is(err, selection.ErrNotReady),
		errors.Is(err, availability.ErrNoAvailability):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// writeDomainError replies with the status for err. Unexpected errors are logged and not echoed.
func writeDomainError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := statusFor(err)
	var stale *selection.StaleSelectionError
	if errors.As(err, &stale) {
		writeJSON(w, status, ErrorResponse{Error: "selection is no longer available", Conflicts: stale.Conflicts})
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.Error("request failed", "error", err)
		writeError(w, status, "service unavailable")
		return
	}
	writeError(w, status, err.Error())
}
