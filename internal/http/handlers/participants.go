package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/bookings"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

// Scheduler is the participant flow served over HTTP.
type Scheduler interface {
	Plan(ctx context.Context, linkID string) (*bookings.Plan, error)
	Slots(ctx context.Context, d dates.Date) ([]availability.TimeSlot, error)
	Preview(ctx context.Context, linkID string, choice selection.Choice) (*bookings.Preview, error)
	Submit(ctx context.Context, linkID string, choice selection.Choice) (*bookings.Receipt, error)
}

// ParticipantHandler serves the participant scheduling page.
type ParticipantHandler struct {
	scheduler Scheduler
	logger    *logging.Logger
}

// NewParticipantHandler creates a participant handler.
func NewParticipantHandler(scheduler Scheduler, logger *logging.Logger) *ParticipantHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ParticipantHandler{scheduler: scheduler, logger: logger.Component("participant_http")}
}

// RegisterRoutes mounts the participant endpoints on r.
func (h *ParticipantHandler) RegisterRoutes(r chi.Router) {
	r.Get("/availability/slots", h.GetSlots)
	r.Route("/participants/{linkID}", func(p chi.Router) {
		p.Get("/plan", h.GetPlan)
		p.Post("/preview", h.PostPreview)
		p.Post("/submission", h.PostSubmission)
	})
}

// SlotsResponse lists the offerable instruction slots of one day.
type SlotsResponse struct {
	Date  dates.Date              `json:"date"`
	Slots []availability.TimeSlot `json:"slots"`
}

// GetPlan returns the experiment start and first-session options for a link.
func (h *ParticipantHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	linkID, ok := linkParam(w, r)
	if !ok {
		return
	}
	plan, err := h.scheduler.Plan(r.Context(), linkID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GetSlots returns instruction slots for ?date=YYYY-MM-DD.
func (h *ParticipantHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	d, err := dates.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
		return
	}
	slots, err := h.scheduler.Slots(r.Context(), d)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []availability.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: d, Slots: slots})
}

// PostPreview replays a partial selection and returns the next options.
func (h *ParticipantHandler) PostPreview(w http.ResponseWriter, r *http.Request) {
	linkID, ok := linkParam(w, r)
	if !ok {
		return
	}
	var choice selection.Choice
	if !decodeJSON(w, r, &choice) {
		return
	}
	preview, err := h.scheduler.Preview(r.Context(), linkID, choice)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// PostSubmission commits a complete selection.
func (h *ParticipantHandler) PostSubmission(w http.ResponseWriter, r *http.Request) {
	linkID, ok := linkParam(w, r)
	if !ok {
		return
	}
	var choice selection.Choice
	if !decodeJSON(w, r, &choice) {
		return
	}
	receipt, err := h.scheduler.Submit(r.Context(), linkID, choice)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func linkParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	linkID := strings.TrimSpace(chi.URLParam(r, "linkID"))
	if linkID == "" {
		writeError(w, http.StatusBadRequest, "missing link id")
		return "", false
	}
	return linkID, true
}
