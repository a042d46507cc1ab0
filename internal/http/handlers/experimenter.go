package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/config"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/dropout"
	"github.com/wolfman30/experiment-scheduler/internal/overview"
	"github.com/wolfman30/experiment-scheduler/internal/progress"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

// ScheduleStore is the schedule persistence the experimenter endpoints need.
type ScheduleStore interface {
	List(ctx context.Context) ([]schedules.Record, error)
	CreateParticipant(ctx context.Context, p schedules.NewParticipant) (*schedules.Record, error)
}

// SnapshotReader reads the current booking snapshot.
type SnapshotReader interface {
	Cached(ctx context.Context) ([]availability.BookingRecord, error)
}

// DropoutProcessor trims schedules of participants who left.
type DropoutProcessor interface {
	Process(ctx context.Context, participantID string, dropoutDate dates.Date) (*dropout.Outcome, error)
}

// ExperimenterHandler serves the overview, progress and administration endpoints.
type ExperimenterHandler struct {
	store     ScheduleStore
	snapshots SnapshotReader
	dropouts  DropoutProcessor
	rules     config.Scheduler
	excluded  progress.Excluded
	logger    *logging.Logger
	now       func() time.Time
}

// NewExperimenterHandler creates an experimenter handler. excluded lists participants left out of progress counts.
func NewExperimenterHandler(store ScheduleStore, snapshots SnapshotReader, dropouts DropoutProcessor, rules config.Scheduler, excluded []string, logger *logging.Logger) *ExperimenterHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExperimenterHandler{
		store:     store,
		snapshots: snapshots,
		dropouts:  dropouts,
		rules:     rules,
		excluded:  progress.NewExcluded(excluded...),
		logger:    logger.Component("experimenter_http"),
		now:       time.Now,
	}
}

// RegisterRoutes mounts the experimenter endpoints on r.
func (h *ExperimenterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/overview", func(o chi.Router) {
		o.Get("/schedules", h.GetSchedules)
		o.Get("/calendar", h.GetCalendar)
		o.Get("/next-start", h.GetNextStart)
	})
	r.Get("/progress", h.GetProgress)
	r.Post("/participants", h.PostParticipant)
	r.Post("/dropouts", h.PostDropout)
}

// SchedulesResponse is the key-session table.
type SchedulesResponse struct {
	Schedules []overview.KeySession `json:"schedules"`
	Total     int                   `json:"total"`
}

// CalendarResponse is one month of calendar events.
type CalendarResponse struct {
	Month string         `json:"month"`
	Days  []overview.Day `json:"days"`
}

// NextStartResponse is the earliest experiment start from a given day.
type NextStartResponse struct {
	From  dates.Date `json:"from"`
	Start dates.Date `json:"start"`
}

// ProgressResponse combines the status summary and the daily session chart.
type ProgressResponse struct {
	Today   dates.Date          `json:"today"`
	Summary progress.Summary    `json:"summary"`
	Daily   []progress.DayPoint `json:"daily"`
}

// RegisterRequest creates a scheduling link. An empty link_id gets a generated one.
type RegisterRequest struct {
	LinkID        string      `json:"link_id"`
	ParticipantID string      `json:"participant_id"`
	ScheduleFrom  *dates.Date `json:"schedule_from,omitempty"`
}

// DropoutRequest reports that a participant left on a given day.
type DropoutRequest struct {
	ParticipantID string     `json:"participant_id"`
	DropoutDate   dates.Date `json:"dropout_date"`
}

// GetSchedules lists first session, last session and last backup per participant.
func (h *ExperimenterHandler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	rows := overview.KeySessions(records)
	writeJSON(w, http.StatusOK, SchedulesResponse{Schedules: rows, Total: len(rows)})
}

// GetCalendar returns per-day events for ?month=YYYY-MM, defaulting to the current month.
func (h *ExperimenterHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month query parameter must be YYYY-MM")
		return
	}
	records, err := h.store.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{
		Month: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Days:  overview.Month(records, year, month),
	})
}

// GetNextStart finds the earliest experiment start on or after ?from=, defaulting to the next work day.
func (h *ExperimenterHandler) GetNextStart(w http.ResponseWriter, r *http.Request) {
	from := dates.NextWorkDay(h.today())
	if raw := r.URL.Query().Get("from"); raw != "" {
		d, err := dates.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from query parameter must be YYYY-MM-DD")
			return
		}
		from = d
	}
	records, err := h.snapshots.Cached(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	start, err := availability.FindStartDate(from, availability.Build(records, h.rules.Index), h.rules.Finder)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NextStartResponse{From: from, Start: start})
}

// GetProgress summarises participant statuses. ?future=false hides planned sessions from the chart.
func (h *ExperimenterHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	includeFuture := true
	if raw := r.URL.Query().Get("future"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "future must be a boolean")
			return
		}
		includeFuture = v
	}
	records, err := h.store.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	today := h.today()
	writeJSON(w, http.StatusOK, ProgressResponse{
		Today:   today,
		Summary: progress.Summarize(records, h.excluded, today),
		Daily:   progress.Daily(records, h.excluded, today, includeFuture),
	})
}

// PostParticipant registers a participant and returns their scheduling link.
func (h *ExperimenterHandler) PostParticipant(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}
	linkID := strings.TrimSpace(req.LinkID)
	if linkID == "" {
		linkID = uuid.NewString()
	}
	rec, err := h.store.CreateParticipant(r.Context(), schedules.NewParticipant{
		LinkID:        linkID,
		ParticipantID: req.ParticipantID,
		ScheduleFrom:  req.ScheduleFrom,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("participant registered", "participant_id", rec.ParticipantID, "link_id", rec.LinkID)
	writeJSON(w, http.StatusCreated, rec)
}

// PostDropout removes a participant's dates from the dropout day on.
func (h *ExperimenterHandler) PostDropout(w http.ResponseWriter, r *http.Request) {
	var req DropoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" || req.DropoutDate.IsZero() {
		writeError(w, http.StatusBadRequest, "participant_id and dropout_date are required")
		return
	}
	out, err := h.dropouts.Process(r.Context(), req.ParticipantID, req.DropoutDate)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ExperimenterHandler) today() dates.Date {
	return dates.Today(h.now(), h.rules.Location)
}

func (h *ExperimenterHandler) parseMonth(raw string) (int, time.Month, error) {
	if raw == "" {
		t := h.today()
		return t.Year, t.Month, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
