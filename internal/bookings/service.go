// Package bookings runs a participant's scheduling flow: it plans the offerable first
// sessions, previews partial selections and commits complete ones after revalidating
// them against the authoritative booking snapshot.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/config"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

var bookingsTracer = otel.Tracer("scheduler.internal.bookings")

// ErrInvalidSelection wraps a client selection that cannot be replayed.
var ErrInvalidSelection = errors.New("bookings: invalid selection")

// Store is the schedule persistence the service needs.
type Store interface {
	GetByLinkID(ctx context.Context, linkID string) (*schedules.Record, error)
	Submit(ctx context.Context, linkID string, sub selection.Submission) (time.Time, error)
}

// Snapshots supplies booking snapshots.
type Snapshots interface {
	Cached(ctx context.Context) ([]availability.BookingRecord, error)
	Fresh(ctx context.Context) ([]availability.BookingRecord, error)
	Invalidate(ctx context.Context) error
}

// Service coordinates availability, selection and persistence for participants.
type Service struct {
	store     Store
	snapshots Snapshots
	rules     config.Scheduler
	metrics   *metrics.SchedulerMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs a bookings service.
func NewService(store Store, snapshots Snapshots, rules config.Scheduler, m *metrics.SchedulerMetrics, logger *logging.Logger) *Service {
	if store == nil || snapshots == nil {
		panic("bookings: store and snapshots required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		snapshots: snapshots,
		rules:     rules,
		metrics:   m,
		logger:    logger.Component("bookings"),
		now:       time.Now,
	}
}

// Plan is what a participant sees when opening their scheduling link.
type Plan struct {
	LinkID          string                `json:"link_id"`
	SearchStart     dates.Date            `json:"search_start"`
	ExperimentStart dates.Date            `json:"experiment_start"`
	FirstSessions   []selection.DayOption `json:"first_sessions"`
	Limits          selection.Limits      `json:"limits"`
}

// Preview is the state a partial selection leads to.
type Preview struct {
	Sessions      []dates.Date            `json:"sessions"`
	Backups       []dates.Date            `json:"backups"`
	Timeslot      availability.TimeSlot   `json:"timeslot,omitempty"`
	Slots         []availability.TimeSlot `json:"slots"`
	FollowUps     []selection.DayOption   `json:"follow_ups"`
	BackupOptions []selection.DayOption   `json:"backup_options"`
	Remaining     int                     `json:"remaining_sessions"`
	Ready         bool                    `json:"ready"`
	Rejected      string                  `json:"rejected,omitempty"`
}

// Receipt confirms a stored submission.
type Receipt struct {
	LinkID      string               `json:"link_id"`
	Submission  selection.Submission `json:"submission"`
	SubmittedAt time.Time            `json:"submission_timestamp"`
}

// Plan loads the participant and lists the first-session days starting at the earliest
// experiment start with enough capacity behind it.
func (s *Service) Plan(ctx context.Context, linkID string) (*Plan, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.plan")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.link_id", linkID))

	rec, err := s.participant(ctx, linkID)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObservePlan(outcome(err))
		return nil, err
	}

	view, err := s.view(ctx, false)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObservePlan("error")
		return nil, err
	}

	searchStart := s.searchStart(rec)
	start, err := availability.FindStartDate(searchStart, view.Index(), s.rules.Finder)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObservePlan(outcome(err))
		s.logger.Warn("no experiment start found", "link_id", linkID, "search_start", searchStart.String())
		return nil, fmt.Errorf("bookings: plan %s: %w", linkID, err)
	}
	span.SetAttributes(attribute.String("scheduler.experiment_start", start.String()))

	session := selection.NewSession(s.rules.Limits, view)
	s.metrics.ObservePlan("ok")
	return &Plan{
		LinkID:          linkID,
		SearchStart:     searchStart,
		ExperimentStart: start,
		FirstSessions:   session.FirstSessionCandidates(start),
		Limits:          s.rules.Limits,
	}, nil
}

// Slots returns the offerable instruction slots on d.
func (s *Service) Slots(ctx context.Context, d dates.Date) ([]availability.TimeSlot, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.slots")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.date", d.String()))

	view, err := s.view(ctx, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return view.AvailableTimeSlots(d), nil
}

// Preview replays a partial selection and reports how far it got along with the options
// for the next steps. A rejected step is reported in Rejected rather than as an error.
func (s *Service) Preview(ctx context.Context, linkID string, choice selection.Choice) (*Preview, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.preview")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.link_id", linkID))

	if _, err := s.participant(ctx, linkID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	view, err := s.view(ctx, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	session := selection.NewSession(s.rules.Limits, view)
	out := &Preview{}
	if err := session.Replay(choice); err != nil {
		out.Rejected = err.Error()
	}
	out.Sessions = session.Sessions()
	out.Backups = session.Backups()
	out.Timeslot, _ = session.Timeslot()
	if first, ok := session.FirstSession(); ok {
		out.Slots = view.AvailableTimeSlots(first)
	}
	out.FollowUps = session.FollowUpCandidates()
	out.BackupOptions = session.BackupCandidates()
	out.Remaining = session.RemainingSessions()
	out.Ready = session.IsReadyForReview()
	return out, nil
}

// Submit replays a complete selection, revalidates it against a freshly fetched snapshot
// and stores it. Any conflict aborts the submission with a *selection.StaleSelectionError.
func (s *Service) Submit(ctx context.Context, linkID string, choice selection.Choice) (*Receipt, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.submit")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.link_id", linkID))

	fail := func(err error) (*Receipt, error) {
		span.RecordError(err)
		s.metrics.ObserveSubmission(outcome(err))
		return nil, err
	}

	rec, err := s.participant(ctx, linkID)
	if err != nil {
		return fail(err)
	}

	cached, err := s.view(ctx, false)
	if err != nil {
		return fail(err)
	}
	if err := s.checkFirstSession(rec, cached, choice.FirstSession); err != nil {
		return fail(err)
	}
	session := selection.NewSession(s.rules.Limits, cached)
	if err := session.Replay(choice); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidSelection, err))
	}
	if !slices.Contains(cached.AvailableTimeSlots(choice.FirstSession), choice.Timeslot) {
		return fail(fmt.Errorf("%w: timeslot %s is not offered on %s", ErrInvalidSelection, choice.Timeslot, choice.FirstSession))
	}
	if !session.IsReadyForReview() {
		return fail(selection.ErrNotReady)
	}

	fresh, err := s.view(ctx, true)
	if err != nil {
		return fail(err)
	}
	session.UpdateAvailability(fresh)
	if err := s.revalidate(session, fresh, choice.FirstSession); err != nil {
		var stale *selection.StaleSelectionError
		if errors.As(err, &stale) {
			for _, c := range stale.Conflicts {
				s.metrics.ObserveConflict(string(c.Kind))
			}
			s.logger.Info("stale selection rejected", "link_id", linkID, "conflicts", len(stale.Conflicts))
		}
		return fail(err)
	}

	payload, err := session.Submit()
	if err != nil {
		return fail(err)
	}
	at, err := s.store.Submit(ctx, linkID, payload)
	if err != nil {
		return fail(err)
	}
	if err := s.snapshots.Invalidate(ctx); err != nil {
		s.logger.Warn("snapshot cache invalidation failed", "error", err)
	}

	s.metrics.ObserveSubmission("ok")
	s.logger.Info("schedule submitted", "link_id", linkID, "participant_id", rec.ParticipantID,
		"first_session", payload.SessionDates[0].String(), "timeslot", string(payload.InstructionTimeslot))
	return &Receipt{LinkID: linkID, Submission: payload, SubmittedAt: at}, nil
}

// checkFirstSession requires first to lie in the offered window: SessionWindowDays days
// from the experiment start found at the participant's search start.
func (s *Service) checkFirstSession(rec *schedules.Record, view *availability.Negotiator, first dates.Date) error {
	searchStart := s.searchStart(rec)
	if first.Before(searchStart) {
		return fmt.Errorf("%w: first session %s is before %s", ErrInvalidSelection, first, searchStart)
	}
	start, err := availability.FindStartDate(searchStart, view.Index(), s.rules.Finder)
	if err != nil {
		return fmt.Errorf("bookings: submit: %w", err)
	}
	end := start.AddDays(s.rules.Limits.SessionWindowDays)
	if first.Before(start) || !first.Before(end) {
		return fmt.Errorf("%w: first session %s is outside %s..%s", ErrInvalidSelection, first, start, end.AddDays(-1))
	}
	return nil
}

// revalidate checks the selection and the first session's capacity window against the
// fresh view, collecting every conflict.
func (s *Service) revalidate(session *selection.Session, fresh *availability.Negotiator, first dates.Date) error {
	conflicts := session.Validate()
	if d, full := availability.FullDayInWindow(first, fresh.Index(), s.rules.Finder); full {
		listed := false
		for _, c := range conflicts {
			if c.Kind == selection.ConflictDate && c.Date == d {
				listed = true
				break
			}
		}
		if !listed {
			conflicts = append(conflicts, selection.DateConflict(d))
		}
	}
	if len(conflicts) > 0 {
		return &selection.StaleSelectionError{Conflicts: conflicts}
	}
	return nil
}

func (s *Service) participant(ctx context.Context, linkID string) (*schedules.Record, error) {
	rec, err := s.store.GetByLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if rec.Submitted() {
		return nil, fmt.Errorf("bookings: participant %s: %w", linkID, schedules.ErrAlreadySubmitted)
	}
	return rec, nil
}

func (s *Service) searchStart(rec *schedules.Record) dates.Date {
	if rec.ScheduleFrom != nil && !rec.ScheduleFrom.IsZero() {
		return *rec.ScheduleFrom
	}
	return dates.NextWorkDay(dates.Today(s.now(), s.rules.Location))
}

// view builds the availability view from a cached or fresh snapshot.
func (s *Service) view(ctx context.Context, fresh bool) (*availability.Negotiator, error) {
	started := time.Now()
	source := "cache"
	fetch := s.snapshots.Cached
	if fresh {
		source = "store"
		fetch = s.snapshots.Fresh
	}
	records, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: load snapshot: %w", err)
	}
	idx := availability.Build(records, s.rules.Index)
	s.metrics.ObserveSnapshot(source, time.Since(started).Seconds())
	return availability.NewNegotiator(idx, s.rules.Day, s.rules.Slots, s.now), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, schedules.ErrNotFound):
		return "not_found"
	case errors.Is(err, schedules.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, availability.ErrNoAvailability):
		return "no_availability"
	case errors.Is(err, selection.ErrStaleSelection):
		return "stale"
	case errors.Is(err, ErrInvalidSelection), errors.Is(err, selection.ErrNotReady):
		return "invalid"
	default:
		return "error"
	}
}
