// Package dropout trims a participant's schedule from the day they left the experiment.
package dropout

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

var dropoutTracer = otel.Tracer("scheduler.internal.dropout")

// Outcome lists what a dropout keeps and removes.
type Outcome struct {
	ParticipantID    string       `json:"participant_id"`
	DropoutDate      dates.Date   `json:"dropout_date"`
	KeptSessions     []dates.Date `json:"kept_sessions"`
	KeptBackups      []dates.Date `json:"kept_backups"`
	KeptEquipment    []dates.Date `json:"kept_equipment_days"`
	RemovedSessions  []dates.Date `json:"removed_sessions"`
	RemovedBackups   []dates.Date `json:"removed_backups"`
	RemovedEquipment []dates.Date `json:"removed_equipment_days"`
}

// Changed reports whether anything was removed.
func (o Outcome) Changed() bool {
	return len(o.RemovedSessions)+len(o.RemovedBackups)+len(o.RemovedEquipment) > 0
}

// Apply removes every session, backup and equipment day on or after the dropout date.
func Apply(rec schedules.Record, dropoutDate dates.Date) Outcome {
	out := Outcome{ParticipantID: rec.ParticipantID, DropoutDate: dropoutDate}
	out.KeptSessions, out.RemovedSessions = split(rec.SessionDates, dropoutDate)
	out.KeptBackups, out.RemovedBackups = split(rec.BackupDates, dropoutDate)
	out.KeptEquipment, out.RemovedEquipment = split(rec.EquipmentDays, dropoutDate)
	return out
}

func split(ds []dates.Date, cutoff dates.Date) (kept, removed []dates.Date) {
	kept = []dates.Date{}
	removed = []dates.Date{}
	for _, d := range ds {
		if d.Before(cutoff) {
			kept = append(kept, d)
		} else {
			removed = append(removed, d)
		}
	}
	return kept, removed
}

// Store is the schedule persistence dropouts need.
type Store interface {
	GetByParticipantID(ctx context.Context, participantID string) (*schedules.Record, error)
	UpdateDates(ctx context.Context, participantID string, u schedules.DateUpdate) error
}

// Invalidator drops cached availability after a schedule changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service processes dropouts reported by experimenters.
type Service struct {
	store   Store
	cache   Invalidator
	metrics *metrics.SchedulerMetrics
	logger  *logging.Logger
}

// NewService constructs a dropout service. cache may be nil.
func NewService(store Store, cache Invalidator, m *metrics.SchedulerMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("dropout: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, cache: cache, metrics: m, logger: logger.Component("dropout")}
}

// Process trims the participant's schedule and frees the removed days for others.
func (s *Service) Process(ctx context.Context, participantID string, dropoutDate dates.Date) (*Outcome, error) {
	ctx, span := dropoutTracer.Start(ctx, "dropout.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.participant_id", participantID),
		attribute.String("scheduler.dropout_date", dropoutDate.String()),
	)

	rec, err := s.store.GetByParticipantID(ctx, participantID)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveDropout("not_found")
		return nil, fmt.Errorf("dropout: %w", err)
	}

	out := Apply(*rec, dropoutDate)
	if !out.Changed() {
		s.metrics.ObserveDropout("unchanged")
		s.logger.Info("dropout left schedule unchanged", "participant_id", participantID, "dropout_date", dropoutDate.String())
		return &out, nil
	}

	err = s.store.UpdateDates(ctx, participantID, schedules.DateUpdate{
		SessionDates:  out.KeptSessions,
		BackupDates:   out.KeptBackups,
		EquipmentDays: out.KeptEquipment,
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveDropout("error")
		return nil, fmt.Errorf("dropout: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("snapshot cache invalidation failed", "error", err)
		}
	}

	s.metrics.ObserveDropout("ok")
	s.logger.Info("dropout processed", "participant_id", participantID, "dropout_date", dropoutDate.String(),
		"removed_sessions", len(out.RemovedSessions), "removed_backups", len(out.RemovedBackups),
		"removed_equipment_days", len(out.RemovedEquipment))
	return &out, nil
}
