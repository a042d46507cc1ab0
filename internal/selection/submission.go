package selection

import (
	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// Submission is the payload written to the schedule store.
type Submission struct {
	SessionDates        []dates.Date          `json:"session_dates"`
	BackupDates         []dates.Date          `json:"backup_dates"`
	InstructionTimeslot availability.TimeSlot `json:"instruction_timeslot"`
	EquipmentDays       []dates.Date          `json:"has_equipment_days"`
}

// Submission returns the selection sorted chronologically. The result depends only on
// which dates are chosen, not on the order they were chosen in.
func (s *Session) Submission() Submission {
	return Submission{
		SessionDates:        dates.Sorted(s.sessions),
		BackupDates:         dates.Sorted(s.backups),
		InstructionTimeslot: s.timeslot,
		EquipmentDays:       EquipmentDays(s.sessions, s.backups),
	}
}

// Submit returns the payload, or ErrNotReady when the selection is incomplete.
func (s *Session) Submit() (Submission, error) {
	if !s.IsReadyForReview() {
		return Submission{}, ErrNotReady
	}
	return s.Submission(), nil
}

// EquipmentDays spans every day from the earliest chosen date through the next work day
// after the latest one. It is empty when no session is chosen.
func EquipmentDays(sessions, backups []dates.Date) []dates.Date {
	if len(sessions) == 0 {
		return nil
	}
	all := dates.Sorted(append(append([]dates.Date(nil), sessions...), backups...))
	return dates.Span(all[0], dates.NextWorkDay(all[len(all)-1]))
}
