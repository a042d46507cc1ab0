package schedules

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// Record is one participant's row in the schedules table.
type Record struct {
	ID                  uuid.UUID              `json:"id"`
	LinkID              string                 `json:"link_id"`
	ParticipantID       string                 `json:"participant_id"`
	ScheduleFrom        *dates.Date            `json:"schedule_from,omitempty"`
	SessionDates        []dates.Date           `json:"session_dates"`
	BackupDates         []dates.Date           `json:"backup_dates"`
	InstructionTimeslot *availability.TimeSlot `json:"instruction_timeslot,omitempty"`
	EquipmentDays       []dates.Date           `json:"has_equipment_days"`
	SubmittedAt         *time.Time             `json:"submission_timestamp,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Submitted reports whether the participant already committed a schedule.
func (r Record) Submitted() bool {
	return r.SubmittedAt != nil
}

// Booking returns the record as an availability snapshot entry.
func (r Record) Booking() availability.BookingRecord {
	return availability.BookingRecord{
		SessionDates:        r.SessionDates,
		BackupDates:         r.BackupDates,
		InstructionTimeslot: r.InstructionTimeslot,
	}
}

// NewParticipant registers a scheduling link for a participant.
type NewParticipant struct {
	LinkID        string      `json:"link_id"`
	ParticipantID string      `json:"participant_id"`
	ScheduleFrom  *dates.Date `json:"schedule_from,omitempty"`
}

// DateUpdate replaces the stored date lists of a participant.
type DateUpdate struct {
	SessionDates  []dates.Date
	BackupDates   []dates.Date
	EquipmentDays []dates.Date
}
