// Package schedules persists participant schedules in Postgres and caches the booking
// snapshot used for availability in Redis.
package schedules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
)

var (
	// ErrNotFound is returned when no schedule matches the lookup.
	ErrNotFound = errors.New("schedules: not found")
	// ErrAlreadySubmitted is returned when a participant tries to submit twice.
	ErrAlreadySubmitted = errors.New("schedules: already submitted")
	// ErrDuplicateLink is returned when registering a link id that already exists.
	ErrDuplicateLink = errors.New("schedules: link id already registered")
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes the schedules table.
type Store struct {
	db  DB
	now func() time.Time
}

// NewStore creates a schedules store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("schedules: db required")
	}
	return &Store{db: db, now: time.Now}
}

const recordColumns = `id, link_id, participant_id, schedule_from, session_dates, backup_dates,
	instruction_timeslot, has_equipment_days, submission_timestamp, created_at, updated_at`

// GetByLinkID loads the schedule behind a participant's scheduling link.
func (s *Store) GetByLinkID(ctx context.Context, linkID string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM schedules WHERE link_id = $1`, linkID))
	if err != nil {
		return nil, fmt.Errorf("schedules: get by link %s: %w", linkID, err)
	}
	return rec, nil
}

// GetByParticipantID loads a schedule by the experimenter-facing participant id.
func (s *Store) GetByParticipantID(ctx context.Context, participantID string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM schedules WHERE participant_id = $1`, participantID))
	if err != nil {
		return nil, fmt.Errorf("schedules: get by participant %s: %w", participantID, err)
	}
	return rec, nil
}

// List returns every schedule, most recently submitted first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM schedules
		ORDER BY submission_timestamp DESC NULLS LAST, participant_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("schedules: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("schedules: list: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedules: list: %w", err)
	}
	return out, nil
}

// Snapshot returns the booking data of every schedule holding at least one date.
func (s *Store) Snapshot(ctx context.Context) ([]availability.BookingRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT session_dates, backup_dates, instruction_timeslot FROM schedules
		WHERE cardinality(session_dates) > 0 OR cardinality(backup_dates) > 0`)
	if err != nil {
		return nil, fmt.Errorf("schedules: snapshot: %w", err)
	}
	defer rows.Close()

	var out []availability.BookingRecord
	for rows.Next() {
		var sessions, backups []time.Time
		var slot *string
		if err := rows.Scan(&sessions, &backups, &slot); err != nil {
			return nil, fmt.Errorf("schedules: snapshot: scan: %w", err)
		}
		out = append(out, availability.BookingRecord{
			SessionDates:        fromTimes(sessions),
			BackupDates:         fromTimes(backups),
			InstructionTimeslot: toSlot(slot),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedules: snapshot: %w", err)
	}
	return out, nil
}

// Submit stores a participant's final selection. The write only succeeds while the row
// is unsubmitted, so a second submission returns ErrAlreadySubmitted.
func (s *Store) Submit(ctx context.Context, linkID string, sub selection.Submission) (time.Time, error) {
	at := s.now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE schedules
		SET session_dates = $2, backup_dates = $3, instruction_timeslot = $4, has_equipment_days = $5,
			submission_timestamp = $6, updated_at = $6
		WHERE link_id = $1 AND submission_timestamp IS NULL`,
		linkID, toTimes(sub.SessionDates), toTimes(sub.BackupDates), string(sub.InstructionTimeslot),
		toTimes(sub.EquipmentDays), at,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedules: submit %s: %w", linkID, err)
	}
	if tag.RowsAffected() > 0 {
		return at, nil
	}

	var submitted bool
	err = s.db.QueryRow(ctx, `SELECT submission_timestamp IS NOT NULL FROM schedules WHERE link_id = $1`, linkID).Scan(&submitted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return time.Time{}, fmt.Errorf("schedules: submit %s: %w", linkID, ErrNotFound)
	case err != nil:
		return time.Time{}, fmt.Errorf("schedules: submit %s: %w", linkID, err)
	case submitted:
		return time.Time{}, fmt.Errorf("schedules: submit %s: %w", linkID, ErrAlreadySubmitted)
	}
	return time.Time{}, fmt.Errorf("schedules: submit %s: no row updated", linkID)
}

// UpdateDates replaces the date lists of a participant, keeping the submission timestamp.
func (s *Store) UpdateDates(ctx context.Context, participantID string, u DateUpdate) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE schedules
		SET session_dates = $2, backup_dates = $3, has_equipment_days = $4, updated_at = $5
		WHERE participant_id = $1`,
		participantID, toTimes(u.SessionDates), toTimes(u.BackupDates), toTimes(u.EquipmentDays), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("schedules: update dates %s: %w", participantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedules: update dates %s: %w", participantID, ErrNotFound)
	}
	return nil
}

// CreateParticipant registers a new scheduling link.
func (s *Store) CreateParticipant(ctx context.Context, p NewParticipant) (*Record, error) {
	p.LinkID = strings.TrimSpace(p.LinkID)
	p.ParticipantID = strings.TrimSpace(p.ParticipantID)
	if p.LinkID == "" || p.ParticipantID == "" {
		return nil, errors.New("schedules: create participant: link_id and participant_id are required")
	}

	now := s.now().UTC()
	rec := &Record{
		ID:            uuid.New(),
		LinkID:        p.LinkID,
		ParticipantID: p.ParticipantID,
		ScheduleFrom:  p.ScheduleFrom,
		SessionDates:  []dates.Date{},
		BackupDates:   []dates.Date{},
		EquipmentDays: []dates.Date{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	var from *time.Time
	if p.ScheduleFrom != nil {
		t := p.ScheduleFrom.Time()
		from = &t
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO schedules (id, link_id, participant_id, schedule_from, session_dates, backup_dates, has_equipment_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '{}', '{}', '{}', $5, $5)
		ON CONFLICT (link_id) DO NOTHING`,
		rec.ID, rec.LinkID, rec.ParticipantID, from, now,
	)
	if err != nil {
		return nil, fmt.Errorf("schedules: create participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("schedules: create participant %s: %w", p.LinkID, ErrDuplicateLink)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                      Record
		from, submitted          *time.Time
		sessions, backups, equip []time.Time
		slot                     *string
	)
	err := row.Scan(
		&rec.ID, &rec.LinkID, &rec.ParticipantID, &from, &sessions, &backups,
		&slot, &equip, &submitted, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	if from != nil {
		d := dates.FromTime(from.UTC())
		rec.ScheduleFrom = &d
	}
	rec.SessionDates = fromTimes(sessions)
	rec.BackupDates = fromTimes(backups)
	rec.EquipmentDays = fromTimes(equip)
	rec.InstructionTimeslot = toSlot(slot)
	rec.SubmittedAt = submitted
	return &rec, nil
}

func fromTimes(ts []time.Time) []dates.Date {
	out := make([]dates.Date, 0, len(ts))
	for _, t := range ts {
		out = append(out, dates.FromTime(t.UTC()))
	}
	return out
}

func toTimes(ds []dates.Date) []time.Time {
	out := make([]time.Time, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Time())
	}
	return out
}

// toSlot drops empty and malformed stored slots so they never reach the index.
func toSlot(raw *string) *availability.TimeSlot {
	if raw == nil {
		return nil
	}
	slot, err := availability.ParseTimeSlot(*raw)
	if err != nil {
		return nil
	}
	return &slot
}
