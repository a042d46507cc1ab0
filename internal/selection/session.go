// Package selection tracks one participant's in-progress choice of first session,
// time slot, follow-up sessions and backups.
package selection

import (
	"fmt"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// Limits are the cardinality and window settings of a schedule.
type Limits struct {
	TotalSessions      int `json:"total_sessions"`
	BackupSessions     int `json:"backup_sessions"`
	SessionWindowDays  int `json:"session_window_days"`
	FollowUpWindowDays int `json:"follow_up_window_days"`
	BackupWindowDays   int `json:"backup_window_days"`
}

// DefaultLimits returns 15 sessions, 3 backups and the standard windows.
func DefaultLimits() Limits {
	return Limits{
		TotalSessions:      15,
		BackupSessions:     3,
		SessionWindowDays:  14,
		FollowUpWindowDays: 21,
		BackupWindowDays:   7,
	}
}

// Result describes the effect of a toggle.
type Result struct {
	// Reset is set when dependent choices were cleared and must be re-derived.
	Reset bool `json:"reset"`
	// Deselected is set when the call removed the date instead of adding it.
	Deselected bool `json:"deselected"`
}

// Session is the mutable selection state of one participant. It is not safe for
// concurrent use; each scheduling flow owns its own Session.
type Session struct {
	limits   Limits
	view     *availability.Negotiator
	sessions []dates.Date
	backups  []dates.Date
	timeslot availability.TimeSlot
}

// NewSession starts an empty selection checked against view, which must not be nil.
func NewSession(limits Limits, view *availability.Negotiator) *Session {
	return &Session{limits: limits, view: view}
}

// UpdateAvailability swaps in a freshly built view. Existing choices are kept; call
// Validate to find the ones that went stale.
func (s *Session) UpdateAvailability(view *availability.Negotiator) {
	if view != nil {
		s.view = view
	}
}

// Availability returns the view the session checks against.
func (s *Session) Availability() *availability.Negotiator { return s.view }

// Limits returns the session's limits.
func (s *Session) Limits() Limits { return s.limits }

// SelectFirstSession toggles the first session. Re-selecting the current first session
// clears the whole selection. Choosing a different day replaces it and clears every
// dependent choice.
func (s *Session) SelectFirstSession(d dates.Date) (Result, error) {
	if first, ok := s.FirstSession(); ok && first == d {
		s.Reset()
		return Result{Reset: true, Deselected: true}, nil
	}
	if !s.view.IsDateAvailableForInstruction(d) {
		return Result{}, fmt.Errorf("%w: %s cannot host a first session", ErrDateUnavailable, d)
	}
	s.sessions = []dates.Date{d}
	s.backups = nil
	s.timeslot = ""
	return Result{Reset: true}, nil
}

// SetTimeslot records the instruction slot. Offerability is the caller's concern.
func (s *Session) SetTimeslot(slot availability.TimeSlot) error {
	if !slot.Valid() {
		return fmt.Errorf("selection: set timeslot: %w: %q", availability.ErrInvalidTimeSlot, slot)
	}
	s.timeslot = slot
	return nil
}

// SelectFollowUpSession toggles a follow-up date. Removing one clears the backups.
func (s *Session) SelectFollowUpSession(d dates.Date) (Result, error) {
	first, ok := s.FirstSession()
	if !ok {
		return Result{}, ErrNoFirstSession
	}
	if d == first {
		return Result{}, fmt.Errorf("%w: %s is the first session", ErrDateInUse, d)
	}
	if i := dates.IndexOf(s.sessions, d); i > 0 {
		s.sessions = remove(s.sessions, i)
		s.backups = nil
		return Result{Deselected: true}, nil
	}
	if len(s.sessions) >= s.limits.TotalSessions {
		return Result{}, fmt.Errorf("%w: only %d total sessions can be selected", ErrCapacityExceeded, s.limits.TotalSessions)
	}
	if offset := first.DaysUntil(d); offset < 1 || offset > s.limits.FollowUpWindowDays {
		return Result{}, fmt.Errorf("%w: %s is not within %d days after %s", ErrOutsideWindow, d, s.limits.FollowUpWindowDays, first)
	}
	if dates.Contains(s.backups, d) {
		return Result{}, fmt.Errorf("%w: %s is a backup", ErrDateInUse, d)
	}
	if !s.view.IsDateAvailable(d) {
		return Result{}, fmt.Errorf("%w: %s", ErrDateUnavailable, d)
	}
	s.sessions = append(s.sessions, d)
	return Result{}, nil
}

// SelectBackupSession toggles a backup date once every session is chosen.
func (s *Session) SelectBackupSession(d dates.Date) (Result, error) {
	if i := dates.IndexOf(s.backups, d); i >= 0 {
		s.backups = remove(s.backups, i)
		return Result{Deselected: true}, nil
	}
	if len(s.backups) >= s.limits.BackupSessions {
		return Result{}, fmt.Errorf("%w: only %d backup sessions can be selected", ErrCapacityExceeded, s.limits.BackupSessions)
	}
	if len(s.sessions) < s.limits.TotalSessions {
		return Result{}, fmt.Errorf("%w: %d of %d sessions chosen", ErrSessionsIncomplete, len(s.sessions), s.limits.TotalSessions)
	}
	if dates.Contains(s.sessions, d) {
		return Result{}, fmt.Errorf("%w: %s is a session", ErrDateInUse, d)
	}
	last := s.lastSession()
	if offset := last.DaysUntil(d); offset < 1 || offset > s.limits.BackupWindowDays {
		return Result{}, fmt.Errorf("%w: %s is not within %d days after %s", ErrOutsideWindow, d, s.limits.BackupWindowDays, last)
	}
	if !s.view.IsDateAvailable(d) {
		return Result{}, fmt.Errorf("%w: %s", ErrDateUnavailable, d)
	}
	s.backups = append(s.backups, d)
	return Result{}, nil
}

// Reset clears every choice.
func (s *Session) Reset() {
	s.sessions = nil
	s.backups = nil
	s.timeslot = ""
}

// IsReadyForReview reports whether every session, backup and the timeslot are chosen.
func (s *Session) IsReadyForReview() bool {
	return len(s.sessions) == s.limits.TotalSessions &&
		len(s.backups) == s.limits.BackupSessions &&
		s.timeslot != ""
}

// FirstSession returns the instruction session date.
func (s *Session) FirstSession() (dates.Date, bool) {
	if len(s.sessions) == 0 {
		return dates.Date{}, false
	}
	return s.sessions[0], true
}

// Timeslot returns the chosen instruction slot.
func (s *Session) Timeslot() (availability.TimeSlot, bool) {
	return s.timeslot, s.timeslot != ""
}

// Sessions returns the chosen session dates in selection order, first session first.
func (s *Session) Sessions() []dates.Date { return append([]dates.Date(nil), s.sessions...) }

// Backups returns the chosen backup dates in selection order.
func (s *Session) Backups() []dates.Date { return append([]dates.Date(nil), s.backups...) }

// RemainingSessions returns how many session dates are still to be chosen.
func (s *Session) RemainingSessions() int {
	return max(0, s.limits.TotalSessions-len(s.sessions))
}

// FollowUpCount returns the number of sessions after the first.
func (s *Session) FollowUpCount() int {
	return max(0, len(s.sessions)-1)
}

// IsSelectedInSessions reports whether d is a chosen session.
func (s *Session) IsSelectedInSessions(d dates.Date) bool { return dates.Contains(s.sessions, d) }

// IsSelectedInBackups reports whether d is a chosen backup.
func (s *Session) IsSelectedInBackups(d dates.Date) bool { return dates.Contains(s.backups, d) }

// Validate rechecks every chosen date against the current view and the timeslot against
// the first session. All conflicts are returned.
func (s *Session) Validate() []Conflict {
	var conflicts []Conflict
	for _, d := range s.sessions {
		if !s.view.IsDateAvailable(d) {
			conflicts = append(conflicts, DateConflict(d))
		}
	}
	for _, d := range s.backups {
		if !s.view.IsDateAvailable(d) {
			conflicts = append(conflicts, DateConflict(d))
		}
	}
	if first, ok := s.FirstSession(); ok && s.timeslot != "" {
		if !s.view.IsTimeslotAvailable(s.timeslot, first) {
			conflicts = append(conflicts, timeslotConflict(s.timeslot, first))
		}
	}
	return conflicts
}

// Revalidate is Validate as an error, nil when nothing conflicts.
func (s *Session) Revalidate() error {
	if conflicts := s.Validate(); len(conflicts) > 0 {
		return &StaleSelectionError{Conflicts: conflicts}
	}
	return nil
}

func (s *Session) lastSession() dates.Date {
	last := s.sessions[0]
	for _, d := range s.sessions[1:] {
		if d.After(last) {
			last = d
		}
	}
	return last
}

func remove(ds []dates.Date, i int) []dates.Date {
	out := make([]dates.Date, 0, len(ds)-1)
	out = append(out, ds[:i]...)
	return append(out, ds[i+1:]...)
}
