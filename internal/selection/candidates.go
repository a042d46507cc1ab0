package selection

import (
	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// DayOption is one selectable day as presented to a participant.
type DayOption struct {
	Date      dates.Date              `json:"date"`
	Available bool                    `json:"available"`
	Selected  bool                    `json:"selected"`
	Slots     []availability.TimeSlot `json:"slots,omitempty"`
}

// FirstSessionCandidates lists SessionWindowDays days from start with the slots each offers.
func (s *Session) FirstSessionCandidates(start dates.Date) []DayOption {
	first, hasFirst := s.FirstSession()
	out := make([]DayOption, 0, s.limits.SessionWindowDays)
	for _, d := range dates.Range(start, s.limits.SessionWindowDays) {
		opt := DayOption{
			Date:      d,
			Available: s.view.IsDateAvailableForInstruction(d),
			Selected:  hasFirst && first == d,
		}
		if opt.Available {
			opt.Slots = s.view.AvailableTimeSlots(d)
		}
		out = append(out, opt)
	}
	return out
}

// FollowUpCandidates lists the follow-up window after the first session. It is empty
// until a first session is chosen.
func (s *Session) FollowUpCandidates() []DayOption {
	first, ok := s.FirstSession()
	if !ok {
		return nil
	}
	out := make([]DayOption, 0, s.limits.FollowUpWindowDays)
	for _, d := range dates.Range(first.AddDays(1), s.limits.FollowUpWindowDays) {
		out = append(out, DayOption{
			Date:      d,
			Available: s.view.IsDateAvailable(d),
			Selected:  s.IsSelectedInSessions(d),
		})
	}
	return out
}

// BackupCandidates lists the backup window after the last session. It is empty until
// every session is chosen.
func (s *Session) BackupCandidates() []DayOption {
	if len(s.sessions) < s.limits.TotalSessions || len(s.sessions) == 0 {
		return nil
	}
	last := s.lastSession()
	out := make([]DayOption, 0, s.limits.BackupWindowDays)
	for _, d := range dates.Range(last.AddDays(1), s.limits.BackupWindowDays) {
		out = append(out, DayOption{
			Date:      d,
			Available: s.view.IsDateAvailable(d),
			Selected:  s.IsSelectedInBackups(d),
		})
	}
	return out
}
