package selection

import (
	"fmt"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// Choice is a complete selection as sent by a client.
type Choice struct {
	FirstSession dates.Date            `json:"first_session"`
	Timeslot     availability.TimeSlot `json:"timeslot"`
	FollowUps    []dates.Date          `json:"follow_ups"`
	Backups      []dates.Date          `json:"backups"`
}

// Replay resets s and applies c step by step, stopping at the first rejected step.
func (s *Session) Replay(c Choice) error {
	s.Reset()
	if c.FirstSession.IsZero() {
		return ErrNoFirstSession
	}
	if _, err := s.SelectFirstSession(c.FirstSession); err != nil {
		return fmt.Errorf("first session: %w", err)
	}
	if err := s.SetTimeslot(c.Timeslot); err != nil {
		return err
	}
	for _, d := range c.FollowUps {
		if s.IsSelectedInSessions(d) {
			return fmt.Errorf("follow-up %s: %w", d, ErrDateInUse)
		}
		if _, err := s.SelectFollowUpSession(d); err != nil {
			return fmt.Errorf("follow-up %s: %w", d, err)
		}
	}
	for _, d := range c.Backups {
		if s.IsSelectedInBackups(d) {
			return fmt.Errorf("backup %s: %w", d, ErrDateInUse)
		}
		if _, err := s.SelectBackupSession(d); err != nil {
			return fmt.Errorf("backup %s: %w", d, err)
		}
	}
	return nil
}
