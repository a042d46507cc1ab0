package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/selection"
)

// Scheduler is the parsed, read-only scheduling configuration shared by every request.
type Scheduler struct {
	Limits   selection.Limits
	Day      availability.DayRules
	Slots    availability.SlotRules
	Finder   availability.FinderConfig
	Index    availability.Options
	Location *time.Location
}

// Scheduler parses and validates the scheduling settings.
func (c *Config) Scheduler() (Scheduler, error) {
	if err := c.Validate(); err != nil {
		return Scheduler{}, err
	}
	slots, err := availability.ParseTimeSlots(c.TimeSlots)
	if err != nil {
		return Scheduler{}, fmt.Errorf("config: TIME_SLOTS: %w", err)
	}
	blocked, err := dates.ParseSet(c.BlockedDates)
	if err != nil {
		return Scheduler{}, fmt.Errorf("config: BLOCKED_DATES: %w", err)
	}
	blackouts, err := availability.ParseBlackouts(c.SlotBlackouts)
	if err != nil {
		return Scheduler{}, fmt.Errorf("config: SLOT_BLACKOUTS: %w", err)
	}
	loc, err := time.LoadLocation(c.SlotTimezone)
	if err != nil {
		return Scheduler{}, fmt.Errorf("config: SLOT_TIMEZONE: %w", err)
	}

	day := availability.DayRules{MaxConcurrent: c.MaxConcurrentSessions, Blocked: blocked}
	return Scheduler{
		Limits: selection.Limits{
			TotalSessions:      c.TotalSessions,
			BackupSessions:     c.BackupSessions,
			SessionWindowDays:  c.SessionWindowDays,
			FollowUpWindowDays: c.FollowUpWindowDays,
			BackupWindowDays:   c.BackupWindowDays,
		},
		Day: day,
		Slots: availability.SlotRules{
			Slots:                 slots,
			MinNotice:             c.MinNotice,
			Blackouts:             blackouts,
			MinGap:                c.SlotGap,
			PerSlotCap:            c.PerSlotCap,
			MaxInstructionsPerDay: c.MaxInstructionsPerDay,
			Location:              loc,
		},
		Finder: availability.FinderConfig{
			MaxConcurrent:    day.MaxConcurrent,
			MinAvailableDays: c.MinAvailableDays,
			HorizonDays:      c.SearchHorizonDays,
			Blocked:          blocked,
		},
		Index:    availability.Options{CountBackups: c.BackupsCountTowardCapacity},
		Location: loc,
	}, nil
}

// Validate reports every out-of-range scheduling value.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("TOTAL_SESSIONS", c.TotalSessions)
	positive("MAX_CONCURRENT_SESSIONS", c.MaxConcurrentSessions)
	positive("SESSION1_WINDOW_DAYS", c.SessionWindowDays)
	positive("FOLLOW_UP_WINDOW_DAYS", c.FollowUpWindowDays)
	positive("MIN_AVAILABLE_DAYS", c.MinAvailableDays)
	positive("SEARCH_HORIZON_DAYS", c.SearchHorizonDays)
	positive("PER_SLOT_CAP", c.PerSlotCap)
	positive("MAX_INSTRUCTIONS_PER_DAY", c.MaxInstructionsPerDay)
	if c.BackupSessions < 0 {
		errs = append(errs, fmt.Errorf("NUM_BACKUP_SESSIONS must not be negative, got %d", c.BackupSessions))
	}
	if c.BackupSessions > 0 && c.BackupWindowDays < c.BackupSessions {
		errs = append(errs, fmt.Errorf("BACKUP_WINDOW_DAYS %d cannot hold %d backups", c.BackupWindowDays, c.BackupSessions))
	}
	if c.FollowUpWindowDays < c.TotalSessions-1 {
		errs = append(errs, fmt.Errorf("FOLLOW_UP_WINDOW_DAYS %d cannot hold %d follow-ups", c.FollowUpWindowDays, c.TotalSessions-1))
	}
	if c.MinNotice < 0 || c.SlotGap < 0 {
		errs = append(errs, errors.New("MIN_NOTICE and SLOT_GAP must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid scheduler settings: %w", err)
	}
	return nil
}
