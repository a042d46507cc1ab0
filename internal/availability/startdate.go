package availability

import (
	"errors"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// ErrNoAvailability is returned when no start date exists within the search horizon.
var ErrNoAvailability = errors.New("no availability found")

// DefaultHorizonDays bounds the start-date scan.
const DefaultHorizonDays = 365

// FinderConfig holds the inputs of the start-date search.
type FinderConfig struct {
	MaxConcurrent    int
	MinAvailableDays int
	HorizonDays      int
	Blocked          dates.Set
}

type dayStatus struct {
	weekend    bool
	blocked    bool
	atCapacity bool
}

// FindStartDate returns the earliest day at or after searchStart that is a valid
// instruction day and begins a run of MinAvailableDays days none of which is at capacity.
// The run includes the start day itself. Weekend and blocked days inside the run are allowed.
func FindStartDate(searchStart dates.Date, idx *Index, cfg FinderConfig) (dates.Date, error) {
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	window := cfg.MinAvailableDays
	if window < 1 {
		window = 1
	}

	status := make([]dayStatus, horizon+window)
	for i := range status {
		d := searchStart.AddDays(i)
		status[i] = dayStatus{
			weekend:    dates.IsWeekend(d),
			blocked:    dates.IsBlocked(d, cfg.Blocked),
			atCapacity: idx.IsDateAtCapacity(d, cfg.MaxConcurrent),
		}
	}

	for i := 0; i <= horizon; i++ {
		s := status[i]
		if s.weekend || s.blocked || s.atCapacity {
			continue
		}
		if i+window > len(status) {
			break
		}
		if runIsFree(status[i : i+window]) {
			return searchStart.AddDays(i), nil
		}
	}
	return dates.Date{}, ErrNoAvailability
}

// FullDayInWindow returns the first day of the MinAvailableDays run beginning at start
// that is at capacity.
func FullDayInWindow(start dates.Date, idx *Index, cfg FinderConfig) (dates.Date, bool) {
	window := cfg.MinAvailableDays
	if window < 1 {
		window = 1
	}
	for _, d := range dates.Range(start, window) {
		if idx.IsDateAtCapacity(d, cfg.MaxConcurrent) {
			return d, true
		}
	}
	return dates.Date{}, false
}

func runIsFree(run []dayStatus) bool {
	for _, s := range run {
		if s.atCapacity {
			return false
		}
	}
	return true
}
