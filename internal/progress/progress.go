// Package progress summarises how far the experiment has come.
package progress

import (
	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
)

// Status is a participant's position in the experiment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Excluded holds participant IDs that dropped out and are left out of the counts.
type Excluded map[string]struct{}

// NewExcluded builds an exclusion set from participant IDs.
func NewExcluded(ids ...string) Excluded {
	ex := make(Excluded, len(ids))
	for _, id := range ids {
		if id != "" {
			ex[id] = struct{}{}
		}
	}
	return ex
}

// Has reports whether the participant is excluded.
func (e Excluded) Has(id string) bool {
	_, ok := e[id]
	return ok
}

// Summary counts participants by status.
type Summary struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Scheduled int `json:"scheduled"`
	Dropouts  int `json:"dropouts"`
}

// StatusOf classifies a schedule relative to today. ok is false when the record has no sessions.
func StatusOf(rec schedules.Record, today dates.Date) (Status, bool) {
	if len(rec.SessionDates) == 0 {
		return "", false
	}
	first := dates.Sorted(rec.SessionDates)[0]
	all := append(dates.Sorted(rec.SessionDates), rec.BackupDates...)
	last := dates.Sorted(all)[len(all)-1]

	switch {
	case last.Before(today):
		return StatusCompleted, true
	case !first.After(today):
		return StatusRunning, true
	default:
		return StatusScheduled, true
	}
}

// Summarize counts running, completed and scheduled participants. Dropouts is the size of the exclusion set.
func Summarize(records []schedules.Record, excluded Excluded, today dates.Date) Summary {
	sum := Summary{Dropouts: len(excluded)}
	for _, rec := range records {
		if excluded.Has(rec.ParticipantID) {
			continue
		}
		status, ok := StatusOf(rec, today)
		if !ok {
			continue
		}
		switch status {
		case StatusCompleted:
			sum.Completed++
		case StatusRunning:
			sum.Running++
		default:
			sum.Scheduled++
		}
	}
	return sum
}

// DayPoint is one day of the session chart. Cumulative values are nil on days they are not plotted.
type DayPoint struct {
	Date              dates.Date `json:"date"`
	Completed         int        `json:"completed"`
	Planned           int        `json:"planned"`
	CumulativeDone    *int       `json:"cumulative_completed"`
	CumulativePlanned *int       `json:"cumulative_planned"`
}

// Daily builds the per-day chart series from session dates of non-excluded participants.
// Sessions on or before today count as completed. Later sessions are only included when includeFuture is set.
func Daily(records []schedules.Record, excluded Excluded, today dates.Date, includeFuture bool) []DayPoint {
	past := map[dates.Date]int{}
	future := map[dates.Date]int{}
	pastTotal := 0
	var first, last dates.Date

	for _, rec := range records {
		if excluded.Has(rec.ParticipantID) {
			continue
		}
		for _, d := range rec.SessionDates {
			if d.After(today) {
				if !includeFuture {
					continue
				}
				future[d]++
			} else {
				past[d]++
				pastTotal++
			}
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if last.IsZero() || d.After(last) {
				last = d
			}
		}
	}
	if first.IsZero() {
		return []DayPoint{}
	}

	points := make([]DayPoint, 0, first.DaysUntil(last)+1)
	runningPast := 0
	runningPlanned := pastTotal
	for _, d := range dates.Span(first, last) {
		p := DayPoint{Date: d, Completed: past[d], Planned: future[d]}
		runningPast += p.Completed
		if p.Completed > 0 {
			p.CumulativeDone = intPtr(runningPast)
		}
		if d.After(today) && p.Planned > 0 {
			runningPlanned += p.Planned
			p.CumulativePlanned = intPtr(runningPlanned)
		}
		if d == today {
			p.CumulativePlanned = intPtr(runningPast)
		}
		points = append(points, p)
	}
	return points
}

func intPtr(v int) *int { return &v }
