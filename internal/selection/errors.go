package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

var (
	// ErrCapacityExceeded is returned when a selection would exceed the session or backup count.
	ErrCapacityExceeded = errors.New("selection: capacity exceeded")
	// ErrNoFirstSession is returned for follow-up choices made before a first session exists.
	ErrNoFirstSession = errors.New("selection: first session not chosen")
	// ErrSessionsIncomplete is returned for backup choices made before all sessions are chosen.
	ErrSessionsIncomplete = errors.New("selection: sessions incomplete")
	// ErrOutsideWindow is returned for dates outside the allowed window of their step.
	ErrOutsideWindow = errors.New("selection: date outside window")
	// ErrDateUnavailable is returned when the date has no capacity left for the step.
	ErrDateUnavailable = errors.New("selection: date unavailable")
	// ErrDateInUse is returned when the date is already used by another step.
	ErrDateInUse = errors.New("selection: date already selected")
	// ErrNotReady is returned when a submission is requested for an incomplete selection.
	ErrNotReady = errors.New("selection: not ready for review")
	// ErrStaleSelection matches any *StaleSelectionError.
	ErrStaleSelection = errors.New("selection: stale selection")
)

// ConflictKind tells which part of a selection went stale.
type ConflictKind string

const (
	ConflictDate     ConflictKind = "date"
	ConflictTimeslot ConflictKind = "timeslot"
)

// Conflict is one previously valid choice that is no longer available.
type Conflict struct {
	Kind     ConflictKind          `json:"kind"`
	Date     dates.Date            `json:"date"`
	Timeslot availability.TimeSlot `json:"timeslot,omitempty"`
	Message  string                `json:"message"`
}

// DateConflict reports d as no longer available.
func DateConflict(d dates.Date) Conflict {
	return Conflict{Kind: ConflictDate, Date: d, Message: fmt.Sprintf("Date %s is no longer available.", d)}
}

func timeslotConflict(slot availability.TimeSlot, d dates.Date) Conflict {
	return Conflict{
		Kind:     ConflictTimeslot,
		Date:     d,
		Timeslot: slot,
		Message:  fmt.Sprintf("Timeslot %s on %s is no longer available.", slot, d),
	}
}

// StaleSelectionError carries every conflict found during revalidation. The selection
// that produced it should be discarded.
type StaleSelectionError struct {
	Conflicts []Conflict
}

func (e *StaleSelectionError) Error() string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = c.Message
	}
	return "selection: stale selection: " + strings.Join(msgs, " ")
}

// Is lets errors.Is match ErrStaleSelection.
func (e *StaleSelectionError) Is(target error) bool {
	return target == ErrStaleSelection
}
