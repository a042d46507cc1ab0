package availability

import (
	"time"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// SlotRules configures which time slots may be offered for an instruction session.
type SlotRules struct {
	Slots                 []TimeSlot
	MinNotice             time.Duration
	Blackouts             []Blackout
	MinGap                time.Duration
	PerSlotCap            int
	MaxInstructionsPerDay int
	// Location anchors slot clock times to instants for the notice rule. Nil means UTC.
	Location *time.Location
}

// DefaultSlotRules returns the standard slot list and restrictions.
func DefaultSlotRules() SlotRules {
	return SlotRules{
		Slots:                 []TimeSlot{"11:00", "13:00", "17:00"},
		MinNotice:             48 * time.Hour,
		Blackouts:             DefaultBlackouts(),
		MinGap:                150 * time.Minute,
		PerSlotCap:            2,
		MaxInstructionsPerDay: 3,
		Location:              time.UTC,
	}
}

// DayRules are the day-level limits shared by every session type.
type DayRules struct {
	MaxConcurrent int
	Blocked       dates.Set
}

// Negotiator answers availability questions against one Index. It holds no mutable state;
// rebuilding after a fresh snapshot means creating a new Negotiator via WithIndex.
type Negotiator struct {
	index *Index
	day   DayRules
	slots SlotRules
	now   func() time.Time
}

// NewNegotiator builds a negotiator. A nil clock uses time.Now.
func NewNegotiator(idx *Index, day DayRules, slots SlotRules, now func() time.Time) *Negotiator {
	if idx == nil {
		idx = Empty()
	}
	if now == nil {
		now = time.Now
	}
	if slots.Location == nil {
		slots.Location = time.UTC
	}
	return &Negotiator{index: idx, day: day, slots: slots, now: now}
}

// WithIndex returns a negotiator with the same rules over a different snapshot.
func (n *Negotiator) WithIndex(idx *Index) *Negotiator {
	return NewNegotiator(idx, n.day, n.slots, n.now)
}

// Index returns the snapshot view in use.
func (n *Negotiator) Index() *Index { return n.index }

// DayRules returns the configured day limits.
func (n *Negotiator) DayRules() DayRules { return n.day }

// Now returns the negotiator's current time.
func (n *Negotiator) Now() time.Time { return n.now() }

// IsDateAvailable reports whether d still has day-level capacity.
func (n *Negotiator) IsDateAvailable(d dates.Date) bool {
	return !n.index.IsDateAtCapacity(d, n.day.MaxConcurrent)
}

// IsTimeslotAvailable applies the notice, blackout, per-slot cap and spacing rules to one
// slot. Slots outside the configured list are never available.
func (n *Negotiator) IsTimeslotAvailable(slot TimeSlot, d dates.Date) bool {
	if !slot.Valid() || !n.Configured(slot) {
		return false
	}
	return n.slotOffered(slot, d, n.index.TakenSlots(d), n.now())
}

// Configured reports whether slot is one of the configured instruction slots.
func (n *Negotiator) Configured(slot TimeSlot) bool {
	for _, s := range n.slots.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// AvailableTimeSlots returns the configured slots offerable on d, in configured order.
func (n *Negotiator) AvailableTimeSlots(d dates.Date) []TimeSlot {
	taken := n.index.TakenSlots(d)
	now := n.now()
	out := make([]TimeSlot, 0, len(n.slots.Slots))
	for _, slot := range n.slots.Slots {
		if n.slotOffered(slot, d, taken, now) {
			out = append(out, slot)
		}
	}
	return out
}

// IsDateAvailableForInstruction reports whether d can host a first session.
func (n *Negotiator) IsDateAvailableForInstruction(d dates.Date) bool {
	if !n.IsDateAvailable(d) || dates.IsBlocked(d, n.day.Blocked) || dates.IsWeekend(d) {
		return false
	}
	if n.index.InstructionSessionsOn(d) >= n.slots.MaxInstructionsPerDay {
		return false
	}
	return len(n.AvailableTimeSlots(d)) > 0
}

func (n *Negotiator) slotOffered(slot TimeSlot, d dates.Date, taken map[TimeSlot]int, now time.Time) bool {
	at := slot.Minutes()
	start := d.In(at/60, at%60, n.slots.Location)
	if start.Sub(now) < n.slots.MinNotice {
		return false
	}

	wd := d.Weekday()
	for _, b := range n.slots.Blackouts {
		if b.Covers(wd, slot) {
			return false
		}
	}

	if taken[slot] >= n.slots.PerSlotCap {
		return false
	}

	gap := int(n.slots.MinGap / time.Minute)
	for other := range taken {
		if other == slot {
			continue
		}
		diff := at - other.Minutes()
		if diff < 0 {
			diff = -diff
		}
		if diff < gap {
			return false
		}
	}
	return true
}
