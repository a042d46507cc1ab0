// Package availability derives occupancy from existing bookings and answers the
// capacity, start-date and time-slot questions asked while a participant schedules.
package availability

import (
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

// BookingRecord is one participant's persisted schedule as seen in a snapshot.
type BookingRecord struct {
	SessionDates        []dates.Date `json:"session_dates"`
	BackupDates         []dates.Date `json:"backup_dates"`
	InstructionTimeslot *TimeSlot    `json:"instruction_timeslot,omitempty"`
}

// FirstSession returns the earliest session date, if any.
func (r BookingRecord) FirstSession() (dates.Date, bool) {
	if len(r.SessionDates) == 0 {
		return dates.Date{}, false
	}
	first := r.SessionDates[0]
	for _, d := range r.SessionDates[1:] {
		if d.Before(first) {
			first = d
		}
	}
	return first, true
}

// SlotKey identifies one time slot on one day.
type SlotKey struct {
	Date dates.Date
	Slot TimeSlot
}

// Options controls how records are aggregated.
type Options struct {
	// CountBackups makes backup dates consume daily capacity like session dates do.
	CountBackups bool
}

// DefaultOptions counts backups toward capacity.
func DefaultOptions() Options {
	return Options{CountBackups: true}
}

// Index is the read-only occupancy view derived from one booking snapshot.
type Index struct {
	occupancy map[dates.Date]int
	slots     map[SlotKey]int
	records   int
}

// Build aggregates records into per-day and per-slot counts. A date is counted once per
// record even if the record lists it twice. Records without dates contribute nothing.
func Build(records []BookingRecord, opts Options) *Index {
	idx := &Index{
		occupancy: make(map[dates.Date]int),
		slots:     make(map[SlotKey]int),
		records:   len(records),
	}
	for _, rec := range records {
		seen := make(map[dates.Date]struct{}, len(rec.SessionDates)+len(rec.BackupDates))
		count := func(ds []dates.Date) {
			for _, d := range ds {
				if d.IsZero() {
					continue
				}
				if _, dup := seen[d]; dup {
					continue
				}
				seen[d] = struct{}{}
				idx.occupancy[d]++
			}
		}
		count(rec.SessionDates)
		if opts.CountBackups {
			count(rec.BackupDates)
		}

		if rec.InstructionTimeslot == nil || !rec.InstructionTimeslot.Valid() {
			continue
		}
		if first, ok := rec.FirstSession(); ok {
			idx.slots[SlotKey{Date: first, Slot: *rec.InstructionTimeslot}]++
		}
	}
	return idx
}

// Empty returns an index with no bookings.
func Empty() *Index {
	return Build(nil, DefaultOptions())
}

// Records returns how many booking records were aggregated.
func (i *Index) Records() int {
	if i == nil {
		return 0
	}
	return i.records
}

// OccupancyOn returns the number of bookings that use d.
func (i *Index) OccupancyOn(d dates.Date) int {
	if i == nil {
		return 0
	}
	return i.occupancy[d]
}

// Occupancy returns a copy of the per-day counts.
func (i *Index) Occupancy() map[dates.Date]int {
	out := make(map[dates.Date]int)
	if i == nil {
		return out
	}
	for d, n := range i.occupancy {
		out[d] = n
	}
	return out
}

// IsDateAtCapacity reports whether d already holds maxConcurrent or more bookings.
func (i *Index) IsDateAtCapacity(d dates.Date, maxConcurrent int) bool {
	return i.OccupancyOn(d) >= maxConcurrent
}

// SlotOccupancy returns the number of instruction sessions anchored at slot on d.
func (i *Index) SlotOccupancy(d dates.Date, slot TimeSlot) int {
	if i == nil {
		return 0
	}
	return i.slots[SlotKey{Date: d, Slot: slot}]
}

// TakenSlots returns the booked slots on d with their counts.
func (i *Index) TakenSlots(d dates.Date) map[TimeSlot]int {
	out := make(map[TimeSlot]int)
	if i == nil {
		return out
	}
	for key, n := range i.slots {
		if key.Date == d && n > 0 {
			out[key.Slot] = n
		}
	}
	return out
}

// InstructionSessionsOn returns how many instruction sessions start on d across all slots.
func (i *Index) InstructionSessionsOn(d dates.Date) int {
	total := 0
	for _, n := range i.TakenSlots(d) {
		total += n
	}
	return total
}
