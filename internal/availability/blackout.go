package availability

import (
	"fmt"
	"strings"
	"time"
)

// Blackout excludes slots on one weekday whose clock time falls in [From, To], both inclusive.
type Blackout struct {
	Weekday time.Weekday
	From    TimeSlot
	To      TimeSlot
}

// Covers reports whether slot on a day of weekday wd is inside the blackout.
func (b Blackout) Covers(wd time.Weekday, slot TimeSlot) bool {
	if wd != b.Weekday {
		return false
	}
	m := slot.Minutes()
	return m >= b.From.Minutes() && m <= b.To.Minutes()
}

func (b Blackout) String() string {
	return fmt.Sprintf("%s %s-%s", strings.ToLower(b.Weekday.String()[:3]), b.From, b.To)
}

// DefaultBlackouts blocks Friday 10:00-14:29 and Monday mornings before 13:00.
func DefaultBlackouts() []Blackout {
	return []Blackout{
		{Weekday: time.Friday, From: "10:00", To: "14:29"},
		{Weekday: time.Monday, From: "00:00", To: "12:59"},
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseBlackouts reads entries like "fri 10:00-14:29,mon 00:00-12:59".
func ParseBlackouts(raw string) ([]Blackout, error) {
	var out []Blackout
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		day, window, ok := strings.Cut(entry, " ")
		if !ok {
			return nil, fmt.Errorf("availability: blackout %q: expected \"<day> HH:MM-HH:MM\"", entry)
		}
		key := strings.ToLower(strings.TrimSpace(day))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("availability: blackout %q: unknown weekday %q", entry, day)
		}
		fromRaw, toRaw, ok := strings.Cut(strings.TrimSpace(window), "-")
		if !ok {
			return nil, fmt.Errorf("availability: blackout %q: missing range", entry)
		}
		from, err := ParseTimeSlot(fromRaw)
		if err != nil {
			return nil, fmt.Errorf("availability: blackout %q: %w", entry, err)
		}
		to, err := ParseTimeSlot(toRaw)
		if err != nil {
			return nil, fmt.Errorf("availability: blackout %q: %w", entry, err)
		}
		if to.Minutes() < from.Minutes() {
			return nil, fmt.Errorf("availability: blackout %q: end before start", entry)
		}
		out = append(out, Blackout{Weekday: wd, From: from, To: to})
	}
	return out, nil
}
