package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTimeSlot is returned for slot strings that are not HH:MM clock times.
var ErrInvalidTimeSlot = errors.New("invalid time slot")

// TimeSlot is a clock time in HH:MM form at which an instruction session can begin.
type TimeSlot string

// ParseTimeSlot validates and normalises a clock time ("9:00" becomes "09:00").
func ParseTimeSlot(s string) (TimeSlot, error) {
	m, err := clockMinutes(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return TimeSlot(fmt.Sprintf("%02d:%02d", m/60, m%60)), nil
}

// ParseTimeSlots reads a comma separated slot list, preserving its order.
func ParseTimeSlots(raw string) ([]TimeSlot, error) {
	var out []TimeSlot
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		slot, err := ParseTimeSlot(part)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

func (t TimeSlot) String() string { return string(t) }

// Valid reports whether t is a well-formed clock time.
func (t TimeSlot) Valid() bool {
	_, err := clockMinutes(string(t))
	return err == nil
}

// Minutes returns minutes after midnight, or -1 when t is malformed.
func (t TimeSlot) Minutes() int {
	m, err := clockMinutes(string(t))
	if err != nil {
		return -1
	}
	return m
}

func clockMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	return h*60 + m, nil
}
