package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

func fixedClock(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func instructionRecords(day dates.Date, slot TimeSlot, n int) []BookingRecord {
	out := make([]BookingRecord, n)
	for i := range out {
		out[i] = BookingRecord{SessionDates: []dates.Date{day}, InstructionTimeslot: slotPtr(slot)}
	}
	return out
}

func newTestNegotiator(records []BookingRecord, rules SlotRules) *Negotiator {
	return NewNegotiator(
		Build(records, DefaultOptions()),
		DayRules{MaxConcurrent: 9},
		rules,
		fixedClock("2025-07-01T09:00:00Z"),
	)
}

func TestAvailableTimeSlotsFridayWithExistingBooking(t *testing.T) {
	friday := d("2025-07-25")
	rules := DefaultSlotRules()
	rules.Slots = []TimeSlot{"11:00", "13:00", "14:00", "17:00"}

	n := newTestNegotiator(instructionRecords(friday, "11:00", 1), rules)

	assert.Equal(t, []TimeSlot{"17:00"}, n.AvailableTimeSlots(friday))
	assert.False(t, n.IsTimeslotAvailable("13:00", friday), "blackout and 120 minutes from the 11:00 booking")
	assert.False(t, n.IsTimeslotAvailable("14:00", friday), "inside the friday blackout")
	assert.True(t, n.IsTimeslotAvailable("17:00", friday))
}

func TestAvailableTimeSlotsMondayMorningBlocked(t *testing.T) {
	monday := d("2025-07-21")
	rules := DefaultSlotRules()
	rules.Slots = []TimeSlot{"09:00", "12:59", "13:00", "17:00"}

	n := newTestNegotiator(nil, rules)

	assert.Equal(t, []TimeSlot{"13:00", "17:00"}, n.AvailableTimeSlots(monday))
}

func TestAvailableTimeSlotsOpenDayKeepsConfiguredOrder(t *testing.T) {
	wednesday := d("2025-07-23")
	rules := DefaultSlotRules()
	rules.Slots = []TimeSlot{"17:00", "11:00", "13:00"}

	n := newTestNegotiator(nil, rules)

	assert.Equal(t, rules.Slots, n.AvailableTimeSlots(wednesday))
	assert.Equal(t, n.AvailableTimeSlots(wednesday), n.AvailableTimeSlots(wednesday))
}

func TestSameSlotAcceptsUpToCap(t *testing.T) {
	wednesday := d("2025-07-23")

	one := newTestNegotiator(instructionRecords(wednesday, "11:00", 1), DefaultSlotRules())
	assert.True(t, one.IsTimeslotAvailable("11:00", wednesday))
	assert.False(t, one.IsTimeslotAvailable("13:00", wednesday))
	assert.True(t, one.IsTimeslotAvailable("17:00", wednesday))

	two := newTestNegotiator(instructionRecords(wednesday, "11:00", 2), DefaultSlotRules())
	assert.False(t, two.IsTimeslotAvailable("11:00", wednesday))
	assert.Equal(t, []TimeSlot{"17:00"}, two.AvailableTimeSlots(wednesday))
}

func TestMinimumNotice(t *testing.T) {
	rules := DefaultSlotRules()
	n := NewNegotiator(Empty(), DayRules{MaxConcurrent: 9}, rules, fixedClock("2025-07-21T12:00:00Z"))

	wednesday := d("2025-07-23")
	assert.False(t, n.IsTimeslotAvailable("11:00", wednesday), "47 hours away")
	assert.True(t, n.IsTimeslotAvailable("13:00", wednesday), "49 hours away")
	assert.False(t, n.IsTimeslotAvailable("17:00", d("2025-07-22")))
}

func TestMinimumNoticeUsesLocation(t *testing.T) {
	rules := DefaultSlotRules()
	rules.Location = time.FixedZone("UTC-5", -5*3600)
	n := NewNegotiator(Empty(), DayRules{MaxConcurrent: 9}, rules, fixedClock("2025-07-21T15:30:00Z"))

	// 11:00 at UTC-5 on Wednesday is 16:00Z, 48.5 hours after the clock.
	assert.True(t, n.IsTimeslotAvailable("11:00", d("2025-07-23")))
}

func TestIsTimeslotAvailableRejectsMalformed(t *testing.T) {
	n := newTestNegotiator(nil, DefaultSlotRules())
	assert.False(t, n.IsTimeslotAvailable("25:00", d("2025-07-23")))
}

func TestIsTimeslotAvailableRejectsUnconfiguredSlot(t *testing.T) {
	wednesday := d("2025-07-23")
	n := newTestNegotiator(nil, DefaultSlotRules())

	assert.False(t, n.IsTimeslotAvailable("03:00", wednesday))
	assert.False(t, n.IsTimeslotAvailable("12:00", wednesday))
	assert.True(t, n.IsTimeslotAvailable("11:00", wednesday))
	assert.True(t, n.Configured("17:00"))
	assert.False(t, n.Configured("17:30"))
}

func TestIsDateAvailableForInstruction(t *testing.T) {
	wednesday := d("2025-07-23")
	rules := DefaultSlotRules()

	cases := []struct {
		name    string
		day     dates.Date
		records []BookingRecord
		blocked dates.Set
		want    bool
	}{
		{name: "open weekday", day: wednesday, want: true},
		{name: "weekend", day: d("2025-07-26"), want: false},
		{name: "blocked", day: wednesday, blocked: dates.NewSet(wednesday), want: false},
		{name: "day full", day: wednesday, records: recordsOn(wednesday, 9), want: false},
		{
			name: "three instructions already",
			day:  wednesday,
			records: append(instructionRecords(wednesday, "11:00", 1),
				instructionRecords(wednesday, "17:00", 2)...),
			want: false,
		},
		{name: "one slot left", day: wednesday, records: instructionRecords(wednesday, "11:00", 2), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NewNegotiator(Build(tc.records, DefaultOptions()), DayRules{MaxConcurrent: 9, Blocked: tc.blocked}, rules, fixedClock("2025-07-01T09:00:00Z"))
			assert.Equal(t, tc.want, n.IsDateAvailableForInstruction(tc.day))
		})
	}
}

func TestInstructionDayWithNoOfferableSlot(t *testing.T) {
	friday := d("2025-07-25")
	rules := DefaultSlotRules()
	rules.Slots = []TimeSlot{"11:00", "13:00"}

	n := newTestNegotiator(nil, rules)

	assert.Empty(t, n.AvailableTimeSlots(friday))
	assert.False(t, n.IsDateAvailableForInstruction(friday))
}

func TestWithIndexKeepsRules(t *testing.T) {
	wednesday := d("2025-07-23")
	n := newTestNegotiator(nil, DefaultSlotRules())
	require.True(t, n.IsDateAvailable(wednesday))

	fresh := n.WithIndex(Build(recordsOn(wednesday, 9), DefaultOptions()))

	assert.False(t, fresh.IsDateAvailable(wednesday))
	assert.True(t, n.IsDateAvailable(wednesday))
	assert.Equal(t, n.DayRules(), fresh.DayRules())
}

func TestSlotSpacingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rules := DefaultSlotRules()
	rules.Blackouts = nil
	rules.Slots = []TimeSlot{"08:00", "09:30", "11:00", "12:00", "13:00", "14:30", "16:00", "17:00", "18:30"}
	wednesday := d("2025-07-23")
	gap := int(rules.MinGap / time.Minute)

	for trial := 0; trial < 30; trial++ {
		var records []BookingRecord
		for i := 0; i < 12; i++ {
			n := newTestNegotiator(records, rules)
			offered := n.AvailableTimeSlots(wednesday)
			if len(offered) == 0 {
				break
			}
			pick := offered[rng.Intn(len(offered))]
			for other := range n.Index().TakenSlots(wednesday) {
				if other != pick {
					require.GreaterOrEqual(t, absInt(pick.Minutes()-other.Minutes()), gap)
				}
			}
			records = append(records, instructionRecords(wednesday, pick, 1)...)
		}

		taken := Build(records, DefaultOptions()).TakenSlots(wednesday)
		for a, countA := range taken {
			require.LessOrEqual(t, countA, rules.PerSlotCap)
			for b := range taken {
				if a != b {
					require.GreaterOrEqual(t, absInt(a.Minutes()-b.Minutes()), gap, "%s and %s booked together", a, b)
				}
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
