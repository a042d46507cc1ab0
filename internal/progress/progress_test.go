package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
)

func ds(ss ...string) []dates.Date {
	out := make([]dates.Date, len(ss))
	for i, s := range ss {
		out[i] = dates.MustParse(s)
	}
	return out
}

func rec(id string, sessions, backups []dates.Date) schedules.Record {
	return schedules.Record{ParticipantID: id, SessionDates: sessions, BackupDates: backups}
}

var today = dates.MustParse("2025-07-15")

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name     string
		sessions []dates.Date
		backups  []dates.Date
		want     Status
	}{
		{"finished", ds("2025-07-01", "2025-07-02"), ds("2025-07-03"), StatusCompleted},
		{"backup today keeps running", ds("2025-07-01", "2025-07-02"), ds("2025-07-15"), StatusRunning},
		{"starts today", ds("2025-07-15", "2025-07-16"), nil, StatusRunning},
		{"starts tomorrow", ds("2025-07-16"), nil, StatusScheduled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := StatusOf(rec("P", tc.sessions, tc.backups), today)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := StatusOf(rec("P", nil, nil), today)
	assert.False(t, ok)
}

func TestSummarizeSkipsExcludedAndEmpty(t *testing.T) {
	records := []schedules.Record{
		rec("P1", ds("2025-07-01"), nil),
		rec("P2", ds("2025-07-10", "2025-07-20"), nil),
		rec("P3", ds("2025-08-01"), nil),
		rec("P4", ds("2025-07-01"), nil),
		rec("P5", nil, nil),
	}
	sum := Summarize(records, NewExcluded("P4", "P9"), today)

	assert.Equal(t, Summary{Running: 1, Completed: 1, Scheduled: 1, Dropouts: 2}, sum)
}

func TestDailyPastOnly(t *testing.T) {
	records := []schedules.Record{
		rec("P1", ds("2025-07-13", "2025-07-15", "2025-07-20"), nil),
		rec("P2", ds("2025-07-13"), nil),
		rec("X", ds("2025-07-14"), nil),
	}
	points := Daily(records, NewExcluded("X"), today, false)

	require.Len(t, points, 3)
	assert.Equal(t, "2025-07-13", points[0].Date.String())
	assert.Equal(t, 2, points[0].Completed)
	require.NotNil(t, points[0].CumulativeDone)
	assert.Equal(t, 2, *points[0].CumulativeDone)

	assert.Equal(t, 0, points[1].Completed)
	assert.Nil(t, points[1].CumulativeDone)

	require.NotNil(t, points[2].CumulativeDone)
	assert.Equal(t, 3, *points[2].CumulativeDone)
	require.NotNil(t, points[2].CumulativePlanned)
	assert.Equal(t, 3, *points[2].CumulativePlanned)
}

func TestDailyWithFuture(t *testing.T) {
	records := []schedules.Record{
		rec("P1", ds("2025-07-14", "2025-07-16", "2025-07-18"), nil),
		rec("P2", ds("2025-07-18"), nil),
	}
	points := Daily(records, nil, today, true)

	require.Len(t, points, 5)
	byDay := map[string]DayPoint{}
	for _, p := range points {
		byDay[p.Date.String()] = p
	}

	assert.Equal(t, 1, *byDay["2025-07-15"].CumulativePlanned)
	assert.Equal(t, 1, byDay["2025-07-16"].Planned)
	assert.Equal(t, 2, *byDay["2025-07-16"].CumulativePlanned)
	assert.Nil(t, byDay["2025-07-17"].CumulativePlanned)
	assert.Equal(t, 2, byDay["2025-07-18"].Planned)
	assert.Equal(t, 4, *byDay["2025-07-18"].CumulativePlanned)
	assert.Nil(t, byDay["2025-07-18"].CumulativeDone)
}

func TestDailyEmpty(t *testing.T) {
	assert.Empty(t, Daily(nil, nil, today, true))
	assert.Empty(t, Daily([]schedules.Record{rec("P1", ds("2025-08-01"), nil)}, nil, today, false))
}
