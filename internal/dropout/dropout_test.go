package dropout

import (
	"context"
	"errors"
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

func sampleRecord() schedules.Record {
	return schedules.Record{
		ParticipantID: "P001",
		SessionDates:  ds("2025-07-21", "2025-07-22", "2025-07-23", "2025-07-24"),
		BackupDates:   ds("2025-07-25", "2025-07-28"),
		EquipmentDays: ds("2025-07-21", "2025-07-22", "2025-07-23", "2025-07-24", "2025-07-25", "2025-07-26", "2025-07-27", "2025-07-28", "2025-07-29"),
	}
}

func TestApplyRemovesOnAndAfterDropoutDate(t *testing.T) {
	out := Apply(sampleRecord(), dates.MustParse("2025-07-23"))

	assert.Equal(t, []string{"2025-07-21", "2025-07-22"}, dates.Strings(out.KeptSessions))
	assert.Equal(t, []string{"2025-07-23", "2025-07-24"}, dates.Strings(out.RemovedSessions))
	assert.Empty(t, out.KeptBackups)
	assert.Len(t, out.RemovedBackups, 2)
	assert.Len(t, out.KeptEquipment, 2)
	assert.Len(t, out.RemovedEquipment, 7)
	assert.True(t, out.Changed())
}

func TestApplyAfterScheduleIsUnchanged(t *testing.T) {
	out := Apply(sampleRecord(), dates.MustParse("2025-08-01"))

	assert.False(t, out.Changed())
	assert.Len(t, out.KeptSessions, 4)
	assert.NotNil(t, out.RemovedSessions)
}

type fakeStore struct {
	rec     *schedules.Record
	updated *schedules.DateUpdate
	err     error
}

func (f *fakeStore) GetByParticipantID(context.Context, string) (*schedules.Record, error) {
	if f.rec == nil {
		return nil, schedules.ErrNotFound
	}
	return f.rec, nil
}

func (f *fakeStore) UpdateDates(_ context.Context, _ string, u schedules.DateUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.updated = &u
	return nil
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestProcessPersistsAndInvalidates(t *testing.T) {
	rec := sampleRecord()
	store := &fakeStore{rec: &rec}
	cache := &countingCache{}
	svc := NewService(store, cache, nil, nil)

	out, err := svc.Process(context.Background(), "P001", dates.MustParse("2025-07-24"))
	require.NoError(t, err)

	require.NotNil(t, store.updated)
	assert.Equal(t, out.KeptSessions, store.updated.SessionDates)
	assert.Len(t, store.updated.SessionDates, 3)
	assert.Equal(t, 1, cache.calls)
}

func TestProcessUnchangedSkipsWrite(t *testing.T) {
	rec := sampleRecord()
	store := &fakeStore{rec: &rec}
	cache := &countingCache{}
	svc := NewService(store, cache, nil, nil)

	out, err := svc.Process(context.Background(), "P001", dates.MustParse("2025-09-01"))
	require.NoError(t, err)

	assert.False(t, out.Changed())
	assert.Nil(t, store.updated)
	assert.Equal(t, 0, cache.calls)
}

func TestProcessErrors(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil, nil)
	_, err := svc.Process(context.Background(), "P404", dates.MustParse("2025-07-24"))
	assert.ErrorIs(t, err, schedules.ErrNotFound)

	rec := sampleRecord()
	svc = NewService(&fakeStore{rec: &rec, err: errors.New("write failed")}, nil, nil, nil)
	_, err = svc.Process(context.Background(), "P001", dates.MustParse("2025-07-24"))
	assert.EqualError(t, err, "dropout: write failed")
}
