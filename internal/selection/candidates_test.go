package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

func TestFirstSessionCandidates(t *testing.T) {
	s := newSession()
	saturday := dates.MustParse("2025-07-19")

	opts := s.FirstSessionCandidates(saturday)

	require.Len(t, opts, 14)
	assert.False(t, opts[0].Available)
	assert.False(t, opts[1].Available)
	assert.Equal(t, monday, opts[2].Date)
	assert.True(t, opts[2].Available)
	assert.Equal(t, []availability.TimeSlot{"13:00", "17:00"}, opts[2].Slots)
	// friday offers 17:00 only
	assert.Equal(t, []availability.TimeSlot{"17:00"}, opts[6].Slots)

	_, err := s.SelectFirstSession(monday)
	require.NoError(t, err)
	assert.True(t, s.FirstSessionCandidates(saturday)[2].Selected)
}

func TestFollowUpAndBackupCandidates(t *testing.T) {
	s := newSession()
	assert.Nil(t, s.FollowUpCandidates())
	assert.Nil(t, s.BackupCandidates())

	_, err := s.SelectFirstSession(monday)
	require.NoError(t, err)
	_, err = s.SelectFollowUpSession(tuesday)
	require.NoError(t, err)

	follow := s.FollowUpCandidates()
	require.Len(t, follow, 21)
	assert.Equal(t, tuesday, follow[0].Date)
	assert.True(t, follow[0].Selected)
	assert.False(t, follow[1].Selected)
	assert.Equal(t, monday.AddDays(21), follow[20].Date)
	assert.Nil(t, s.BackupCandidates())

	s = filledSession(t)
	backups := s.BackupCandidates()
	require.Len(t, backups, 7)
	assert.Equal(t, monday.AddDays(15), backups[0].Date)
	assert.True(t, backups[0].Selected)
	assert.False(t, backups[3].Selected)
}
