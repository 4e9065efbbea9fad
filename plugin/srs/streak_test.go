package srs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeNextDueDateAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name       string
		streak     int
		wasCorrect bool
		want       time.Time
	}{
		{"streak 1", 1, true, now.AddDate(0, 0, 1)},
		{"streak 2", 2, true, now.AddDate(0, 0, 2)},
		{"streak 3", 3, true, now.AddDate(0, 0, 4)},
		{"streak 4", 4, true, now.AddDate(0, 0, 7)},
		{"streak 12", 12, true, now.AddDate(0, 0, 7)},
		{"streak 0 falls back to one day", 0, true, now.AddDate(0, 0, 1)},
		{"wrong with streak", 5, false, now.Add(6 * time.Hour)},
		{"wrong without streak", 0, false, now.Add(6 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeNextDueDateAt(now, tt.streak, tt.wasCorrect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeNextDueDate_UsesWallClock(t *testing.T) {
	before := time.Now()
	got, err := ComputeNextDueDate(1, true)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(24*time.Hour), got, 5*time.Second)

	got, err = ComputeNextDueDate(4, true)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(7*24*time.Hour), got, 5*time.Second)

	got, err = ComputeNextDueDate(3, false)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(6*time.Hour), got, 5*time.Second)
}

func TestComputeNextDueDateAt_NegativeStreak(t *testing.T) {
	_, err := ComputeNextDueDateAt(time.Now(), -1, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestApplyAnswer_FirstAnswer(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	correct, err := ApplyAnswer(StreakState{}, true, now)
	require.NoError(t, err)
	assert.Equal(t, 1, correct.Streak)
	assert.Equal(t, 1, correct.CorrectCount)
	assert.Equal(t, 0, correct.WrongCount)
	require.NotNil(t, correct.NextDueAt)
	assert.Equal(t, now.AddDate(0, 0, 1), *correct.NextDueAt)
	require.NotNil(t, correct.LastSeenAt)
	assert.Equal(t, now, *correct.LastSeenAt)

	wrong, err := ApplyAnswer(StreakState{}, false, now)
	require.NoError(t, err)
	assert.Equal(t, 0, wrong.Streak)
	assert.Equal(t, 0, wrong.CorrectCount)
	assert.Equal(t, 1, wrong.WrongCount)
	assert.Equal(t, now.Add(6*time.Hour), *wrong.NextDueAt)
}

func TestApplyAnswer_StreakProgression(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	wantDays := []int{1, 2, 4, 7, 7}

	state := StreakState{}
	for i, days := range wantDays {
		next, err := ApplyAnswer(state, true, now)
		require.NoError(t, err)
		assert.Equal(t, i+1, next.Streak)
		assert.Equal(t, now.AddDate(0, 0, days), *next.NextDueAt, "answer %d", i+1)
		state = next
	}

	lapsed, err := ApplyAnswer(state, false, now)
	require.NoError(t, err)
	assert.Equal(t, 0, lapsed.Streak)
	assert.Equal(t, 5, lapsed.CorrectCount)
	assert.Equal(t, 1, lapsed.WrongCount)
	assert.Equal(t, now.Add(WrongAnswerDelay), *lapsed.NextDueAt)
}

func TestApplyAnswer_RejectsCorruptState(t *testing.T) {
	_, err := ApplyAnswer(StreakState{Streak: -2}, true, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = ApplyAnswer(StreakState{WrongCount: -1}, false, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
