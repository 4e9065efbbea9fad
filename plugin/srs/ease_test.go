package srs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEaseState(t *testing.T) {
	state := NewEaseState()
	assert.Equal(t, 1, state.IntervalDays)
	assert.Equal(t, 2.5, state.EaseFactor)
	assert.Equal(t, 0, state.Repetition)
	assert.NoError(t, state.Validate())
}

func TestComputeNextScheduling_FailingGradeResets(t *testing.T) {
	states := []EaseState{
		{IntervalDays: 1, EaseFactor: 2.5, Repetition: 0},
		{IntervalDays: 6, EaseFactor: 2.1, Repetition: 2},
		{IntervalDays: 120, EaseFactor: 1.3, Repetition: 9},
	}
	for _, state := range states {
		for grade := 0; grade < PassingGrade; grade++ {
			got, err := ComputeNextScheduling(state.IntervalDays, state.EaseFactor, state.Repetition, grade)
			require.NoError(t, err)
			assert.Equal(t, 1, got.NextInterval, "grade %d from %+v", grade, state)
			assert.Equal(t, 0, got.NextRepetition, "grade %d from %+v", grade, state)
			assert.Equal(t, state.EaseFactor, got.NextEase, "ease is kept on failure")
		}
	}
}

func TestComputeNextScheduling_FirstAndSecondIntervals(t *testing.T) {
	got, err := ComputeNextScheduling(1, 2.5, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NextInterval)
	assert.Equal(t, 1, got.NextRepetition)

	got, err = ComputeNextScheduling(1, 2.5, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, got.NextInterval)
	assert.Equal(t, 2, got.NextRepetition)

	got, err = ComputeNextScheduling(6, 2.5, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 15, got.NextInterval)
	assert.Equal(t, 3, got.NextRepetition)
}

func TestComputeNextScheduling_EaseAdjustment(t *testing.T) {
	tests := []struct {
		grade int
		want  float64
	}{
		{grade: 5, want: 2.6},
		{grade: 4, want: 2.5},
		{grade: 3, want: 2.36},
	}
	for _, tt := range tests {
		got, err := ComputeNextScheduling(1, 2.5, 0, tt.grade)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got.NextEase, 1e-9, "grade %d", tt.grade)
	}
}

func TestComputeNextScheduling_EaseFloor(t *testing.T) {
	ease := 1.5
	interval, repetition := 1, 0
	for i := 0; i < 10; i++ {
		got, err := ComputeNextScheduling(interval, ease, repetition, 3)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.NextEase, MinEaseFactor)
		interval, ease, repetition = got.NextInterval, got.NextEase, got.NextRepetition
	}
	assert.Equal(t, MinEaseFactor, ease)

	for grade := PassingGrade; grade <= MaxGrade; grade++ {
		got, err := ComputeNextScheduling(10, MinEaseFactor, 3, grade)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.NextEase, MinEaseFactor, "grade %d", grade)
	}
}

func TestComputeNextScheduling_PerfectStreak(t *testing.T) {
	state := NewEaseState()
	var intervals []int
	for i := 0; i < 5; i++ {
		got, err := ComputeNextScheduling(state.IntervalDays, state.EaseFactor, state.Repetition, 5)
		require.NoError(t, err)
		intervals = append(intervals, got.NextInterval)
		state = got.State()
	}
	// The third interval multiplies by the ease in effect before the review (2.7 after two perfect grades).
	assert.Equal(t, []int{1, 6, 16, 45, 131}, intervals)
	assert.Equal(t, 5, state.Repetition)
	assert.InDelta(t, 3.0, state.EaseFactor, 1e-9)
}

func TestComputeNextScheduling_Deterministic(t *testing.T) {
	a, errA := ComputeNextScheduling(15, 2.36, 3, 4)
	b, errB := ComputeNextScheduling(15, 2.36, 3, 4)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestComputeNextScheduling_InvalidArguments(t *testing.T) {
	tests := []struct {
		name       string
		interval   int
		ease       float64
		repetition int
		grade      int
	}{
		{"grade below range", 1, 2.5, 0, -1},
		{"grade above range", 1, 2.5, 0, 6},
		{"zero interval", 0, 2.5, 0, 4},
		{"negative interval", -3, 2.5, 0, 4},
		{"ease below floor", 1, 1.2, 0, 4},
		{"negative ease", 1, -2.5, 0, 4},
		{"negative repetition", 1, 2.5, -1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeNextScheduling(tt.interval, tt.ease, tt.repetition, tt.grade)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}
