package srs

import (
	"fmt"
	"time"
)

// WrongAnswerDelay is how long a topic waits after an incorrect answer.
const WrongAnswerDelay = 6 * time.Hour

// StreakState is the mastery state of a topic under the streak policy.
type StreakState struct {
	Streak       int        `json:"streak"`
	CorrectCount int        `json:"correctCount"`
	WrongCount   int        `json:"wrongCount"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
	NextDueAt    *time.Time `json:"nextDueAt,omitempty"`
}

// Validate reports whether the counters are usable.
func (s StreakState) Validate() error {
	if s.Streak < 0 || s.CorrectCount < 0 || s.WrongCount < 0 {
		return fmt.Errorf("%w: streak and counters must not be negative (streak=%d correct=%d wrong=%d)",
			ErrInvalidArgument, s.Streak, s.CorrectCount, s.WrongCount)
	}
	return nil
}

// ComputeNextDueDate returns when a topic is due again, relative to time.Now.
// See ComputeNextDueDateAt.
func ComputeNextDueDate(streak int, wasCorrect bool) (time.Time, error) {
	return ComputeNextDueDateAt(time.Now(), streak, wasCorrect)
}

// ComputeNextDueDateAt returns when a topic is due again after an answer given at now.
//
// streak is the streak after the answer was applied: callers increment it
// before calling on a correct answer. A correct answer schedules the topic
// 1, 2, 4 or 7 days out for streaks 1, 2, 3 and 4+; a streak of 0 falls back
// to one day. An incorrect answer schedules it WrongAnswerDelay from now.
func ComputeNextDueDateAt(now time.Time, streak int, wasCorrect bool) (time.Time, error) {
	if streak < 0 {
		return time.Time{}, fmt.Errorf("%w: streak must not be negative, got %d", ErrInvalidArgument, streak)
	}
	if !wasCorrect {
		return now.Add(WrongAnswerDelay), nil
	}
	return now.AddDate(0, 0, streakOffsetDays(streak)), nil
}

func streakOffsetDays(streak int) int {
	switch {
	case streak >= 4:
		return 7
	case streak == 3:
		return 4
	case streak == 2:
		return 2
	default:
		return 1
	}
}

// ApplyAnswer returns the state that follows prev after an answer given at now.
// The zero StreakState is the state of a topic that was never studied.
func ApplyAnswer(prev StreakState, wasCorrect bool, now time.Time) (StreakState, error) {
	if err := prev.Validate(); err != nil {
		return StreakState{}, err
	}

	next := prev
	if wasCorrect {
		next.Streak = prev.Streak + 1
		next.CorrectCount = prev.CorrectCount + 1
	} else {
		next.Streak = 0
		next.WrongCount = prev.WrongCount + 1
	}

	due, err := ComputeNextDueDateAt(now, next.Streak, wasCorrect)
	if err != nil {
		return StreakState{}, err
	}
	seen := now
	next.LastSeenAt = &seen
	next.NextDueAt = &due
	return next, nil
}
