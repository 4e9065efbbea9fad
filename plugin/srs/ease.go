package srs

import (
	"fmt"
	"math"
)

const (
	// DefaultEaseFactor is the ease factor of a newly enrolled card.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor applied after every ease update.
	MinEaseFactor = 1.3
	// DefaultIntervalDays is the interval of a newly enrolled card.
	DefaultIntervalDays = 1

	// MinGrade and MaxGrade bound the review grade.
	MinGrade = 0
	MaxGrade = 5
	// PassingGrade is the lowest grade that counts as a successful recall.
	PassingGrade = 3

	secondIntervalDays = 6
)

// EaseState is the scheduling state of a card under the ease policy.
type EaseState struct {
	IntervalDays int     `json:"intervalDays"`
	EaseFactor   float64 `json:"easeFactor"`
	Repetition   int     `json:"repetition"`
}

// NewEaseState returns the state of a card that has never been reviewed.
func NewEaseState() EaseState {
	return EaseState{
		IntervalDays: DefaultIntervalDays,
		EaseFactor:   DefaultEaseFactor,
		Repetition:   0,
	}
}

// Validate reports whether the state satisfies the policy preconditions.
func (s EaseState) Validate() error {
	if s.IntervalDays < 1 {
		return fmt.Errorf("%w: interval must be at least 1 day, got %d", ErrInvalidArgument, s.IntervalDays)
	}
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor {
		return fmt.Errorf("%w: ease factor must be at least %.1f, got %v", ErrInvalidArgument, MinEaseFactor, s.EaseFactor)
	}
	if s.Repetition < 0 {
		return fmt.Errorf("%w: repetition must not be negative, got %d", ErrInvalidArgument, s.Repetition)
	}
	return nil
}

// ValidateGrade reports whether grade is within [MinGrade, MaxGrade].
func ValidateGrade(grade int) error {
	if grade < MinGrade || grade > MaxGrade {
		return fmt.Errorf("%w: grade must be between %d and %d, got %d", ErrInvalidArgument, MinGrade, MaxGrade, grade)
	}
	return nil
}

// Scheduling is the outcome of one graded review under the ease policy.
type Scheduling struct {
	NextInterval   int     `json:"nextInterval"`
	NextEase       float64 `json:"nextEase"`
	NextRepetition int     `json:"nextRepetition"`
}

// State returns the scheduling outcome as the card's next state.
func (s Scheduling) State() EaseState {
	return EaseState{
		IntervalDays: s.NextInterval,
		EaseFactor:   s.NextEase,
		Repetition:   s.NextRepetition,
	}
}

// ComputeNextScheduling computes the next interval, ease and repetition count
// for a card reviewed with the given grade.
//
// A grade below PassingGrade resets the repetition count and the interval to
// one day and leaves the ease untouched. A passing grade grows the interval
// (1 day, then 6 days, then the previous interval times the current ease) and
// adjusts the ease, which never drops below MinEaseFactor.
func ComputeNextScheduling(currentInterval int, currentEase float64, currentRepetition int, grade int) (Scheduling, error) {
	current := EaseState{
		IntervalDays: currentInterval,
		EaseFactor:   currentEase,
		Repetition:   currentRepetition,
	}
	if err := current.Validate(); err != nil {
		return Scheduling{}, err
	}
	if err := ValidateGrade(grade); err != nil {
		return Scheduling{}, err
	}

	if grade < PassingGrade {
		return Scheduling{
			NextInterval:   1,
			NextEase:       currentEase,
			NextRepetition: 0,
		}, nil
	}

	var interval int
	switch currentRepetition {
	case 0:
		interval = 1
	case 1:
		interval = secondIntervalDays
	default:
		interval = int(math.Round(float64(currentInterval) * currentEase))
	}

	return Scheduling{
		NextInterval:   interval,
		NextEase:       nextEase(currentEase, grade),
		NextRepetition: currentRepetition + 1,
	}, nil
}

// nextEase applies EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)) with the floor.
func nextEase(ease float64, grade int) float64 {
	q := float64(MaxGrade - grade)
	ease += 0.1 - q*(0.08+q*0.02)
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}
	return ease
}
