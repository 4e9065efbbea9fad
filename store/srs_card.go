package store

import (
	"context"
	"time"
)

// CardStatus is the lifecycle state of an SRS card.
type CardStatus string

const (
	CardStatusLearning  CardStatus = "learning"
	CardStatusReview    CardStatus = "review"
	CardStatusSuspended CardStatus = "suspended"
)

// SRSCard is a drop a user enrolled for graded review.
type SRSCard struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	DropID       int32      `json:"dropId"`
	Status       CardStatus `json:"status"`
	IntervalDays int32      `json:"intervalDays"`
	EaseFactor   float64    `json:"easeFactor"`
	Repetition   int32      `json:"repetition"`
	NextReviewTs int64      `json:"nextReviewTs"`
	Revision     int64      `json:"revision"`
	CreatedTs    int64      `json:"createdTs"`
	UpdatedTs    int64      `json:"updatedTs"`
}

// FindSRSCard is the find condition for cards. Results are ordered by next_review_ts.
type FindSRSCard struct {
	ID     *string
	UserID *string
	DropID *int32
	// DueBefore keeps cards with next_review_ts <= DueBefore.
	DueBefore *int64
	Limit     *int
}

// UpdateSRSCard replaces the scheduling of a card if its revision is still ExpectedRevision.
type UpdateSRSCard struct {
	ID               string
	ExpectedRevision int64

	Status       CardStatus
	IntervalDays int32
	EaseFactor   float64
	Repetition   int32
	NextReviewTs int64
	UpdatedTs    int64
}

// SRSReview is one graded review of a card. Reviews are never updated.
type SRSReview struct {
	ID         int32  `json:"id"`
	CardID     string `json:"cardId"`
	UserID     string `json:"userId"`
	Grade      int32  `json:"grade"`
	ReviewedTs int64  `json:"reviewedTs"`
}

// FindSRSReview is the find condition for reviews. Results are ordered newest first.
type FindSRSReview struct {
	CardID *string
	UserID *string
	Limit  *int
}

// CreateSRSCard creates a card. It returns ErrConflict if the user already enrolled the drop.
func (s *Store) CreateSRSCard(ctx context.Context, create *SRSCard) (*SRSCard, error) {
	return s.driver.CreateSRSCard(ctx, create)
}

func (s *Store) ListSRSCards(ctx context.Context, find *FindSRSCard) ([]*SRSCard, error) {
	return s.driver.ListSRSCards(ctx, find)
}

// GetSRSCard returns the first card matching find, or nil.
func (s *Store) GetSRSCard(ctx context.Context, find *FindSRSCard) (*SRSCard, error) {
	list, err := s.driver.ListSRSCards(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListDueSRSCards returns at most limit cards of the user due at now, soonest due first.
func (s *Store) ListDueSRSCards(ctx context.Context, userID string, now time.Time, limit int) ([]*SRSCard, error) {
	dueBefore := now.Unix()
	return s.driver.ListSRSCards(ctx, &FindSRSCard{
		UserID:    &userID,
		DueBefore: &dueBefore,
		Limit:     &limit,
	})
}

// ApplySRSReview records a review and the card's new scheduling atomically.
// It returns ErrConflict, and writes nothing, if the card changed since it was read.
func (s *Store) ApplySRSReview(ctx context.Context, update *UpdateSRSCard, review *SRSReview) (*SRSCard, error) {
	return s.driver.ApplySRSReview(ctx, update, review)
}

func (s *Store) ListSRSReviews(ctx context.Context, find *FindSRSReview) ([]*SRSReview, error) {
	return s.driver.ListSRSReviews(ctx, find)
}
