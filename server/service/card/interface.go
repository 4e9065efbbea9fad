package card

import (
	"context"
	"time"

	"github.com/memodrops/memodrops/plugin/srs"
	"github.com/memodrops/memodrops/store"
)

// Service schedules enrolled drops with the ease policy and graded reviews.
type Service interface {
	// Enroll returns the user's card for the drop, creating it due now if needed.
	Enroll(ctx context.Context, userID string, dropID int32) (*EnrollResult, error)
	// ListDue returns the user's cards due now, soonest first.
	// A limit of 0 selects DefaultDueLimit.
	ListDue(ctx context.Context, userID string, limit int) ([]*store.SRSCard, error)
	// Review grades a card from 0 to 5 and reschedules it.
	Review(ctx context.Context, input *ReviewInput) (*ReviewResult, error)
}

// Store is the store port the card service needs.
type Store interface {
	GetDrop(ctx context.Context, id int32) (*store.Drop, error)
	CreateSRSCard(ctx context.Context, create *store.SRSCard) (*store.SRSCard, error)
	GetSRSCard(ctx context.Context, find *store.FindSRSCard) (*store.SRSCard, error)
	ListDueSRSCards(ctx context.Context, userID string, now time.Time, limit int) ([]*store.SRSCard, error)
	ApplySRSReview(ctx context.Context, update *store.UpdateSRSCard, review *store.SRSReview) (*store.SRSCard, error)
}

// EnrollResult is the card of an enrollment.
type EnrollResult struct {
	Card    *store.SRSCard `json:"card"`
	Created bool           `json:"created"`
}

// ReviewInput is one graded review.
type ReviewInput struct {
	UserID string `json:"userId"`
	CardID string `json:"cardId"`
	Grade  int    `json:"grade"`
}

// ReviewResult is the card after a review and the scheduling that produced it.
type ReviewResult struct {
	Card         *store.SRSCard   `json:"card"`
	Review       *store.SRSReview `json:"review"`
	Scheduling   srs.Scheduling   `json:"scheduling"`
	NextReviewAt time.Time        `json:"nextReviewAt"`
}
