// Package card schedules enrolled drops with the ease policy on graded reviews.
package card

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/memodrops/memodrops/internal/util"
	"github.com/memodrops/memodrops/plugin/srs"
	"github.com/memodrops/memodrops/server/internal/errors"
	"github.com/memodrops/memodrops/server/internal/observability"
	"github.com/memodrops/memodrops/store"
)

const (
	// DefaultDueLimit is the number of due cards listed when the caller does not ask for a size.
	DefaultDueLimit = 20
	// MaxDueLimit is the largest due list a caller may ask for.
	MaxDueLimit = 100
	// MaxWriteAttempts bounds the retries of a review that loses to concurrent writers.
	MaxWriteAttempts = 5

	operationEnroll = "card.enroll"
	operationReview = "card.review"
	operationDue    = "card.due"
)

type service struct {
	store   Store
	locks   *util.KeyMutex
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a new card service.
func NewService(st Store) Service {
	return &service{
		store:   st,
		locks:   util.NewKeyMutex(),
		logger:  slog.Default(),
		metrics: observability.GlobalMetrics(),
		now:     time.Now,
	}
}

func (s *service) Enroll(ctx context.Context, userID string, dropID int32) (*EnrollResult, error) {
	reqCtx := observability.FromContextOrNew(ctx, s.logger, operationEnroll, userID)
	s.metrics.RecordRequest(operationEnroll)
	defer func() {
		s.metrics.RecordDuration(operationEnroll, reqCtx.Duration())
	}()

	result, err := s.enroll(ctx, userID, dropID)
	if err != nil {
		s.metrics.RecordFailure(operationEnroll)
		return nil, err
	}
	reqCtx.Debug("card enrolled",
		slog.Int(observability.LogFieldDropID, int(dropID)),
		slog.Bool("created", result.Created))
	return result, nil
}

func (s *service) enroll(ctx context.Context, userID string, dropID int32) (*EnrollResult, error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}
	if dropID <= 0 {
		return nil, errors.InvalidArgumentf("drop id must be positive, got %d", dropID)
	}

	drop, err := s.store.GetDrop(ctx, dropID)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get drop")
	}
	if drop == nil {
		return nil, errors.NotFound("drop not found").WithContext("drop_id", dropID)
	}

	existing, err := s.store.GetSRSCard(ctx, &store.FindSRSCard{UserID: &userID, DropID: &dropID})
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get card")
	}
	if existing != nil {
		return &EnrollResult{Card: existing}, nil
	}

	state := srs.NewEaseState()
	now := s.now().Unix()
	created, err := s.store.CreateSRSCard(ctx, &store.SRSCard{
		UserID:       userID,
		DropID:       dropID,
		Status:       store.CardStatusLearning,
		IntervalDays: int32(state.IntervalDays),
		EaseFactor:   state.EaseFactor,
		Repetition:   int32(state.Repetition),
		NextReviewTs: now,
		CreatedTs:    now,
		UpdatedTs:    now,
	})
	if stderrors.Is(err, store.ErrConflict) {
		// A concurrent enrollment won; hand back its card.
		existing, err = s.store.GetSRSCard(ctx, &store.FindSRSCard{UserID: &userID, DropID: &dropID})
		if err != nil {
			return nil, errors.FromStorage(err, "failed to get card")
		}
		if existing == nil {
			return nil, errors.Conflict("card enrollment raced with a delete", store.ErrConflict)
		}
		return &EnrollResult{Card: existing}, nil
	}
	if err != nil {
		return nil, errors.FromStorage(err, "failed to create card")
	}
	return &EnrollResult{Card: created, Created: true}, nil
}

func (s *service) ListDue(ctx context.Context, userID string, limit int) ([]*store.SRSCard, error) {
	s.metrics.RecordRequest(operationDue)
	if userID == "" {
		s.metrics.RecordFailure(operationDue)
		return nil, errors.InvalidArgument("user id is required")
	}
	if limit == 0 {
		limit = DefaultDueLimit
	}
	if limit < 1 || limit > MaxDueLimit {
		s.metrics.RecordFailure(operationDue)
		return nil, errors.InvalidArgumentf("limit must be between 1 and %d, got %d", MaxDueLimit, limit)
	}
	cards, err := s.store.ListDueSRSCards(ctx, userID, s.now(), limit)
	if err != nil {
		s.metrics.RecordFailure(operationDue)
		return nil, errors.FromStorage(err, "failed to list due cards")
	}
	return cards, nil
}

func (s *service) Review(ctx context.Context, input *ReviewInput) (*ReviewResult, error) {
	if input == nil {
		return nil, errors.InvalidArgument("review input is required")
	}
	reqCtx := observability.FromContextOrNew(ctx, s.logger, operationReview, input.UserID)
	s.metrics.RecordRequest(operationReview)
	defer func() {
		s.metrics.RecordDuration(operationReview, reqCtx.Duration())
	}()

	result, err := s.review(ctx, reqCtx, input)
	if err != nil {
		s.metrics.RecordFailure(operationReview)
		reqCtx.Warn("card review failed",
			slog.String("card_id", input.CardID),
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err, errors.ErrCodeStorageUnavailable))),
			slog.String("error", err.Error()))
		return nil, err
	}
	reqCtx.Debug("card reviewed",
		slog.String("card_id", result.Card.ID),
		slog.Int("grade", input.Grade),
		slog.Int("interval_days", result.Scheduling.NextInterval))
	return result, nil
}

func (s *service) review(ctx context.Context, reqCtx *observability.RequestContext, input *ReviewInput) (*ReviewResult, error) {
	if input.UserID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}
	if input.CardID == "" {
		return nil, errors.InvalidArgument("card id is required")
	}
	if err := srs.ValidateGrade(input.Grade); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidArgument, "invalid grade")
	}

	unlock := s.locks.Lock(input.CardID)
	defer unlock()

	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		result, err := s.applyReview(ctx, input)
		if err == nil {
			return result, nil
		}
		if !stderrors.Is(err, store.ErrConflict) {
			return nil, err
		}
		s.metrics.RecordConflict()
		reqCtx.Debug("card changed concurrently, retrying",
			slog.String("card_id", input.CardID),
			slog.Int(observability.LogFieldAttempt, attempt))
	}
	return nil, errors.Conflict("card kept changing", store.ErrConflict).WithContext("card_id", input.CardID)
}

// applyReview runs one read-compute-write cycle. It returns store.ErrConflict
// when the conditional write lost.
func (s *service) applyReview(ctx context.Context, input *ReviewInput) (*ReviewResult, error) {
	card, err := s.store.GetSRSCard(ctx, &store.FindSRSCard{ID: &input.CardID})
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get card")
	}
	if card == nil || card.UserID != input.UserID {
		return nil, errors.NotFound("card not found").WithContext("card_id", input.CardID)
	}

	scheduling, err := srs.ComputeNextScheduling(int(card.IntervalDays), card.EaseFactor, int(card.Repetition), input.Grade)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidArgument, "stored card state is invalid")
	}

	now := s.now()
	nextReviewAt := now.AddDate(0, 0, scheduling.NextInterval)
	review := &store.SRSReview{
		CardID:     card.ID,
		UserID:     card.UserID,
		Grade:      int32(input.Grade),
		ReviewedTs: now.Unix(),
	}
	updated, err := s.store.ApplySRSReview(ctx, &store.UpdateSRSCard{
		ID:               card.ID,
		ExpectedRevision: card.Revision,
		Status:           store.CardStatusReview,
		IntervalDays:     int32(scheduling.NextInterval),
		EaseFactor:       scheduling.NextEase,
		Repetition:       int32(scheduling.NextRepetition),
		NextReviewTs:     nextReviewAt.Unix(),
		UpdatedTs:        now.Unix(),
	}, review)
	if err != nil {
		if stderrors.Is(err, store.ErrConflict) {
			return nil, store.ErrConflict
		}
		return nil, errors.FromStorage(err, "failed to save review")
	}

	return &ReviewResult{
		Card:         updated,
		Review:       review,
		Scheduling:   scheduling,
		NextReviewAt: nextReviewAt.UTC(),
	}, nil
}
