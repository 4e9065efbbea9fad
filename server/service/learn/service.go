// Package learn records answers against topic mastery using the streak policy.
package learn

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
	operationLog = "learn.log"

	// MaxWriteAttempts bounds the read-compute-write cycles of one answer when
	// another writer keeps changing the same topic progress.
	MaxWriteAttempts = 5
)

type service struct {
	store   Store
	locks   *util.KeyMutex
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a new learn service.
func NewService(st Store) Service {
	return &service{
		store:   st,
		locks:   util.NewKeyMutex(),
		logger:  slog.Default(),
		metrics: observability.GlobalMetrics(),
		now:     time.Now,
	}
}

func (s *service) Log(ctx context.Context, input *LogInput) (*LogResult, error) {
	if input == nil {
		return nil, errors.InvalidArgument("learn log input is required")
	}
	reqCtx := observability.FromContextOrNew(ctx, s.logger, operationLog, input.UserID)
	s.metrics.RecordRequest(operationLog)
	defer func() {
		s.metrics.RecordDuration(operationLog, reqCtx.Duration())
	}()

	result, err := s.log(ctx, reqCtx, input)
	if err != nil {
		s.metrics.RecordFailure(operationLog)
		reqCtx.Warn("learn log failed",
			slog.Int(observability.LogFieldDropID, int(input.DropID)),
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err, errors.ErrCodeStorageUnavailable))),
			slog.String("error", err.Error()))
		return nil, err
	}
	reqCtx.Debug("answer logged",
		slog.String(observability.LogFieldTopicCode, result.TopicCode),
		slog.Bool("was_correct", result.WasCorrect),
		slog.Int("streak", result.Streak),
		slog.String("status", string(result.Status)))
	return result, nil
}

func (s *service) log(ctx context.Context, reqCtx *observability.RequestContext, input *LogInput) (*LogResult, error) {
	if input.UserID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}
	if input.DropID <= 0 {
		return nil, errors.InvalidArgumentf("drop id must be positive, got %d", input.DropID)
	}

	drop, err := s.store.GetDrop(ctx, input.DropID)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get drop")
	}
	if drop == nil {
		return nil, errors.NotFound("drop not found").WithContext("drop_id", input.DropID)
	}

	// Answers of one process for the same topic queue up here; the revision
	// check below covers writers in other processes.
	unlock := s.locks.Lock(input.UserID + "\x00" + drop.TopicCode)
	defer unlock()

	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		result, err := s.apply(ctx, input, drop.TopicCode)
		if err == nil {
			return result, nil
		}
		if !stderrors.Is(err, store.ErrConflict) {
			return nil, err
		}
		s.metrics.RecordConflict()
		reqCtx.Debug("topic progress changed concurrently, retrying",
			slog.String(observability.LogFieldTopicCode, drop.TopicCode),
			slog.Int(observability.LogFieldAttempt, attempt))
	}
	return nil, errors.Conflict("topic progress kept changing", store.ErrConflict).
		WithContext("topic_code", drop.TopicCode)
}

// apply runs one read-compute-write cycle. It returns store.ErrConflict when
// the conditional write lost.
func (s *service) apply(ctx context.Context, input *LogInput, topicCode string) (*LogResult, error) {
	current, err := s.store.GetTopicStat(ctx, input.UserID, topicCode)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get topic progress")
	}

	prev := srs.StreakState{}
	if current != nil {
		prev = StreakStateFromStat(current)
	}
	next, err := srs.ApplyAnswer(prev, input.WasCorrect, s.now())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidArgument, "stored topic progress is invalid")
	}

	lastSeenTs := next.LastSeenAt.Unix()
	nextDueTs := next.NextDueAt.Unix()
	status := LogStatusCreated
	if current == nil {
		_, err = s.store.CreateTopicStat(ctx, &store.TopicStat{
			UserID:       input.UserID,
			TopicCode:    topicCode,
			CorrectCount: int32(next.CorrectCount),
			WrongCount:   int32(next.WrongCount),
			Streak:       int32(next.Streak),
			LastSeenTs:   &lastSeenTs,
			NextDueTs:    &nextDueTs,
		})
	} else {
		status = LogStatusUpdated
		_, err = s.store.UpdateTopicStat(ctx, &store.UpdateTopicStat{
			UserID:           input.UserID,
			TopicCode:        topicCode,
			ExpectedRevision: current.Revision,
			CorrectCount:     int32(next.CorrectCount),
			WrongCount:       int32(next.WrongCount),
			Streak:           int32(next.Streak),
			LastSeenTs:       &lastSeenTs,
			NextDueTs:        &nextDueTs,
		})
	}
	if err != nil {
		if stderrors.Is(err, store.ErrConflict) {
			return nil, store.ErrConflict
		}
		return nil, errors.FromStorage(err, "failed to save topic progress")
	}

	return &LogResult{
		Status:       status,
		TopicCode:    topicCode,
		WasCorrect:   input.WasCorrect,
		Streak:       next.Streak,
		CorrectCount: next.CorrectCount,
		WrongCount:   next.WrongCount,
		NextDueAt:    time.Unix(nextDueTs, 0).UTC(),
	}, nil
}

// StreakStateFromStat converts stored topic progress to the streak policy state.
func StreakStateFromStat(stat *store.TopicStat) srs.StreakState {
	state := srs.StreakState{
		Streak:       int(stat.Streak),
		CorrectCount: int(stat.CorrectCount),
		WrongCount:   int(stat.WrongCount),
	}
	if stat.LastSeenTs != nil {
		t := time.Unix(*stat.LastSeenTs, 0).UTC()
		state.LastSeenAt = &t
	}
	if stat.NextDueTs != nil {
		t := time.Unix(*stat.NextDueTs, 0).UTC()
		state.NextDueAt = &t
	}
	return state
}
