// Package plan assembles daily study plans from due topics and never studied topics.
package plan

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memodrops/memodrops/internal/profile"
	"github.com/memodrops/memodrops/server/internal/errors"
	"github.com/memodrops/memodrops/server/internal/observability"
	"github.com/memodrops/memodrops/store"
)

const operationDailyPlan = "plan.daily"

// Config tunes plan generation.
type Config struct {
	// DefaultLimit is used when the caller passes a limit of 0.
	DefaultLimit int
	// LookupConcurrency bounds the concurrent per-topic drop lookups.
	LookupConcurrency int
}

type service struct {
	store   Store
	config  Config
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a new plan service.
func NewService(st Store, config Config) Service {
	if config.DefaultLimit <= 0 || config.DefaultLimit > profile.MaxDailyPlanLimit {
		config.DefaultLimit = profile.DefaultDailyPlanLimit
	}
	if config.LookupConcurrency <= 0 {
		config.LookupConcurrency = 1
	}
	return &service{
		store:   st,
		config:  config,
		logger:  slog.Default(),
		metrics: observability.GlobalMetrics(),
		now:     time.Now,
	}
}

func (s *service) GenerateDailyPlan(ctx context.Context, userID string, limit int) (*DailyPlan, error) {
	reqCtx := observability.FromContextOrNew(ctx, s.logger, operationDailyPlan, userID)
	s.metrics.RecordRequest(operationDailyPlan)
	defer func() {
		s.metrics.RecordDuration(operationDailyPlan, reqCtx.Duration())
	}()

	plan, err := s.generate(ctx, reqCtx, userID, limit)
	if err != nil {
		s.metrics.RecordFailure(operationDailyPlan)
		reqCtx.Error("failed to generate daily plan", err,
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err, errors.ErrCodeStorageUnavailable))))
		return nil, err
	}

	reviews := plan.ReviewCount()
	s.metrics.RecordPlan(reviews, len(plan.Items)-reviews)
	reqCtx.Debug("daily plan generated",
		slog.Int("limit", limit),
		slog.Int("review_items", reviews),
		slog.Int("new_items", len(plan.Items)-reviews),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return plan, nil
}

func (s *service) generate(ctx context.Context, reqCtx *observability.RequestContext, userID string, limit int) (*DailyPlan, error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}
	if limit == 0 {
		limit = s.config.DefaultLimit
	}
	if limit < 1 || limit > profile.MaxDailyPlanLimit {
		return nil, errors.InvalidArgumentf("limit must be between 1 and %d, got %d", profile.MaxDailyPlanLimit, limit)
	}

	now := s.now()
	plan := &DailyPlan{
		UserID:      userID,
		GeneratedAt: now.UTC(),
		Items:       make([]*Item, 0, limit),
	}

	dueStats, err := s.store.ListDueTopicStats(ctx, userID, now, limit)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to list due topics")
	}

	reviewDrops, err := s.lookupDueDrops(ctx, dueStats)
	if err != nil {
		return nil, err
	}
	for i, drop := range reviewDrops {
		if drop == nil {
			s.metrics.RecordMissingItem()
			reqCtx.Warn("due topic has no drop, skipping",
				slog.String(observability.LogFieldTopicCode, dueStats[i].TopicCode))
			continue
		}
		if len(plan.Items) == limit {
			break
		}
		plan.Items = append(plan.Items, newItem(drop, true))
	}

	remaining := limit - len(plan.Items)
	if remaining == 0 {
		return plan, nil
	}
	newDrops, err := s.store.ListNewTopicDrops(ctx, userID, remaining)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to list new topics")
	}
	for _, drop := range newDrops {
		if len(plan.Items) == limit {
			break
		}
		plan.Items = append(plan.Items, newItem(drop, false))
	}
	return plan, nil
}

// lookupDueDrops fetches one drop per due topic concurrently. The result is
// aligned with stats; a nil entry means the topic has no drop.
func (s *service) lookupDueDrops(ctx context.Context, stats []*store.TopicStat) ([]*store.Drop, error) {
	drops := make([]*store.Drop, len(stats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.LookupConcurrency)
	for i, stat := range stats {
		g.Go(func() error {
			drop, err := s.store.GetRandomDropByTopic(gctx, stat.TopicCode)
			if err != nil {
				return errors.FromStorage(err, "failed to look up drop for topic "+stat.TopicCode)
			}
			drops[i] = drop
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return drops, nil
}
