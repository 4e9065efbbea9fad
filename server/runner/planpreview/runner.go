// Package planpreview periodically generates the daily plan of every studying
// user and logs what each would get.
package planpreview

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/memodrops/memodrops/server/service/plan"
)

// UserLister lists the users that have study progress.
type UserLister interface {
	ListStudyUserIDs(ctx context.Context) ([]string, error)
}

// Preview is the daily plan outcome of one user.
type Preview struct {
	UserID      string `json:"userId"`
	ReviewItems int    `json:"reviewItems"`
	NewItems    int    `json:"newItems"`
	Error       string `json:"error,omitempty"`
}

// Report is the outcome of one preview pass.
type Report struct {
	StartedAt time.Time  `json:"startedAt"`
	Duration  string     `json:"duration"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Previews  []*Preview `json:"previews"`
}

type Runner struct {
	users    UserLister
	planner  plan.Service
	interval time.Duration
	limiter  *rate.Limiter
	limit    int
}

// NewRunner creates a plan preview runner. plansPerSecond bounds the load a pass
// puts on storage; zero or less disables the bound.
func NewRunner(users UserLister, planner plan.Service, interval time.Duration, plansPerSecond float64, limit int) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if plansPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(plansPerSecond), 1)
	}
	return &Runner{
		users:    users,
		planner:  planner,
		interval: interval,
		limiter:  limiter,
		limit:    limit,
	}
}

// Run previews once on startup, then every interval until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.preview(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.preview(ctx)
		case <-ctx.Done():
			slog.Info("plan preview runner stopped")
			return
		}
	}
}

// RunOnce runs a single preview pass (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	return r.runPass(ctx)
}

func (r *Runner) preview(ctx context.Context) {
	if _, err := r.runPass(ctx); err != nil && ctx.Err() == nil {
		slog.Error("plan preview pass failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) runPass(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Previews: []*Preview{}}

	userIDs, err := r.users.ListStudyUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	for i, userID := range userIDs {
		if err := r.limiter.Wait(ctx); err != nil {
			slog.Info("plan preview cancelled", slog.Int("processed", i), slog.Int("total", len(userIDs)))
			return nil, err
		}

		preview := &Preview{UserID: userID}
		dailyPlan, err := r.planner.GenerateDailyPlan(ctx, userID, r.limit)
		if err != nil {
			// One user's failure does not stop the pass.
			preview.Error = err.Error()
			report.Failed++
			slog.Warn("failed to preview daily plan", slog.String("user_id", userID), slog.String("error", err.Error()))
		} else {
			preview.ReviewItems = dailyPlan.ReviewCount()
			preview.NewItems = len(dailyPlan.Items) - preview.ReviewItems
			report.Succeeded++
		}
		report.Previews = append(report.Previews, preview)
	}

	report.Duration = time.Since(report.StartedAt).String()
	slog.Info("plan preview pass completed",
		slog.Int("users", len(userIDs)),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("duration", report.Duration))
	return report, nil
}
