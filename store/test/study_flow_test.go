package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodrops/memodrops/internal/profile"
	"github.com/memodrops/memodrops/server/service/learn"
	"github.com/memodrops/memodrops/server/service/plan"
	"github.com/memodrops/memodrops/store"
)

func findPlanItem(dailyPlan *plan.DailyPlan, topicCode string) *plan.Item {
	for _, item := range dailyPlan.Items {
		if item.TopicCode == topicCode {
			return item
		}
	}
	return nil
}

func TestLearnLogMovesTopicFromNewToReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	topic := uniqueName("AAA")

	drop, err := ts.CreateDrop(ctx, &store.Drop{TopicCode: topic, DropText: `{"question":"q"}`})
	require.NoError(t, err)

	planner := plan.NewService(ts, plan.Config{DefaultLimit: profile.DefaultDailyPlanLimit, LookupConcurrency: 4})
	learner := learn.NewService(ts)

	// Never studied: offered as a new topic.
	dailyPlan, err := planner.GenerateDailyPlan(ctx, user, profile.MaxDailyPlanLimit)
	require.NoError(t, err)
	item := findPlanItem(dailyPlan, topic)
	require.NotNil(t, item)
	assert.False(t, item.IsReview)
	assert.Equal(t, drop.ID, item.DropID)

	result, err := learner.Log(ctx, &learn.LogInput{UserID: user, DropID: drop.ID, WasCorrect: false})
	require.NoError(t, err)
	assert.Equal(t, learn.LogStatusCreated, result.Status)

	stat, err := ts.GetTopicStat(ctx, user, topic)
	require.NoError(t, err)
	require.NotNil(t, stat)
	require.NotNil(t, stat.NextDueTs)
	assert.Equal(t, *stat.NextDueTs, result.NextDueAt.Unix())
	assert.Equal(t, int32(1), stat.WrongCount)

	// Studied but not due yet: neither new nor review.
	dailyPlan, err = planner.GenerateDailyPlan(ctx, user, profile.MaxDailyPlanLimit)
	require.NoError(t, err)
	assert.Nil(t, findPlanItem(dailyPlan, topic))

	pastDue := time.Now().Add(-time.Hour).Unix()
	_, err = ts.UpdateTopicStat(ctx, &store.UpdateTopicStat{
		UserID:           user,
		TopicCode:        topic,
		ExpectedRevision: stat.Revision,
		CorrectCount:     stat.CorrectCount,
		WrongCount:       stat.WrongCount,
		Streak:           stat.Streak,
		LastSeenTs:       stat.LastSeenTs,
		NextDueTs:        &pastDue,
	})
	require.NoError(t, err)

	// Due again: served first, as a review.
	dailyPlan, err = planner.GenerateDailyPlan(ctx, user, profile.MaxDailyPlanLimit)
	require.NoError(t, err)
	require.NotEmpty(t, dailyPlan.Items)
	assert.Equal(t, topic, dailyPlan.Items[0].TopicCode)
	assert.True(t, dailyPlan.Items[0].IsReview)
	assert.Equal(t, 1, dailyPlan.ReviewCount())
	assert.Equal(t, 1, countTopic(dailyPlan, topic))

	// A correct answer schedules the topic a day out and the streak starts over at 1.
	result, err = learner.Log(ctx, &learn.LogInput{UserID: user, DropID: drop.ID, WasCorrect: true})
	require.NoError(t, err)
	assert.Equal(t, learn.LogStatusUpdated, result.Status)
	assert.Equal(t, 1, result.Streak)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 1), result.NextDueAt, 5*time.Second)
}

func countTopic(dailyPlan *plan.DailyPlan, topicCode string) int {
	count := 0
	for _, item := range dailyPlan.Items {
		if item.TopicCode == topicCode {
			count++
		}
	}
	return count
}
