package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodrops/memodrops/store"
)

func TestTopicStatStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	now := time.Now().Unix()

	missing, err := ts.GetTopicStat(ctx, user, "NONE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := ts.CreateTopicStat(ctx, &store.TopicStat{
		UserID:       user,
		TopicCode:    "T1",
		CorrectCount: 1,
		Streak:       1,
		LastSeenTs:   ptr(now),
		NextDueTs:    ptr(now + 86400),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Revision)

	_, err = ts.CreateTopicStat(ctx, &store.TopicStat{UserID: user, TopicCode: "T1"})
	require.ErrorIs(t, err, store.ErrConflict)

	updated, err := ts.UpdateTopicStat(ctx, &store.UpdateTopicStat{
		UserID:           user,
		TopicCode:        "T1",
		ExpectedRevision: created.Revision,
		CorrectCount:     2,
		Streak:           2,
		LastSeenTs:       ptr(now),
		NextDueTs:        ptr(now + 2*86400),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), updated.CorrectCount)
	assert.Equal(t, int32(2), updated.Streak)
	assert.Equal(t, created.Revision+1, updated.Revision)
	require.NotNil(t, updated.NextDueTs)
	assert.Equal(t, now+2*86400, *updated.NextDueTs)

	// A stale revision must not overwrite the row.
	_, err = ts.UpdateTopicStat(ctx, &store.UpdateTopicStat{
		UserID:           user,
		TopicCode:        "T1",
		ExpectedRevision: created.Revision,
		WrongCount:       9,
	})
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := ts.GetTopicStat(ctx, user, "T1")
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.WrongCount)
	assert.Equal(t, updated.Revision, got.Revision)
}

func TestListDueTopicStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	now := time.Now()
	base := now.Unix()

	for _, stat := range []*store.TopicStat{
		{UserID: user, TopicCode: "LATE", NextDueTs: ptr(base - 60)},
		{UserID: user, TopicCode: "EARLY", NextDueTs: ptr(base - 3600)},
		{UserID: user, TopicCode: "FUTURE", NextDueTs: ptr(base + 3600)},
		{UserID: user, TopicCode: "UNSCHEDULED"},
		{UserID: uniqueName("other"), TopicCode: "EARLY", NextDueTs: ptr(base - 7200)},
	} {
		_, err := ts.CreateTopicStat(ctx, stat)
		require.NoError(t, err)
	}

	due, err := ts.ListDueTopicStats(ctx, user, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "EARLY", due[0].TopicCode)
	assert.Equal(t, "LATE", due[1].TopicCode)
	assert.True(t, due[0].IsDueAt(base))

	due, err = ts.ListDueTopicStats(ctx, user, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "EARLY", due[0].TopicCode)

	all, err := ts.ListTopicStats(ctx, &store.FindTopicStat{UserID: &user})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "EARLY", all[0].TopicCode)
	assert.Equal(t, "UNSCHEDULED", all[3].TopicCode)
	assert.Nil(t, all[3].NextDueTs)
}

func TestDeleteTopicStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	other := uniqueName("user")

	for _, code := range []string{"A", "B", "C"} {
		_, err := ts.CreateTopicStat(ctx, &store.TopicStat{UserID: user, TopicCode: code})
		require.NoError(t, err)
	}
	_, err := ts.CreateTopicStat(ctx, &store.TopicStat{UserID: other, TopicCode: "A"})
	require.NoError(t, err)

	userIDs, err := ts.ListStudyUserIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, userIDs, user)
	assert.Contains(t, userIDs, other)

	deleted, err := ts.DeleteTopicStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	deleted, err = ts.DeleteTopicStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	remaining, err := ts.GetTopicStat(ctx, other, "A")
	require.NoError(t, err)
	assert.NotNil(t, remaining)

	userIDs, err = ts.ListStudyUserIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, userIDs, user)
}
