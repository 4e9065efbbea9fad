package progress

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodrops/memodrops/server/internal/errors"
	"github.com/memodrops/memodrops/store"
)

type MockStoreForProgress struct {
	stats []*store.TopicStat
	err   error
}

func (m *MockStoreForProgress) ListTopicStats(_ context.Context, find *store.FindTopicStat) ([]*store.TopicStat, error) {
	if m.err != nil {
		return nil, m.err
	}
	var list []*store.TopicStat
	for _, stat := range m.stats {
		if find.UserID != nil && stat.UserID != *find.UserID {
			continue
		}
		if find.TopicCode != nil && stat.TopicCode != *find.TopicCode {
			continue
		}
		list = append(list, stat)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TopicCode < list[j].TopicCode })
	return list, nil
}

func (m *MockStoreForProgress) GetTopicStat(ctx context.Context, userID, topicCode string) (*store.TopicStat, error) {
	list, err := m.ListTopicStats(ctx, &store.FindTopicStat{UserID: &userID, TopicCode: &topicCode})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *MockStoreForProgress) DeleteTopicStats(_ context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	kept := m.stats[:0]
	var deleted int64
	for _, stat := range m.stats {
		if stat.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, stat)
	}
	m.stats = kept
	return deleted, nil
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ts(d time.Duration) *int64 {
	v := testNow.Add(d).Unix()
	return &v
}

func newTestService(st Store) *Service {
	svc := NewService(st)
	svc.now = func() time.Time { return testNow }
	return svc
}

func fixture() *MockStoreForProgress {
	return &MockStoreForProgress{stats: []*store.TopicStat{
		{UserID: "u1", TopicCode: "B", CorrectCount: 2, WrongCount: 1, Streak: 2, LastSeenTs: ts(-time.Hour), NextDueTs: ts(-time.Minute)},
		{UserID: "u1", TopicCode: "A", CorrectCount: 5, WrongCount: 0, Streak: 5, LastSeenTs: ts(-time.Hour), NextDueTs: ts(72 * time.Hour)},
		{UserID: "u1", TopicCode: "C", WrongCount: 3},
		{UserID: "u2", TopicCode: "A", CorrectCount: 9},
	}}
}

func TestGetStats(t *testing.T) {
	stats, err := newTestService(fixture()).GetStats(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, Summary{
		TotalTopics:         3,
		TopicsWithDueReview: 1,
		TotalAttempts:       11,
		TotalCorrect:        7,
		TotalWrong:          4,
		Accuracy:            63.64,
		MaxStreak:           5,
	}, stats.Summary)

	require.Len(t, stats.Topics, 3)
	assert.Equal(t, "A", stats.Topics[0].TopicCode)
	assert.InDelta(t, 100.0, stats.Topics[0].Accuracy, 1e-9)
	assert.False(t, stats.Topics[0].IsDue)
	assert.True(t, stats.Topics[1].IsDue)
	assert.InDelta(t, 66.67, stats.Topics[1].Accuracy, 1e-9)
	assert.Nil(t, stats.Topics[2].NextDueAt)
	assert.False(t, stats.Topics[2].IsDue)
}

func TestGetStats_NoProgress(t *testing.T) {
	stats, err := newTestService(&MockStoreForProgress{}).GetStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, stats.Topics)
	assert.Equal(t, Summary{}, stats.Summary)
}

func TestGetTopicStats(t *testing.T) {
	svc := newTestService(fixture())

	topic, err := svc.GetTopicStats(context.Background(), "u1", "B")
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Equal(t, 3, topic.TotalAttempts)
	assert.True(t, topic.IsDue)
	require.NotNil(t, topic.LastSeenAt)
	assert.Equal(t, testNow.Add(-time.Hour), *topic.LastSeenAt)

	topic, err = svc.GetTopicStats(context.Background(), "u1", "Z")
	require.NoError(t, err)
	assert.Nil(t, topic)
}

func TestReset(t *testing.T) {
	mockStore := fixture()
	svc := newTestService(mockStore)

	deleted, err := svc.Reset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	require.Len(t, mockStore.stats, 1)
	assert.Equal(t, "u2", mockStore.stats[0].UserID)

	_, err = svc.Reset(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}

func TestStorageFailure(t *testing.T) {
	svc := newTestService(&MockStoreForProgress{err: fmt.Errorf("no route to host")})
	_, err := svc.GetStats(context.Background(), "u1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageUnavailable))
	_, err = svc.GetTopicStats(context.Background(), "u1", "A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageUnavailable))
	_, err = svc.Reset(context.Background(), "u1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageUnavailable))
}

func TestAccuracyRounding(t *testing.T) {
	assert.Equal(t, 0.0, accuracy(0, 0))
	assert.Equal(t, 33.33, accuracy(1, 3))
	assert.Equal(t, 50.0, accuracy(1, 2))
}
