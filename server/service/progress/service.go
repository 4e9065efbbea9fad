// Package progress reports and resets the topic mastery of a user.
package progress

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/memodrops/memodrops/server/internal/errors"
	"github.com/memodrops/memodrops/server/internal/observability"
	"github.com/memodrops/memodrops/store"
)

// Store is the store port the progress service needs.
type Store interface {
	ListTopicStats(ctx context.Context, find *store.FindTopicStat) ([]*store.TopicStat, error)
	GetTopicStat(ctx context.Context, userID, topicCode string) (*store.TopicStat, error)
	DeleteTopicStats(ctx context.Context, userID string) (int64, error)
}

// Stats is the progress of a user over every studied topic.
type Stats struct {
	UserID  string        `json:"userId"`
	Summary Summary       `json:"summary"`
	Topics  []*TopicStats `json:"topics"`
}

// Summary aggregates the progress of all studied topics.
type Summary struct {
	TotalTopics         int     `json:"totalTopics"`
	TopicsWithDueReview int     `json:"topicsWithDueReview"`
	TotalAttempts       int     `json:"totalAttempts"`
	TotalCorrect        int     `json:"totalCorrect"`
	TotalWrong          int     `json:"totalWrong"`
	Accuracy            float64 `json:"accuracy"`
	MaxStreak           int     `json:"maxStreak"`
}

// TopicStats is the progress of a user on one topic.
type TopicStats struct {
	TopicCode     string     `json:"topicCode"`
	CorrectCount  int        `json:"correctCount"`
	WrongCount    int        `json:"wrongCount"`
	TotalAttempts int        `json:"totalAttempts"`
	Accuracy      float64    `json:"accuracy"`
	Streak        int        `json:"streak"`
	LastSeenAt    *time.Time `json:"lastSeenAt,omitempty"`
	NextDueAt     *time.Time `json:"nextDueAt,omitempty"`
	IsDue         bool       `json:"isDue"`
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new progress service.
func NewService(st Store) *Service {
	return &Service{
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// GetStats returns the progress of the user, topics ordered by topic code.
func (s *Service) GetStats(ctx context.Context, userID string) (*Stats, error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}
	list, err := s.store.ListTopicStats(ctx, &store.FindTopicStat{UserID: &userID})
	if err != nil {
		return nil, errors.FromStorage(err, "failed to list topic progress")
	}

	now := s.now().Unix()
	stats := &Stats{UserID: userID, Topics: make([]*TopicStats, 0, len(list))}
	for _, stat := range list {
		topic := newTopicStats(stat, now)
		stats.Topics = append(stats.Topics, topic)
		stats.Summary.TotalCorrect += topic.CorrectCount
		stats.Summary.TotalWrong += topic.WrongCount
		stats.Summary.MaxStreak = max(stats.Summary.MaxStreak, topic.Streak)
		if topic.IsDue {
			stats.Summary.TopicsWithDueReview++
		}
	}
	stats.Summary.TotalTopics = len(stats.Topics)
	stats.Summary.TotalAttempts = stats.Summary.TotalCorrect + stats.Summary.TotalWrong
	stats.Summary.Accuracy = accuracy(stats.Summary.TotalCorrect, stats.Summary.TotalAttempts)
	return stats, nil
}

// GetTopicStats returns the progress of the user on one topic, or nil if the
// user never studied it.
func (s *Service) GetTopicStats(ctx context.Context, userID, topicCode string) (*TopicStats, error) {
	if userID == "" || topicCode == "" {
		return nil, errors.InvalidArgument("user id and topic code are required")
	}
	stat, err := s.store.GetTopicStat(ctx, userID, topicCode)
	if err != nil {
		return nil, errors.FromStorage(err, "failed to get topic progress")
	}
	if stat == nil {
		return nil, nil
	}
	return newTopicStats(stat, s.now().Unix()), nil
}

// Reset deletes all topic progress of the user and returns how many topics were reset.
func (s *Service) Reset(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.InvalidArgument("user id is required")
	}
	reqCtx := observability.FromContextOrNew(ctx, s.logger, "progress.reset", userID)
	deleted, err := s.store.DeleteTopicStats(ctx, userID)
	if err != nil {
		return 0, errors.FromStorage(err, "failed to reset progress")
	}
	reqCtx.Info("progress reset", slog.Int64("deleted_topics", deleted))
	return deleted, nil
}

func newTopicStats(stat *store.TopicStat, now int64) *TopicStats {
	topic := &TopicStats{
		TopicCode:     stat.TopicCode,
		CorrectCount:  int(stat.CorrectCount),
		WrongCount:    int(stat.WrongCount),
		TotalAttempts: int(stat.CorrectCount + stat.WrongCount),
		Streak:        int(stat.Streak),
		IsDue:         stat.IsDueAt(now),
	}
	topic.Accuracy = accuracy(topic.CorrectCount, topic.TotalAttempts)
	if stat.LastSeenTs != nil {
		t := time.Unix(*stat.LastSeenTs, 0).UTC()
		topic.LastSeenAt = &t
	}
	if stat.NextDueTs != nil {
		t := time.Unix(*stat.NextDueTs, 0).UTC()
		topic.NextDueAt = &t
	}
	return topic
}

// accuracy returns correct/attempts as a percentage rounded to two decimals.
func accuracy(correct, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(attempts)*100*100) / 100
}
