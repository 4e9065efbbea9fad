package store

import (
	"context"
	"time"
)

// TopicStat is the learn-log progress of a user on a topic.
// A missing row means the user never studied the topic.
type TopicStat struct {
	UserID       string
	TopicCode    string
	CorrectCount int32
	WrongCount   int32
	Streak       int32
	LastSeenTs   *int64
	// NextDueTs is nil when the topic was never scheduled.
	NextDueTs *int64
	// Revision increases on every update and guards conditional writes.
	Revision int64
}

// IsDueAt reports whether the topic is scheduled at or before ts.
func (t *TopicStat) IsDueAt(ts int64) bool {
	return t.NextDueTs != nil && *t.NextDueTs <= ts
}

// FindTopicStat is the find condition for topic stats.
// Results are ordered by next_due_ts when DueBefore is set, by topic_code otherwise.
type FindTopicStat struct {
	UserID    *string
	TopicCode *string
	// DueBefore keeps scheduled rows with next_due_ts <= DueBefore.
	DueBefore *int64
	Limit     *int
}

// UpdateTopicStat replaces the counters of a topic stat if its revision is still ExpectedRevision.
type UpdateTopicStat struct {
	UserID           string
	TopicCode        string
	ExpectedRevision int64

	CorrectCount int32
	WrongCount   int32
	Streak       int32
	LastSeenTs   *int64
	NextDueTs    *int64
}

// DeleteTopicStat deletes every topic stat of a user.
type DeleteTopicStat struct {
	UserID string
}

// CreateTopicStat creates a topic stat. It returns ErrConflict if one already exists.
func (s *Store) CreateTopicStat(ctx context.Context, create *TopicStat) (*TopicStat, error) {
	return s.driver.CreateTopicStat(ctx, create)
}

func (s *Store) ListTopicStats(ctx context.Context, find *FindTopicStat) ([]*TopicStat, error) {
	return s.driver.ListTopicStats(ctx, find)
}

// GetTopicStat returns the topic stat of a user, or nil if the user never studied the topic.
func (s *Store) GetTopicStat(ctx context.Context, userID, topicCode string) (*TopicStat, error) {
	list, err := s.driver.ListTopicStats(ctx, &FindTopicStat{
		UserID:    &userID,
		TopicCode: &topicCode,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListDueTopicStats returns at most limit topic stats of the user that are due at now,
// soonest due first.
func (s *Store) ListDueTopicStats(ctx context.Context, userID string, now time.Time, limit int) ([]*TopicStat, error) {
	dueBefore := now.Unix()
	return s.driver.ListTopicStats(ctx, &FindTopicStat{
		UserID:    &userID,
		DueBefore: &dueBefore,
		Limit:     &limit,
	})
}

// UpdateTopicStat applies a conditional update. It returns ErrConflict if the row
// changed or disappeared since it was read.
func (s *Store) UpdateTopicStat(ctx context.Context, update *UpdateTopicStat) (*TopicStat, error) {
	return s.driver.UpdateTopicStat(ctx, update)
}

// DeleteTopicStats removes all progress of a user and returns the number of rows deleted.
func (s *Store) DeleteTopicStats(ctx context.Context, userID string) (int64, error) {
	return s.driver.DeleteTopicStats(ctx, &DeleteTopicStat{UserID: userID})
}

// ListStudyUserIDs returns the users that have progress on at least one topic, sorted.
func (s *Store) ListStudyUserIDs(ctx context.Context) ([]string, error) {
	return s.driver.ListStudyUserIDs(ctx)
}
