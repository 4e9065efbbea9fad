package learn

import (
	"context"
	"time"

	"github.com/memodrops/memodrops/store"
)

// Service records right/wrong answers against topic mastery.
type Service interface {
	// Log applies one answer to the topic of the drop and reschedules the topic
	// with the streak policy. The first answer for a topic creates its progress.
	Log(ctx context.Context, input *LogInput) (*LogResult, error)
}

// Store is the store port the learn service needs.
type Store interface {
	GetDrop(ctx context.Context, id int32) (*store.Drop, error)
	GetTopicStat(ctx context.Context, userID, topicCode string) (*store.TopicStat, error)
	CreateTopicStat(ctx context.Context, create *store.TopicStat) (*store.TopicStat, error)
	UpdateTopicStat(ctx context.Context, update *store.UpdateTopicStat) (*store.TopicStat, error)
}

// LogInput is one answer of a user to a drop.
type LogInput struct {
	UserID     string `json:"userId"`
	DropID     int32  `json:"dropId"`
	WasCorrect bool   `json:"wasCorrect"`
}

// LogStatus tells whether the answer created or updated the topic progress.
type LogStatus string

const (
	LogStatusCreated LogStatus = "created"
	LogStatusUpdated LogStatus = "updated"
)

// LogResult is the topic progress after an answer.
type LogResult struct {
	Status       LogStatus `json:"status"`
	TopicCode    string    `json:"topicCode"`
	WasCorrect   bool      `json:"wasCorrect"`
	Streak       int       `json:"streak"`
	CorrectCount int       `json:"correctCount"`
	WrongCount   int       `json:"wrongCount"`
	NextDueAt    time.Time `json:"nextDueAt"`
}
