package plan

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/memodrops/memodrops/server/internal/observability"
	"github.com/memodrops/memodrops/store"
)

// Service builds the daily study plan of a user.
type Service interface {
	// GenerateDailyPlan returns at most limit drops: one per due topic in due order,
	// then one per never studied topic in topic code order.
	// A limit of 0 selects the configured default; limits outside [1, 100] are rejected.
	GenerateDailyPlan(ctx context.Context, userID string, limit int) (*DailyPlan, error)
}

// Store is the read port the plan service needs.
type Store interface {
	ListDueTopicStats(ctx context.Context, userID string, now time.Time, limit int) ([]*store.TopicStat, error)
	GetRandomDropByTopic(ctx context.Context, topicCode string) (*store.Drop, error)
	ListNewTopicDrops(ctx context.Context, userID string, limit int) ([]*store.Drop, error)
}

// DailyPlan is the ordered list of drops a user studies today.
type DailyPlan struct {
	UserID      string    `json:"userId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Items       []*Item   `json:"items"`
}

// ReviewCount returns the number of items selected because their topic was due.
func (p *DailyPlan) ReviewCount() int {
	count := 0
	for _, item := range p.Items {
		if item.IsReview {
			count++
		}
	}
	return count
}

// Item is one drop of a daily plan.
type Item struct {
	DropID     int32           `json:"dropId"`
	TopicCode  string          `json:"topicCode"`
	DropType   *store.DropType `json:"dropType,omitempty"`
	Difficulty *int32          `json:"difficulty,omitempty"`
	DropText   json.RawMessage `json:"dropText"`
	// IsReview is true when the topic was due, false when it is new to the user.
	IsReview bool `json:"isReview"`
}

func newItem(drop *store.Drop, isReview bool) *Item {
	text := drop.DropText
	if text == "" || !json.Valid([]byte(text)) {
		slog.Warn("drop text is not valid JSON, serving an empty object",
			slog.Int(observability.LogFieldDropID, int(drop.ID)),
			slog.String(observability.LogFieldTopicCode, drop.TopicCode))
		text = "{}"
	}
	return &Item{
		DropID:     drop.ID,
		TopicCode:  drop.TopicCode,
		DropType:   drop.DropType,
		Difficulty: drop.Difficulty,
		DropText:   json.RawMessage(text),
		IsReview:   isReview,
	}
}
