package store

import (
	"context"
	"encoding/json"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/memodrops/memodrops/store/cache"
)

// DropType is the kind of content a drop carries.
type DropType string

const (
	DropTypeExplanation  DropType = "explanation"
	DropTypeMiniQuestion DropType = "mini_question"
	DropTypeFlashcard    DropType = "flashcard"
)

// Drop is a single learning item of the catalog. Each drop belongs to one topic.
type Drop struct {
	ID         int32     `json:"id"`
	TopicCode  string    `json:"topicCode"`
	DropType   *DropType `json:"dropType,omitempty"`
	Difficulty *int32    `json:"difficulty,omitempty"`
	// DropText is the JSON document with the drop content.
	DropText  string `json:"dropText"`
	CreatedTs int64  `json:"createdTs"`
}

// FindDrop is the find condition for drops. Results are ordered by id.
type FindDrop struct {
	ID        *int32
	TopicCode *string
	Limit     *int
}

// FindNewTopicDrop selects drops of topics the user never studied.
type FindNewTopicDrop struct {
	UserID string
	Limit  int
}

// ErrInvalidDropText is returned when a drop's content is not a JSON document.
var ErrInvalidDropText = errors.New("store: drop text is not valid JSON")

// CreateDrop creates a drop and invalidates the cached drops of its topic.
// An empty DropText is stored as an empty JSON object.
func (s *Store) CreateDrop(ctx context.Context, create *Drop) (*Drop, error) {
	if create.DropText == "" {
		create.DropText = "{}"
	}
	if !json.Valid([]byte(create.DropText)) {
		return nil, errors.Wrapf(ErrInvalidDropText, "topic %s", create.TopicCode)
	}
	drop, err := s.driver.CreateDrop(ctx, create)
	if err != nil {
		return nil, err
	}
	s.topicDropCache.Delete(ctx, topicDropCacheKey(drop.TopicCode))
	return drop, nil
}

func (s *Store) ListDrops(ctx context.Context, find *FindDrop) ([]*Drop, error) {
	return s.driver.ListDrops(ctx, find)
}

// GetDrop returns the drop with the given id, or nil if there is none.
func (s *Store) GetDrop(ctx context.Context, id int32) (*Drop, error) {
	list, err := s.driver.ListDrops(ctx, &FindDrop{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetRandomDropByTopic returns one drop of the topic chosen uniformly at random,
// or nil if the topic has no drops.
// Drop lists are cached per topic, so drops added to a non-empty topic by another
// process show up once the cached list expires.
func (s *Store) GetRandomDropByTopic(ctx context.Context, topicCode string) (*Drop, error) {
	drops, err := s.topicDropCache.Get(ctx, topicDropCacheKey(topicCode), func(ctx context.Context, _ string) ([]*Drop, error) {
		code := topicCode
		return s.driver.ListDrops(ctx, &FindDrop{TopicCode: &code})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list drops of topic %s", topicCode)
	}
	if len(drops) == 0 {
		// Another process may import drops into the topic; only non-empty lists stay cached.
		s.topicDropCache.Delete(ctx, topicDropCacheKey(topicCode))
		return nil, nil
	}
	return drops[rand.IntN(len(drops))], nil
}

// ListNewTopicDrops returns at most limit drops, one per topic without progress for the user,
// ordered by topic code.
func (s *Store) ListNewTopicDrops(ctx context.Context, userID string, limit int) ([]*Drop, error) {
	if limit <= 0 {
		return []*Drop{}, nil
	}
	return s.driver.ListNewTopicDrops(ctx, &FindNewTopicDrop{UserID: userID, Limit: limit})
}

func topicDropCacheKey(topicCode string) string {
	return cache.GenerateCacheKey("drop", "topic", topicCode)
}
