package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrConflict is returned by conditional writes when the row changed since it was read,
// or when a row being created already exists.
var ErrConflict = errors.New("store: conflicting write")

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Drop model related methods.
	CreateDrop(ctx context.Context, create *Drop) (*Drop, error)
	ListDrops(ctx context.Context, find *FindDrop) ([]*Drop, error)
	// ListNewTopicDrops returns one drop per topic the user has no progress on.
	ListNewTopicDrops(ctx context.Context, find *FindNewTopicDrop) ([]*Drop, error)

	// TopicStat model related methods.
	CreateTopicStat(ctx context.Context, create *TopicStat) (*TopicStat, error)
	ListTopicStats(ctx context.Context, find *FindTopicStat) ([]*TopicStat, error)
	UpdateTopicStat(ctx context.Context, update *UpdateTopicStat) (*TopicStat, error)
	DeleteTopicStats(ctx context.Context, delete *DeleteTopicStat) (int64, error)
	ListStudyUserIDs(ctx context.Context) ([]string, error)

	// SRSCard model related methods.
	CreateSRSCard(ctx context.Context, create *SRSCard) (*SRSCard, error)
	ListSRSCards(ctx context.Context, find *FindSRSCard) ([]*SRSCard, error)
	// ApplySRSReview updates the card and appends the review in one transaction.
	ApplySRSReview(ctx context.Context, update *UpdateSRSCard, review *SRSReview) (*SRSCard, error)
	ListSRSReviews(ctx context.Context, find *FindSRSReview) ([]*SRSReview, error)
}
