package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodrops/memodrops/store"
)

func createTestingCard(ctx context.Context, t *testing.T, ts *store.Store, user string, nextReviewTs int64) *store.SRSCard {
	t.Helper()
	drop, err := ts.CreateDrop(ctx, &store.Drop{TopicCode: uniqueName("CARD")})
	require.NoError(t, err)
	card, err := ts.CreateSRSCard(ctx, &store.SRSCard{
		UserID:       user,
		DropID:       drop.ID,
		IntervalDays: 1,
		EaseFactor:   2.5,
		NextReviewTs: nextReviewTs,
	})
	require.NoError(t, err)
	return card
}

func TestSRSCardStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	now := time.Now().Unix()

	card := createTestingCard(ctx, t, ts, user, now)
	require.NotEmpty(t, card.ID)
	assert.Equal(t, store.CardStatusLearning, card.Status)
	assert.Equal(t, int64(1), card.Revision)

	_, err := ts.CreateSRSCard(ctx, &store.SRSCard{
		UserID:       user,
		DropID:       card.DropID,
		IntervalDays: 1,
		EaseFactor:   2.5,
		NextReviewTs: now,
	})
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := ts.GetSRSCard(ctx, &store.FindSRSCard{ID: &card.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, card.DropID, got.DropID)
	assert.InDelta(t, 2.5, got.EaseFactor, 1e-9)

	missing, err := ts.GetSRSCard(ctx, &store.FindSRSCard{ID: ptr("not-a-card")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApplySRSReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	now := time.Now().Unix()
	card := createTestingCard(ctx, t, ts, user, now)

	review := &store.SRSReview{Grade: 4, ReviewedTs: now}
	updated, err := ts.ApplySRSReview(ctx, &store.UpdateSRSCard{
		ID:               card.ID,
		ExpectedRevision: card.Revision,
		Status:           store.CardStatusReview,
		IntervalDays:     1,
		EaseFactor:       2.5,
		Repetition:       1,
		NextReviewTs:     now + 86400,
		UpdatedTs:        now,
	}, review)
	require.NoError(t, err)
	assert.Equal(t, store.CardStatusReview, updated.Status)
	assert.Equal(t, int32(1), updated.Repetition)
	assert.Equal(t, card.Revision+1, updated.Revision)
	assert.Greater(t, review.ID, int32(0))
	assert.Equal(t, card.ID, review.CardID)

	// Stale revision: neither the card nor the review log changes.
	_, err = ts.ApplySRSReview(ctx, &store.UpdateSRSCard{
		ID:               card.ID,
		ExpectedRevision: card.Revision,
		Status:           store.CardStatusLearning,
		IntervalDays:     1,
		EaseFactor:       2.5,
		NextReviewTs:     now,
		UpdatedTs:        now,
	}, &store.SRSReview{Grade: 0, ReviewedTs: now})
	require.ErrorIs(t, err, store.ErrConflict)

	reviews, err := ts.ListSRSReviews(ctx, &store.FindSRSReview{CardID: &card.ID})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, int32(4), reviews[0].Grade)

	got, err := ts.GetSRSCard(ctx, &store.FindSRSCard{ID: &card.ID})
	require.NoError(t, err)
	assert.Equal(t, updated.Revision, got.Revision)
	assert.Equal(t, store.CardStatusReview, got.Status)
}

func TestListDueSRSCards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user := uniqueName("user")
	now := time.Now()

	late := createTestingCard(ctx, t, ts, user, now.Unix()-60)
	early := createTestingCard(ctx, t, ts, user, now.Unix()-3600)
	createTestingCard(ctx, t, ts, user, now.Unix()+3600)

	due, err := ts.ListDueSRSCards(ctx, user, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	due, err = ts.ListDueSRSCards(ctx, uniqueName("user"), now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
