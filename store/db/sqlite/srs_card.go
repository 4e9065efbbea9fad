package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/memodrops/memodrops/store"
)

const srsCardColumns = "id, user_id, drop_id, status, interval_days, ease_factor, repetition, next_review_ts, revision, created_ts, updated_ts"

func (d *DB) CreateSRSCard(ctx context.Context, create *store.SRSCard) (*store.SRSCard, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	if create.Status == "" {
		create.Status = store.CardStatusLearning
	}

	args := []any{
		create.ID,
		create.UserID,
		create.DropID,
		string(create.Status),
		create.IntervalDays,
		create.EaseFactor,
		create.Repetition,
		create.NextReviewTs,
		create.CreatedTs,
		create.UpdatedTs,
	}
	stmt := `INSERT INTO srs_card (id, user_id, drop_id, status, interval_days, ease_factor, repetition, next_review_ts, created_ts, updated_ts)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (user_id, drop_id) DO NOTHING
		RETURNING revision`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.Revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, errors.Wrap(err, "failed to create srs card")
	}
	return create, nil
}

func (d *DB) ListSRSCards(ctx context.Context, find *store.FindSRSCard) ([]*store.SRSCard, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.DropID != nil {
		where, args = append(where, "drop_id = "+placeholder(len(args)+1)), append(args, *find.DropID)
	}
	if find.DueBefore != nil {
		where, args = append(where, "status <> 'suspended' AND next_review_ts <= "+placeholder(len(args)+1)), append(args, *find.DueBefore)
	}

	query := "SELECT " + srsCardColumns + " FROM srs_card WHERE " + strings.Join(where, " AND ") + " ORDER BY next_review_ts ASC, id ASC"
	if find.Limit != nil && *find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list srs cards")
	}
	defer rows.Close()

	list := make([]*store.SRSCard, 0)
	for rows.Next() {
		card, err := scanSRSCard(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan srs card")
		}
		list = append(list, card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate srs cards")
	}
	return list, nil
}

func (d *DB) ApplySRSReview(ctx context.Context, update *store.UpdateSRSCard, review *store.SRSReview) (*store.SRSCard, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	stmt := `UPDATE srs_card
		SET status = ?, interval_days = ?, ease_factor = ?, repetition = ?, next_review_ts = ?, updated_ts = ?, revision = revision + 1
		WHERE id = ? AND revision = ?
		RETURNING ` + srsCardColumns
	card, err := scanSRSCard(tx.QueryRowContext(ctx, stmt,
		string(update.Status), update.IntervalDays, update.EaseFactor, update.Repetition, update.NextReviewTs, update.UpdatedTs,
		update.ID, update.ExpectedRevision,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, errors.Wrap(err, "failed to update srs card")
	}

	if err := tx.QueryRowContext(ctx,
		"INSERT INTO srs_review (card_id, user_id, grade, reviewed_ts) VALUES (?, ?, ?, ?) RETURNING id",
		card.ID, card.UserID, review.Grade, review.ReviewedTs,
	).Scan(&review.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create srs review")
	}
	review.CardID = card.ID
	review.UserID = card.UserID

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit srs review")
	}
	return card, nil
}

func (d *DB) ListSRSReviews(ctx context.Context, find *store.FindSRSReview) ([]*store.SRSReview, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.CardID != nil {
		where, args = append(where, "card_id = "+placeholder(len(args)+1)), append(args, *find.CardID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := "SELECT id, card_id, user_id, grade, reviewed_ts FROM srs_review WHERE " + strings.Join(where, " AND ") + " ORDER BY reviewed_ts DESC, id DESC"
	if find.Limit != nil && *find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list srs reviews")
	}
	defer rows.Close()

	list := make([]*store.SRSReview, 0)
	for rows.Next() {
		review := &store.SRSReview{}
		if err := rows.Scan(&review.ID, &review.CardID, &review.UserID, &review.Grade, &review.ReviewedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan srs review")
		}
		list = append(list, review)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate srs reviews")
	}
	return list, nil
}

func scanSRSCard(scanner rowScanner) (*store.SRSCard, error) {
	card := &store.SRSCard{}
	var status string
	if err := scanner.Scan(
		&card.ID,
		&card.UserID,
		&card.DropID,
		&status,
		&card.IntervalDays,
		&card.EaseFactor,
		&card.Repetition,
		&card.NextReviewTs,
		&card.Revision,
		&card.CreatedTs,
		&card.UpdatedTs,
	); err != nil {
		return nil, err
	}
	card.Status = store.CardStatus(status)
	return card, nil
}
