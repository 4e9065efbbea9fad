package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/memodrops/memodrops/store"
)

const topicStatColumns = "user_id, topic_code, correct_count, wrong_count, streak, last_seen_ts, next_due_ts, revision"

func (d *DB) CreateTopicStat(ctx context.Context, create *store.TopicStat) (*store.TopicStat, error) {
	args := []any{create.UserID, create.TopicCode, create.CorrectCount, create.WrongCount, create.Streak, create.LastSeenTs, create.NextDueTs}
	stmt := `INSERT INTO topic_stat (user_id, topic_code, correct_count, wrong_count, streak, last_seen_ts, next_due_ts)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (user_id, topic_code) DO NOTHING
		RETURNING revision`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.Revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, errors.Wrap(err, "failed to create topic stat")
	}
	return create, nil
}

func (d *DB) ListTopicStats(ctx context.Context, find *store.FindTopicStat) ([]*store.TopicStat, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.TopicCode != nil {
		where, args = append(where, "topic_code = "+placeholder(len(args)+1)), append(args, *find.TopicCode)
	}
	orderBy := "user_id ASC, topic_code ASC"
	if find.DueBefore != nil {
		where, args = append(where, "next_due_ts IS NOT NULL AND next_due_ts <= "+placeholder(len(args)+1)), append(args, *find.DueBefore)
		orderBy = "next_due_ts ASC, topic_code ASC"
	}

	query := "SELECT " + topicStatColumns + " FROM topic_stat WHERE " + strings.Join(where, " AND ") + " ORDER BY " + orderBy
	if find.Limit != nil && *find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list topic stats")
	}
	defer rows.Close()

	list := make([]*store.TopicStat, 0)
	for rows.Next() {
		stat, err := scanTopicStat(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan topic stat")
		}
		list = append(list, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate topic stats")
	}
	return list, nil
}

func (d *DB) UpdateTopicStat(ctx context.Context, update *store.UpdateTopicStat) (*store.TopicStat, error) {
	stmt := `UPDATE topic_stat
		SET correct_count = $1, wrong_count = $2, streak = $3, last_seen_ts = $4, next_due_ts = $5, revision = revision + 1
		WHERE user_id = $6 AND topic_code = $7 AND revision = $8
		RETURNING ` + topicStatColumns
	row := d.db.QueryRowContext(ctx, stmt,
		update.CorrectCount, update.WrongCount, update.Streak, update.LastSeenTs, update.NextDueTs,
		update.UserID, update.TopicCode, update.ExpectedRevision,
	)
	stat, err := scanTopicStat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, errors.Wrap(err, "failed to update topic stat")
	}
	return stat, nil
}

func (d *DB) DeleteTopicStats(ctx context.Context, delete *store.DeleteTopicStat) (int64, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM topic_stat WHERE user_id = $1", delete.UserID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete topic stats")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read deleted rows")
	}
	return affected, nil
}

func (d *DB) ListStudyUserIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM topic_stat ORDER BY user_id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list study user ids")
	}
	defer rows.Close()

	userIDs := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, errors.Wrap(err, "failed to scan user id")
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate user ids")
	}
	return userIDs, nil
}

func scanTopicStat(scanner rowScanner) (*store.TopicStat, error) {
	stat := &store.TopicStat{}
	var lastSeenTs, nextDueTs sql.NullInt64
	if err := scanner.Scan(
		&stat.UserID,
		&stat.TopicCode,
		&stat.CorrectCount,
		&stat.WrongCount,
		&stat.Streak,
		&lastSeenTs,
		&nextDueTs,
		&stat.Revision,
	); err != nil {
		return nil, err
	}
	stat.LastSeenTs = nullInt64Ptr(lastSeenTs)
	stat.NextDueTs = nullInt64Ptr(nextDueTs)
	return stat, nil
}
