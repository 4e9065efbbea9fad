package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/memodrops/memodrops/store"
)

const dropColumns = "id, topic_code, drop_type, difficulty, drop_text, created_ts"

func (d *DB) CreateDrop(ctx context.Context, create *store.Drop) (*store.Drop, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.DropText == "" {
		create.DropText = "{}"
	}
	args := []any{create.TopicCode, create.DropType, create.Difficulty, create.DropText, create.CreatedTs}
	stmt := `INSERT INTO drop_item (topic_code, drop_type, difficulty, drop_text, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create drop")
	}
	return create, nil
}

func (d *DB) ListDrops(ctx context.Context, find *store.FindDrop) ([]*store.Drop, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.TopicCode != nil {
		where, args = append(where, "topic_code = "+placeholder(len(args)+1)), append(args, *find.TopicCode)
	}

	query := "SELECT " + dropColumns + " FROM drop_item WHERE " + strings.Join(where, " AND ") + " ORDER BY id ASC"
	if find.Limit != nil && *find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}
	return d.queryDrops(ctx, query, args...)
}

func (d *DB) ListNewTopicDrops(ctx context.Context, find *store.FindNewTopicDrop) ([]*store.Drop, error) {
	query := `SELECT ` + dropColumns + `
		FROM drop_item d
		WHERE d.id IN (SELECT MIN(id) FROM drop_item GROUP BY topic_code)
		  AND NOT EXISTS (SELECT 1 FROM topic_stat ts WHERE ts.user_id = ? AND ts.topic_code = d.topic_code)
		ORDER BY d.topic_code ASC
		LIMIT ?`
	return d.queryDrops(ctx, query, find.UserID, find.Limit)
}

func (d *DB) queryDrops(ctx context.Context, query string, args ...any) ([]*store.Drop, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list drops")
	}
	defer rows.Close()

	list := make([]*store.Drop, 0)
	for rows.Next() {
		drop, err := scanDrop(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, drop)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate drops")
	}
	return list, nil
}

func scanDrop(scanner rowScanner) (*store.Drop, error) {
	drop := &store.Drop{}
	var dropType sql.NullString
	var difficulty sql.NullInt32
	if err := scanner.Scan(&drop.ID, &drop.TopicCode, &dropType, &difficulty, &drop.DropText, &drop.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to scan drop")
	}
	if dropType.Valid {
		t := store.DropType(dropType.String)
		drop.DropType = &t
	}
	if difficulty.Valid {
		v := difficulty.Int32
		drop.Difficulty = &v
	}
	return drop, nil
}
