package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const progressTable = "progress"

var progressColumns = []string{"id", "user_id", "topic", "attempts", "score", "last_reviewed"}

type progressRepo struct {
	s *Store
}

func (r *progressRepo) Get(ctx context.Context, userID, topic string) (*Progress, error) {
	b := r.s.sql()
	query, args := b.Select(progressColumns...).
		From(b.Table(progressTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("topic", topic),
		)).
		Limit(1).
		Query()

	var p Progress
	if err := r.s.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &p, nil
}

func (r *progressRepo) Insert(ctx context.Context, p *Progress) (bool, error) {
	query, args := r.s.sql().Insert(progressTable).
		Columns("user_id", "topic", "attempts", "score", "last_reviewed").
		Values(p.UserID, p.Topic, p.Attempts, p.Score, p.LastReviewed).
		OnConflict(
			entsql.ConflictColumns("user_id", "topic"),
			entsql.DoNothing(),
		).
		Returning("id").
		Query()

	var id int64
	if err := r.s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert progress: %w", err)
	}
	p.ID = id
	return true, nil
}

func (r *progressRepo) CompareAndSwap(ctx context.Context, p *Progress, prevAttempts int) (bool, error) {
	query, args := r.s.sql().Update(progressTable).
		Set("attempts", p.Attempts).
		Set("score", p.Score).
		Set("last_reviewed", p.LastReviewed).
		Where(entsql.And(
			entsql.EQ("id", p.ID),
			entsql.EQ("attempts", prevAttempts),
		)).
		Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	return n == 1, nil
}

func (r *progressRepo) ListByUser(ctx context.Context, userID string) ([]Progress, error) {
	b := r.s.sql()
	query, args := b.Select(progressColumns...).
		From(b.Table(progressTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("topic").
		Query()

	var out []Progress
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}
