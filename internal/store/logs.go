package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const logsTable = "logs"

type logRepo struct {
	s *Store
}

func (r *logRepo) Append(ctx context.Context, l *InteractionLog) error {
	query, args := r.s.sql().Insert(logsTable).
		Columns("user_id", "question", "answer", "created_at").
		Values(l.UserID, l.Question, l.Answer, l.CreatedAt).
		Returning("id").
		Query()

	if err := r.s.db.QueryRowxContext(ctx, query, args...).Scan(&l.ID); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (r *logRepo) Recent(ctx context.Context, userID string, limit int) ([]InteractionLog, error) {
	b := r.s.sql()
	sel := b.Select("id", "user_id", "question", "answer", "created_at").
		From(b.Table(logsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []InteractionLog
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	return out, nil
}
