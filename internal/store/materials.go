package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const materialsTable = "materials"

type materialRepo struct {
	s *Store
}

func (r *materialRepo) Create(ctx context.Context, m *Material) error {
	query, args := r.s.sql().Insert(materialsTable).
		Columns("filename", "storage_ref", "document_id", "size_bytes", "created_at").
		Values(m.Filename, m.StorageRef, m.DocumentID, m.SizeBytes, m.CreatedAt).
		Returning("id").
		Query()

	if err := r.s.db.QueryRowxContext(ctx, query, args...).Scan(&m.ID); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

func (r *materialRepo) List(ctx context.Context, limit int) ([]Material, error) {
	b := r.s.sql()
	sel := b.Select("id", "filename", "storage_ref", "document_id", "size_bytes", "created_at").
		From(b.Table(materialsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []Material
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return out, nil
}
