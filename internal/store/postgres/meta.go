package postgres

import (
	"context"
	"fmt"

	"github.com/wolfman30/outreach-pipeline/internal/meta"
)

func (t *pgTx) InsertDeadline(ctx context.Context, d meta.Deadline) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sprint_deadlines (id, deadline, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, d.ID, d.Deadline, d.CreatedBy, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert deadline: %w", err)
	}
	return nil
}

// MetaStore is the meta.Store view.
type MetaStore struct{ s *Store }

func (s *Store) Meta() *MetaStore { return &MetaStore{s: s} }

func (m *MetaStore) Atomic(ctx context.Context, fn func(tx meta.Tx) error) error {
	return m.s.atomic(ctx, func(tx *pgTx) error { return fn(tx) })
}

func (m *MetaStore) LatestDeadline(ctx context.Context) (meta.Deadline, error) {
	var d meta.Deadline
	err := m.s.db.QueryRow(ctx, `
		SELECT id, deadline, created_by, created_at
		FROM sprint_deadlines
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&d.ID, &d.Deadline, &d.CreatedBy, &d.CreatedAt)
	if isNoRows(err) {
		return meta.Deadline{}, meta.ErrNoDeadline
	}
	if err != nil {
		return meta.Deadline{}, fmt.Errorf("postgres: latest deadline: %w", err)
	}
	return d, nil
}
