package postgres

import (
	"context"
	"fmt"

	"github.com/wolfman30/outreach-pipeline/internal/creatives"
)

const creativeColumns = `id, title, description, asset_type, platform, creative_brief, moodboard_url, status,
	priority, assigned_to, due_date, created_by, created_at, last_updated`

func scanCreative(row scanner) (creatives.Asset, error) {
	var (
		a      creatives.Asset
		status string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.AssetType, &a.Platform, &a.CreativeBrief, &a.MoodboardURL,
		&status, &a.Priority, &a.AssignedTo, &a.DueDate, &a.CreatedBy, &a.CreatedAt, &a.LastUpdated)
	if err != nil {
		return creatives.Asset{}, err
	}
	a.Status = creatives.Status(status)
	return a, nil
}

func creativeValues(a creatives.Asset) []any {
	return []any{a.ID, a.Title, a.Description, a.AssetType, a.Platform, a.CreativeBrief, a.MoodboardURL,
		string(a.Status), a.Priority, a.AssignedTo, a.DueDate, a.CreatedBy, a.CreatedAt, a.LastUpdated}
}

var creativeColumnNames = []string{"id", "title", "description", "asset_type", "platform", "creative_brief",
	"moodboard_url", "status", "priority", "assigned_to", "due_date", "created_by", "created_at", "last_updated"}

func (t *pgTx) LockCreative(ctx context.Context, id string) (creatives.Asset, error) {
	a, err := scanCreative(t.tx.QueryRow(ctx, `SELECT `+creativeColumns+` FROM creatives WHERE id = $1 FOR UPDATE`, id))
	if isNoRows(err) {
		return creatives.Asset{}, creatives.ErrNotFound
	}
	if err != nil {
		return creatives.Asset{}, fmt.Errorf("postgres: lock creative: %w", err)
	}
	return a, nil
}

func (t *pgTx) InsertCreative(ctx context.Context, a creatives.Asset) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO creatives (id, title, description, asset_type, platform, creative_brief, moodboard_url, status,
			priority, assigned_to, due_date, created_by, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, creativeValues(a)...)
	if err != nil {
		return fmt.Errorf("postgres: insert creative: %w", err)
	}
	return nil
}

func (t *pgTx) SaveCreative(ctx context.Context, a creatives.Asset) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE creatives
		SET title = $2, description = $3, asset_type = $4, platform = $5, creative_brief = $6, moodboard_url = $7,
			status = $8, priority = $9, assigned_to = $10, due_date = $11, created_by = $12, created_at = $13,
			last_updated = $14
		WHERE id = $1
	`, creativeValues(a)...)
	if err != nil {
		return fmt.Errorf("postgres: save creative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return creatives.ErrNotFound
	}
	return nil
}

const creativeRequestColumns = `id, title, description, priority, due_date, notes, status, requested_by,
	assigned_to, created_at, last_updated, completed_at`

var creativeRequestColumnNames = []string{"id", "title", "description", "priority", "due_date", "notes", "status",
	"requested_by", "assigned_to", "created_at", "last_updated", "completed_at"}

func scanCreativeRequest(row scanner) (creatives.Request, error) {
	var (
		r      creatives.Request
		status string
	)
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Priority, &r.DueDate, &r.Notes, &status, &r.RequestedBy,
		&r.AssignedTo, &r.CreatedAt, &r.LastUpdated, &r.CompletedAt)
	if err != nil {
		return creatives.Request{}, err
	}
	r.Status = creatives.RequestStatus(status)
	return r, nil
}

func creativeRequestValues(r creatives.Request) []any {
	return []any{r.ID, r.Title, r.Description, r.Priority, r.DueDate, r.Notes, string(r.Status), r.RequestedBy,
		r.AssignedTo, r.CreatedAt, r.LastUpdated, r.CompletedAt}
}

func (t *pgTx) LockCreativeRequest(ctx context.Context, id string) (creatives.Request, error) {
	r, err := scanCreativeRequest(t.tx.QueryRow(ctx,
		`SELECT `+creativeRequestColumns+` FROM creative_requests WHERE id = $1 FOR UPDATE`, id))
	if isNoRows(err) {
		return creatives.Request{}, creatives.ErrRequestNotFound
	}
	if err != nil {
		return creatives.Request{}, fmt.Errorf("postgres: lock creative request: %w", err)
	}
	return r, nil
}

func (t *pgTx) InsertCreativeRequest(ctx context.Context, r creatives.Request) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO creative_requests (id, title, description, priority, due_date, notes, status, requested_by,
			assigned_to, created_at, last_updated, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, creativeRequestValues(r)...)
	if err != nil {
		return fmt.Errorf("postgres: insert creative request: %w", err)
	}
	return nil
}

// SaveCreativeRequest never rewrites requested_by or created_at.
func (t *pgTx) SaveCreativeRequest(ctx context.Context, r creatives.Request) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE creative_requests
		SET title = $2, description = $3, priority = $4, due_date = $5, notes = $6, status = $7,
			assigned_to = $8, last_updated = $9, completed_at = $10
		WHERE id = $1
	`, r.ID, r.Title, r.Description, r.Priority, r.DueDate, r.Notes, string(r.Status),
		r.AssignedTo, r.LastUpdated, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("postgres: save creative request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return creatives.ErrRequestNotFound
	}
	return nil
}

// CreativeStore is the creatives.Store view.
type CreativeStore struct{ s *Store }

func (s *Store) Creatives() *CreativeStore { return &CreativeStore{s: s} }

func (c *CreativeStore) Atomic(ctx context.Context, fn func(tx creatives.Tx) error) error {
	return c.s.atomic(ctx, func(tx *pgTx) error { return fn(tx) })
}

func (c *CreativeStore) ListCreatives(ctx context.Context, status creatives.Status) ([]creatives.Asset, error) {
	query := `SELECT ` + creativeColumns + ` FROM creatives`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	rows, err := c.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list creatives: %w", err)
	}
	defer rows.Close()
	out := []creatives.Asset{}
	for rows.Next() {
		a, err := scanCreative(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan creative: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (c *CreativeStore) ListCreativeRequests(ctx context.Context) ([]creatives.Request, error) {
	rows, err := c.s.db.Query(ctx, `SELECT `+creativeRequestColumns+` FROM creative_requests ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list creative requests: %w", err)
	}
	defer rows.Close()
	out := []creatives.Request{}
	for rows.Next() {
		r, err := scanCreativeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan creative request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
