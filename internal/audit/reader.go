package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter narrows a history query. Zero values mean "any".
type Filter struct {
	ProspectID string
	Actor      string
	Actions    []Action
	Since      time.Time
	Limit      int
	Offset     int
}

// Reader serves audit history queries over database/sql.
type Reader struct {
	db *sql.DB
}

// NewReader creates a reader over db, normally opened with the lib/pq driver.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// List returns entries newest first.
func (r *Reader) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, actor, action, details, prospect_id, created_at
		FROM audit_log
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.ProspectID != "" {
		query += fmt.Sprintf(" AND prospect_id = $%d", argIdx)
		args = append(args, filter.ProspectID)
		argIdx++
	}
	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", argIdx)
		args = append(args, filter.Actor)
		argIdx++
	}
	if len(filter.Actions) > 0 {
		tags := make([]string, 0, len(filter.Actions))
		for _, a := range filter.Actions {
			tags = append(tags, string(a))
		}
		query += fmt.Sprintf(" AND action = ANY($%d)", argIdx)
		args = append(args, pq.Array(tags))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT %d", clampLimit(filter.Limit))
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var prospectID sql.NullString
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &prospectID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.ProspectID = prospectID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
