package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

const prospectColumns = `id, kind, name, primary_domain, location, angle, notes, linkedin_url, search_details, batch,
	contact_method, spoc_name, email, phone, status, COALESCE(assigned_to, ''), COALESCE(assigned_by, ''), assigned_at,
	priority, due_date, tags, is_bounty, draft_text, created_at, last_updated, last_activity`

func scanProspect(row scanner) (outreach.Prospect, error) {
	var (
		p                      outreach.Prospect
		kind, status, priority string
	)
	err := row.Scan(&p.ID, &kind, &p.Name, &p.Domain, &p.Location, &p.Angle, &p.Notes, &p.LinkedInURL,
		&p.SearchDetails, &p.Batch, &p.ContactMethod, &p.SPOCName, &p.Email, &p.Phone, &status,
		&p.AssignedTo, &p.AssignedBy, &p.AssignedAt, &priority, &p.DueDate, &p.Tags, &p.IsBounty,
		&p.DraftText, &p.CreatedAt, &p.LastUpdated, &p.LastActivity)
	if err != nil {
		return outreach.Prospect{}, err
	}
	p.Kind = outreach.Kind(kind)
	p.Status = outreach.Status(status)
	p.Priority = outreach.Priority(priority)
	return p, nil
}

// prospectValues is the column order used by INSERT and COPY.
func prospectValues(p outreach.Prospect) []any {
	return []any{
		p.ID, string(p.Kind), p.Name, p.Domain, p.Location, p.Angle, p.Notes, p.LinkedInURL,
		p.SearchDetails, p.Batch, p.ContactMethod, p.SPOCName, p.Email, p.Phone, string(p.Status),
		nullIfEmpty(p.AssignedTo), nullIfEmpty(p.AssignedBy), p.AssignedAt, string(p.Priority), p.DueDate,
		p.Tags, p.IsBounty, p.DraftText, p.CreatedAt, p.LastUpdated, p.LastActivity,
	}
}

var prospectColumnNames = []string{
	"id", "kind", "name", "primary_domain", "location", "angle", "notes", "linkedin_url",
	"search_details", "batch", "contact_method", "spoc_name", "email", "phone", "status",
	"assigned_to", "assigned_by", "assigned_at", "priority", "due_date",
	"tags", "is_bounty", "draft_text", "created_at", "last_updated", "last_activity",
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func (t *pgTx) LockProspect(ctx context.Context, id string) (outreach.Prospect, error) {
	p, err := scanProspect(t.tx.QueryRow(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE id = $1 FOR UPDATE`, id))
	if isNoRows(err) {
		return outreach.Prospect{}, outreach.ErrNotFound
	}
	if err != nil {
		return outreach.Prospect{}, fmt.Errorf("postgres: lock prospect: %w", err)
	}
	return p, nil
}

func (t *pgTx) InsertProspect(ctx context.Context, p outreach.Prospect) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO prospects (`+strings.Join(prospectColumnNames, ", ")+`) VALUES (`+placeholders(len(prospectColumnNames))+`)`,
		prospectValues(p)...)
	if err != nil {
		return fmt.Errorf("postgres: insert prospect: %w", err)
	}
	return nil
}

func (t *pgTx) SaveProspect(ctx context.Context, p outreach.Prospect) error {
	sets := make([]string, 0, len(prospectColumnNames)-1)
	for i, col := range prospectColumnNames[1:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	tag, err := t.tx.Exec(ctx, `UPDATE prospects SET `+strings.Join(sets, ", ")+` WHERE id = $1`, prospectValues(p)...)
	if err != nil {
		return fmt.Errorf("postgres: save prospect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteProspects(ctx context.Context, ids []string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM prospects WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete prospects: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) ProspectNameExists(ctx context.Context, kind outreach.Kind, name string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM prospects WHERE kind = $1 AND name = $2)`,
		string(kind), name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: prospect name exists: %w", err)
	}
	return exists, nil
}

func (t *pgTx) PurgeInvalidProspects(ctx context.Context) (outreach.PurgeResult, error) {
	var res outreach.PurgeResult
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM prospects
		WHERE btrim(name) = '' OR lower(btrim(name)) = ANY($1)
	`, outreach.PlaceholderNames)
	if err != nil {
		return res, fmt.Errorf("postgres: purge prospects: %w", err)
	}
	res.Purged = tag.RowsAffected()

	tag, err = t.tx.Exec(ctx, `
		UPDATE prospects
		SET assigned_to = NULL, assigned_by = NULL, assigned_at = NULL
		WHERE assigned_to IS NOT NULL
		  AND assigned_to NOT IN (SELECT id FROM identities)
	`)
	if err != nil {
		return res, fmt.Errorf("postgres: fix assignments: %w", err)
	}
	res.Fixed = tag.RowsAffected()
	return res, nil
}

// ProspectStore is the outreach.Store view.
type ProspectStore struct{ s *Store }

func (s *Store) Prospects() *ProspectStore { return &ProspectStore{s: s} }

func (p *ProspectStore) Atomic(ctx context.Context, fn func(tx outreach.Tx) error) error {
	return p.s.atomic(ctx, func(tx *pgTx) error { return fn(tx) })
}

func (p *ProspectStore) GetProspect(ctx context.Context, id string) (outreach.Prospect, error) {
	pr, err := scanProspect(p.s.db.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id))
	if isNoRows(err) {
		return outreach.Prospect{}, outreach.ErrNotFound
	}
	if err != nil {
		return outreach.Prospect{}, fmt.Errorf("postgres: get prospect: %w", err)
	}
	return pr, nil
}

func (p *ProspectStore) ListProspects(ctx context.Context, filter outreach.ListFilter) ([]outreach.Prospect, error) {
	filter = filter.Normalize()
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE 1 = 1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Kind != "" {
		query += " AND kind = " + arg(string(filter.Kind))
	}
	if filter.Status != "" {
		query += " AND status = " + arg(string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query += " AND assigned_to = " + arg(filter.AssignedTo)
	}
	if filter.Unassigned {
		query += " AND assigned_to IS NULL"
	}
	if filter.Search != "" {
		n := arg("%" + escapeLike(filter.Search) + "%")
		query += fmt.Sprintf(" AND (name ILIKE %[1]s OR primary_domain ILIKE %[1]s OR location ILIKE %[1]s)", n)
	}
	query += " ORDER BY last_updated DESC, id"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := p.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prospects: %w", err)
	}
	defer rows.Close()
	out := []outreach.Prospect{}
	for rows.Next() {
		pr, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan prospect: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *ProspectStore) CountByStatus(ctx context.Context) ([]outreach.StatusCount, error) {
	rows, err := p.s.db.Query(ctx, `SELECT kind, status, count(*) FROM prospects GROUP BY kind, status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count prospects: %w", err)
	}
	defer rows.Close()
	out := []outreach.StatusCount{}
	for rows.Next() {
		var (
			kind, status string
			n            int
		)
		if err := rows.Scan(&kind, &status, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan count: %w", err)
		}
		out = append(out, outreach.StatusCount{Kind: outreach.Kind(kind), Status: outreach.Status(status), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return outreach.Rank(out[i].Status) < outreach.Rank(out[j].Status)
	})
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
