package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/backup"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

var (
	identityColumnNames = []string{"id", "name", "is_admin", "role", "xp", "streak", "last_login_date", "added_by", "added_at"}
	auditColumnNames    = []string{"id", "actor", "action", "details", "prospect_id", "created_at"}
	deadlineColumnNames = []string{"id", "deadline", "created_by", "created_at"}
)

// ReplaceAll wipes every table and bulk-loads snap with COPY. Runs inside the
// caller's transaction, so a failure leaves the previous data in place.
func (t *pgTx) ReplaceAll(ctx context.Context, snap backup.Snapshot) error {
	for _, table := range []string{"audit_log", "prospects", "creatives", "creative_requests", "sprint_deadlines", "identities"} {
		if _, err := t.tx.Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", table, err)
		}
	}

	if err := t.copy(ctx, "identities", identityColumnNames, len(snap.Identities), func(i int) []any {
		ident := snap.Identities[i]
		return []any{identity.NormalizeID(ident.ID), ident.Name, ident.IsAdmin, string(ident.Role), ident.XP,
			ident.Streak, ident.LastLoginDate, ident.AddedBy, ident.AddedAt}
	}); err != nil {
		return err
	}
	if err := t.copy(ctx, "prospects", prospectColumnNames, len(snap.Prospects), func(i int) []any {
		return prospectValues(snap.Prospects[i])
	}); err != nil {
		return err
	}
	if err := t.copy(ctx, "creatives", creativeColumnNames, len(snap.Creatives), func(i int) []any {
		return creativeValues(snap.Creatives[i])
	}); err != nil {
		return err
	}
	if err := t.copy(ctx, "creative_requests", creativeRequestColumnNames, len(snap.CreativeRequests), func(i int) []any {
		return creativeRequestValues(snap.CreativeRequests[i])
	}); err != nil {
		return err
	}
	if err := t.copy(ctx, "sprint_deadlines", deadlineColumnNames, len(snap.Deadlines), func(i int) []any {
		d := snap.Deadlines[i]
		return []any{d.ID, d.Deadline, d.CreatedBy, d.CreatedAt}
	}); err != nil {
		return err
	}
	return t.copy(ctx, "audit_log", auditColumnNames, len(snap.AuditLog), func(i int) []any {
		e := snap.AuditLog[i]
		return []any{e.ID, e.Actor, string(e.Action), e.Details, nullIfEmpty(e.ProspectID), e.CreatedAt}
	})
}

func (t *pgTx) copy(ctx context.Context, table string, columns []string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromSlice(n, func(i int) ([]any, error) {
		return row(i), nil
	}))
	if err != nil {
		return fmt.Errorf("postgres: copy %s: %w", table, err)
	}
	return nil
}

func (t *pgTx) exportSnapshot(ctx context.Context) (backup.Snapshot, error) {
	snap := backup.Snapshot{
		Prospects:        []outreach.Prospect{},
		Identities:       []identity.Identity{},
		AuditLog:         []audit.Entry{},
		Creatives:        []creatives.Asset{},
		CreativeRequests: []creatives.Request{},
		Deadlines:        []meta.Deadline{},
	}
	if _, err := t.tx.Exec(ctx, `SET TRANSACTION ISOLATION LEVEL REPEATABLE READ, READ ONLY`); err != nil {
		return snap, fmt.Errorf("postgres: snapshot isolation: %w", err)
	}

	err := collect(ctx, t.tx, `SELECT `+identityColumns+` FROM identities ORDER BY id`, func(r pgx.Rows) error {
		ident, err := scanIdentity(r)
		snap.Identities = append(snap.Identities, ident)
		return err
	})
	if err != nil {
		return snap, err
	}
	err = collect(ctx, t.tx, `SELECT `+prospectColumns+` FROM prospects ORDER BY id`, func(r pgx.Rows) error {
		p, err := scanProspect(r)
		snap.Prospects = append(snap.Prospects, p)
		return err
	})
	if err != nil {
		return snap, err
	}
	err = collect(ctx, t.tx, `SELECT `+creativeColumns+` FROM creatives ORDER BY id`, func(r pgx.Rows) error {
		a, err := scanCreative(r)
		snap.Creatives = append(snap.Creatives, a)
		return err
	})
	if err != nil {
		return snap, err
	}
	err = collect(ctx, t.tx, `SELECT `+creativeRequestColumns+` FROM creative_requests ORDER BY id`, func(r pgx.Rows) error {
		req, err := scanCreativeRequest(r)
		snap.CreativeRequests = append(snap.CreativeRequests, req)
		return err
	})
	if err != nil {
		return snap, err
	}
	err = collect(ctx, t.tx, `SELECT id, deadline, created_by, created_at FROM sprint_deadlines ORDER BY created_at`, func(r pgx.Rows) error {
		var d meta.Deadline
		err := r.Scan(&d.ID, &d.Deadline, &d.CreatedBy, &d.CreatedAt)
		snap.Deadlines = append(snap.Deadlines, d)
		return err
	})
	if err != nil {
		return snap, err
	}
	err = collect(ctx, t.tx, `
		SELECT id, actor, action, details, COALESCE(prospect_id, ''), created_at
		FROM audit_log
		ORDER BY created_at, id
	`, func(r pgx.Rows) error {
		var (
			e      audit.Entry
			action string
		)
		err := r.Scan(&e.ID, &e.Actor, &action, &e.Details, &e.ProspectID, &e.CreatedAt)
		e.Action = audit.Action(action)
		snap.AuditLog = append(snap.AuditLog, e)
		return err
	})
	return snap, err
}

func collect(ctx context.Context, tx pgx.Tx, sql string, each func(pgx.Rows) error) error {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("postgres: export: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return fmt.Errorf("postgres: export scan: %w", err)
		}
	}
	return rows.Err()
}

// BackupStore is the backup.Store view.
type BackupStore struct{ s *Store }

func (s *Store) Backup() *BackupStore { return &BackupStore{s: s} }

func (b *BackupStore) Atomic(ctx context.Context, fn func(tx backup.Tx) error) error {
	return b.s.atomic(ctx, func(tx *pgTx) error { return fn(tx) })
}

func (b *BackupStore) ExportSnapshot(ctx context.Context) (backup.Snapshot, error) {
	var snap backup.Snapshot
	err := b.s.atomic(ctx, func(tx *pgTx) error {
		var err error
		snap, err = tx.exportSnapshot(ctx)
		return err
	})
	return snap, err
}

var (
	_ outreach.Store  = (*ProspectStore)(nil)
	_ identity.Store  = (*IdentityStore)(nil)
	_ creatives.Store = (*CreativeStore)(nil)
	_ meta.Store      = (*MetaStore)(nil)
	_ backup.Store    = (*BackupStore)(nil)
)
