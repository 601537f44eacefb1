package postgres

import (
	"context"
	"fmt"

	"github.com/wolfman30/outreach-pipeline/internal/identity"
)

const identityColumns = `id, name, is_admin, role, xp, streak, last_login_date, added_by, added_at`

func scanIdentity(row scanner) (identity.Identity, error) {
	var (
		ident identity.Identity
		role  string
	)
	if err := row.Scan(&ident.ID, &ident.Name, &ident.IsAdmin, &role, &ident.XP, &ident.Streak,
		&ident.LastLoginDate, &ident.AddedBy, &ident.AddedAt); err != nil {
		return identity.Identity{}, err
	}
	ident.Role = identity.Role(role)
	return ident, nil
}

func (t *pgTx) FindIdentity(ctx context.Context, id string) (identity.Identity, error) {
	ident, err := scanIdentity(t.tx.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, identity.NormalizeID(id)))
	if isNoRows(err) {
		return identity.Identity{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("postgres: find identity: %w", err)
	}
	return ident, nil
}

func (t *pgTx) InsertIdentity(ctx context.Context, ident identity.Identity) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, identity.NormalizeID(ident.ID), ident.Name, ident.IsAdmin, string(ident.Role), ident.XP, ident.Streak,
		ident.LastLoginDate, ident.AddedBy, ident.AddedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAlreadyAuthorized
	}
	return nil
}

func (t *pgTx) SaveIdentity(ctx context.Context, ident identity.Identity) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE identities
		SET name = $2, is_admin = $3, role = $4, xp = $5, streak = $6, last_login_date = $7
		WHERE id = $1
	`, identity.NormalizeID(ident.ID), ident.Name, ident.IsAdmin, string(ident.Role), ident.XP, ident.Streak, ident.LastLoginDate)
	if err != nil {
		return fmt.Errorf("postgres: save identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteIdentity(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM identities WHERE id = $1`, identity.NormalizeID(id))
	if err != nil {
		return fmt.Errorf("postgres: delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// IdentityStore is the identity.Store view.
type IdentityStore struct{ s *Store }

func (s *Store) Identities() *IdentityStore { return &IdentityStore{s: s} }

func (i *IdentityStore) Atomic(ctx context.Context, fn func(tx identity.Tx) error) error {
	return i.s.atomic(ctx, func(tx *pgTx) error { return fn(tx) })
}

func (i *IdentityStore) FindIdentity(ctx context.Context, id string) (identity.Identity, error) {
	ident, err := scanIdentity(i.s.db.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, identity.NormalizeID(id)))
	if isNoRows(err) {
		return identity.Identity{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("postgres: find identity: %w", err)
	}
	return ident, nil
}

func (i *IdentityStore) ListIdentities(ctx context.Context) ([]identity.Identity, error) {
	return i.query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY name, id`)
}

func (i *IdentityStore) Leaderboard(ctx context.Context, limit int) ([]identity.Identity, error) {
	return i.query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY xp DESC, name LIMIT $1`, limit)
}

func (i *IdentityStore) CountIdentities(ctx context.Context) (int, error) {
	var n int
	if err := i.s.db.QueryRow(ctx, `SELECT count(*) FROM identities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count identities: %w", err)
	}
	return n, nil
}

func (i *IdentityStore) query(ctx context.Context, sql string, args ...any) ([]identity.Identity, error) {
	rows, err := i.s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list identities: %w", err)
	}
	defer rows.Close()
	out := []identity.Identity{}
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan identity: %w", err)
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}
