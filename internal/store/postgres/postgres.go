// Package postgres implements every domain store on a pgx connection pool.
// All writes for one operation run in a single transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
)

// DB is the subset of pgxpool.Pool used here; pgxmock satisfies it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) atomic(ctx context.Context, fn func(tx *pgTx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// pgTx implements the Tx interface of every domain package.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) AppendAudit(ctx context.Context, e audit.Entry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_log (id, actor, action, details, prospect_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Actor, string(e.Action), e.Details, nullIfEmpty(e.ProspectID), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: append audit: %w", err)
	}
	return nil
}

func (t *pgTx) CreditXP(ctx context.Context, memberID string, xp int) error {
	_, err := t.tx.Exec(ctx, `UPDATE identities SET xp = xp + $2 WHERE id = $1`, identity.NormalizeID(memberID), xp)
	if err != nil {
		return fmt.Errorf("postgres: credit xp: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
