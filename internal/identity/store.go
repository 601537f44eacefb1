package identity

import (
	"context"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
)

// Store persists the directory. Lookups return ErrNotFound on a miss.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	FindIdentity(ctx context.Context, id string) (Identity, error)
	ListIdentities(ctx context.Context) ([]Identity, error)
	Leaderboard(ctx context.Context, limit int) ([]Identity, error)
	CountIdentities(ctx context.Context) (int, error)
}

// Tx is the unit of work for directory mutations.
type Tx interface {
	FindIdentity(ctx context.Context, id string) (Identity, error)
	InsertIdentity(ctx context.Context, ident Identity) error
	SaveIdentity(ctx context.Context, ident Identity) error
	DeleteIdentity(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}
