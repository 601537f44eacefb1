package outreach

import (
	"context"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
)

// Store persists prospects. Reads outside a transaction see committed state only.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	GetProspect(ctx context.Context, id string) (Prospect, error)
	ListProspects(ctx context.Context, filter ListFilter) ([]Prospect, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// Tx is the unit of work behind every mutation: the prospect write, the XP
// credit and the audit append commit or roll back together.
type Tx interface {
	// LockProspect reads a prospect and holds it against concurrent writers
	// until the transaction ends. Returns ErrNotFound on a miss.
	LockProspect(ctx context.Context, id string) (Prospect, error)
	InsertProspect(ctx context.Context, p Prospect) error
	SaveProspect(ctx context.Context, p Prospect) error
	DeleteProspects(ctx context.Context, ids []string) (int64, error)
	ProspectNameExists(ctx context.Context, kind Kind, name string) (bool, error)
	PurgeInvalidProspects(ctx context.Context) (PurgeResult, error)

	FindIdentity(ctx context.Context, id string) (identity.Identity, error)
	CreditXP(ctx context.Context, memberID string, xp int) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}
