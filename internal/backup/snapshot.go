// Package backup exports the whole dataset and restores it transactionally.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

const SnapshotVersion = 1

// Snapshot is a full copy of the dataset.
type Snapshot struct {
	Version          int                 `json:"version"`
	Timestamp        time.Time           `json:"timestamp"`
	Prospects        []outreach.Prospect `json:"speakers"`
	Identities       []identity.Identity `json:"authorized_users"`
	AuditLog         []audit.Entry       `json:"logs"`
	Creatives        []creatives.Asset   `json:"creatives"`
	CreativeRequests []creatives.Request `json:"creative_requests"`
	Deadlines        []meta.Deadline     `json:"deadlines"`
}

// Store reads and replaces the dataset.
type Store interface {
	ExportSnapshot(ctx context.Context) (Snapshot, error)
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx replaces everything in one transaction.
type Tx interface {
	ReplaceAll(ctx context.Context, snap Snapshot) error
}

var (
	ErrUnsupportedVersion = apperr.New(apperr.KindValidation, "unsupported backup version")
	ErrNoAdmin            = apperr.New(apperr.KindValidation, "backup contains no admin user")
)

// Validate checks a snapshot before it replaces live data.
func (s Snapshot) Validate() error {
	if s.Version != 0 && s.Version != SnapshotVersion {
		return ErrUnsupportedVersion
	}
	hasAdmin := false
	seenIDs := map[string]struct{}{}
	for _, ident := range s.Identities {
		id := identity.NormalizeID(ident.ID)
		if id == "" {
			return apperr.Validation("backup contains a user without an id")
		}
		if _, dup := seenIDs[id]; dup {
			return apperr.Validation(fmt.Sprintf("backup contains duplicate user %s", id))
		}
		seenIDs[id] = struct{}{}
		if ident.IsAdmin {
			hasAdmin = true
		}
	}
	if !hasAdmin {
		return ErrNoAdmin
	}
	seenProspects := map[string]struct{}{}
	for _, p := range s.Prospects {
		if p.ID == "" || p.Name == "" {
			return apperr.Validation("backup contains a speaker without id or name")
		}
		if _, dup := seenProspects[p.ID]; dup {
			return apperr.Validation(fmt.Sprintf("backup contains duplicate speaker %s", p.ID))
		}
		seenProspects[p.ID] = struct{}{}
	}
	return nil
}

// RestoreResult reports what a restore wrote.
type RestoreResult struct {
	Prospects        int `json:"speakers"`
	Identities       int `json:"authorized_users"`
	AuditLog         int `json:"logs"`
	Creatives        int `json:"creatives"`
	CreativeRequests int `json:"creative_requests"`
	Deadlines        int `json:"deadlines"`
}
