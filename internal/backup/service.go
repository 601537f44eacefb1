package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

var ErrArchiveDisabled = apperr.New(apperr.KindValidation, "backup archive is not configured")

type Service struct {
	store    Store
	archiver *Archiver
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(store Store, archiver *Archiver, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, archiver: archiver, logger: logger, now: time.Now}
}

// ExportResult is a snapshot plus where its archived copy lives.
type ExportResult struct {
	Snapshot
	ArchiveKey string `json:"archive_key,omitempty"`
}

// Export reads the dataset. A failed archive upload is logged and the export
// is still returned.
func (s *Service) Export(ctx context.Context, actor auth.Member) (ExportResult, error) {
	snap, err := s.store.ExportSnapshot(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("backup: export: %w", err)
	}
	snap.Version = SnapshotVersion
	snap.Timestamp = s.now().UTC()

	res := ExportResult{Snapshot: snap}
	key, err := s.archiver.Put(ctx, snap)
	if err != nil {
		s.logger.Warn("backup archive failed", "error", err, "actor", actor.ID)
	}
	res.ArchiveKey = key
	s.logger.Info("backup exported", "speakers", len(snap.Prospects), "users", len(snap.Identities), "actor", actor.ID)
	return res, nil
}

// Restore replaces the whole dataset with snap. Any failure leaves prior state intact.
func (s *Service) Restore(ctx context.Context, actor auth.Member, snap Snapshot) (RestoreResult, error) {
	if err := snap.Validate(); err != nil {
		return RestoreResult{}, err
	}
	// The restored log is the snapshot's log; nothing is appended to it.
	err := s.store.Atomic(ctx, func(tx Tx) error {
		return tx.ReplaceAll(ctx, snap)
	})
	if err != nil {
		return RestoreResult{}, fmt.Errorf("backup: restore: %w", err)
	}
	s.logger.Info("backup restored",
		"snapshot_at", snap.Timestamp.UTC().Format(time.RFC3339),
		"speakers", len(snap.Prospects),
		"users", len(snap.Identities),
		"logs", len(snap.AuditLog),
		"actor", actor.ID,
	)
	return RestoreResult{
		Prospects:        len(snap.Prospects),
		Identities:       len(snap.Identities),
		AuditLog:         len(snap.AuditLog),
		Creatives:        len(snap.Creatives),
		CreativeRequests: len(snap.CreativeRequests),
		Deadlines:        len(snap.Deadlines),
	}, nil
}

// RestoreArchived restores the snapshot stored under key in the archive bucket.
func (s *Service) RestoreArchived(ctx context.Context, actor auth.Member, key string) (RestoreResult, error) {
	snap, err := s.archiver.Get(ctx, key)
	if err != nil {
		return RestoreResult{}, err
	}
	return s.Restore(ctx, actor, snap)
}
