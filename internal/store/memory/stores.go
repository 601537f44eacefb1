package memory

import (
	"context"
	"sort"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/backup"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

// Prospects returns the outreach.Store view of db.
func (db *DB) Prospects() *ProspectStore { return &ProspectStore{db: db} }

// Identities returns the identity.Store view of db.
func (db *DB) Identities() *IdentityStore { return &IdentityStore{db: db} }

// Creatives returns the creatives.Store view of db.
func (db *DB) Creatives() *CreativeStore { return &CreativeStore{db: db} }

// Meta returns the meta.Store view of db.
func (db *DB) Meta() *MetaStore { return &MetaStore{db: db} }

// Backup returns the backup.Store view of db.
func (db *DB) Backup() *BackupStore { return &BackupStore{db: db} }

type ProspectStore struct{ db *DB }

func (s *ProspectStore) Atomic(_ context.Context, fn func(tx outreach.Tx) error) error {
	return s.db.atomic(func(tx *memTx) error { return fn(tx) })
}

func (s *ProspectStore) GetProspect(_ context.Context, id string) (outreach.Prospect, error) {
	var (
		p  outreach.Prospect
		ok bool
	)
	s.db.read(func(d *dataset) { p, ok = d.prospects[id] })
	if !ok {
		return outreach.Prospect{}, outreach.ErrNotFound
	}
	return p, nil
}

func (s *ProspectStore) ListProspects(_ context.Context, filter outreach.ListFilter) ([]outreach.Prospect, error) {
	filter = filter.Normalize()
	out := []outreach.Prospect{}
	s.db.read(func(d *dataset) {
		for _, p := range d.prospects {
			if filter.Matches(p) {
				out = append(out, p)
			}
		}
	})
	sortProspects(out)
	if filter.Offset >= len(out) {
		return []outreach.Prospect{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *ProspectStore) CountByStatus(_ context.Context) ([]outreach.StatusCount, error) {
	type key struct {
		kind   outreach.Kind
		status outreach.Status
	}
	counts := map[key]int{}
	s.db.read(func(d *dataset) {
		for _, p := range d.prospects {
			counts[key{p.Kind, p.Status}]++
		}
	})
	out := make([]outreach.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, outreach.StatusCount{Kind: k.kind, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return outreach.Rank(out[i].Status) < outreach.Rank(out[j].Status)
	})
	return out, nil
}

type IdentityStore struct{ db *DB }

func (s *IdentityStore) Atomic(_ context.Context, fn func(tx identity.Tx) error) error {
	return s.db.atomic(func(tx *memTx) error { return fn(tx) })
}

func (s *IdentityStore) FindIdentity(_ context.Context, id string) (identity.Identity, error) {
	var (
		ident identity.Identity
		ok    bool
	)
	s.db.read(func(d *dataset) { ident, ok = d.identities[identity.NormalizeID(id)] })
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, nil
}

func (s *IdentityStore) ListIdentities(_ context.Context) ([]identity.Identity, error) {
	out := []identity.Identity{}
	s.db.read(func(d *dataset) {
		for _, ident := range d.identities {
			out = append(out, ident)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *IdentityStore) Leaderboard(ctx context.Context, limit int) ([]identity.Identity, error) {
	all, _ := s.ListIdentities(ctx)
	sort.SliceStable(all, func(i, j int) bool { return all[i].XP > all[j].XP })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *IdentityStore) CountIdentities(_ context.Context) (int, error) {
	var n int
	s.db.read(func(d *dataset) { n = len(d.identities) })
	return n, nil
}

type CreativeStore struct{ db *DB }

func (s *CreativeStore) Atomic(_ context.Context, fn func(tx creatives.Tx) error) error {
	return s.db.atomic(func(tx *memTx) error { return fn(tx) })
}

func (s *CreativeStore) ListCreatives(_ context.Context, status creatives.Status) ([]creatives.Asset, error) {
	out := []creatives.Asset{}
	s.db.read(func(d *dataset) {
		for _, a := range d.creatives {
			if status == "" || a.Status == status {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *CreativeStore) ListCreativeRequests(_ context.Context) ([]creatives.Request, error) {
	out := []creatives.Request{}
	s.db.read(func(d *dataset) {
		for _, r := range d.requests {
			out = append(out, r)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MetaStore struct{ db *DB }

func (s *MetaStore) Atomic(_ context.Context, fn func(tx meta.Tx) error) error {
	return s.db.atomic(func(tx *memTx) error { return fn(tx) })
}

func (s *MetaStore) LatestDeadline(_ context.Context) (meta.Deadline, error) {
	var (
		d  meta.Deadline
		ok bool
	)
	s.db.read(func(ds *dataset) {
		for _, cur := range ds.deadlines {
			if !ok || cur.CreatedAt.After(d.CreatedAt) || cur.CreatedAt.Equal(d.CreatedAt) {
				d, ok = cur, true
			}
		}
	})
	if !ok {
		return meta.Deadline{}, meta.ErrNoDeadline
	}
	return d, nil
}

type BackupStore struct{ db *DB }

func (s *BackupStore) Atomic(_ context.Context, fn func(tx backup.Tx) error) error {
	return s.db.atomic(func(tx *memTx) error { return fn(tx) })
}

func (s *BackupStore) ExportSnapshot(_ context.Context) (backup.Snapshot, error) {
	snap := backup.Snapshot{
		Prospects:        []outreach.Prospect{},
		Identities:       []identity.Identity{},
		Creatives:        []creatives.Asset{},
		CreativeRequests: []creatives.Request{},
	}
	s.db.read(func(d *dataset) {
		for _, p := range d.prospects {
			snap.Prospects = append(snap.Prospects, p)
		}
		for _, ident := range d.identities {
			snap.Identities = append(snap.Identities, ident)
		}
		for _, a := range d.creatives {
			snap.Creatives = append(snap.Creatives, a)
		}
		for _, r := range d.requests {
			snap.CreativeRequests = append(snap.CreativeRequests, r)
		}
		snap.AuditLog = append(snap.AuditLog, d.audit...)
		snap.Deadlines = append(snap.Deadlines, d.deadlines...)
	})
	sort.Slice(snap.Prospects, func(i, j int) bool { return snap.Prospects[i].ID < snap.Prospects[j].ID })
	sort.Slice(snap.Identities, func(i, j int) bool { return snap.Identities[i].ID < snap.Identities[j].ID })
	sort.Slice(snap.Creatives, func(i, j int) bool { return snap.Creatives[i].ID < snap.Creatives[j].ID })
	sort.Slice(snap.CreativeRequests, func(i, j int) bool { return snap.CreativeRequests[i].ID < snap.CreativeRequests[j].ID })
	return snap, nil
}

var (
	_ outreach.Store  = (*ProspectStore)(nil)
	_ identity.Store  = (*IdentityStore)(nil)
	_ creatives.Store = (*CreativeStore)(nil)
	_ meta.Store      = (*MetaStore)(nil)
	_ backup.Store    = (*BackupStore)(nil)
)

// AuditLog returns a reader over the in-memory audit log.
func (db *DB) AuditLog() *AuditReader { return &AuditReader{db: db} }

type AuditReader struct{ db *DB }

func (r *AuditReader) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	return r.db.ListAudit(ctx, filter)
}
