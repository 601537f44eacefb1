// Package memory is an in-process store used by tests and local runs without
// Postgres. Transactions are serialized; a failed transaction restores the
// dataset as it was when the transaction began.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/backup"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

type dataset struct {
	prospects  map[string]outreach.Prospect
	identities map[string]identity.Identity
	audit      []audit.Entry
	creatives  map[string]creatives.Asset
	requests   map[string]creatives.Request
	deadlines  []meta.Deadline
}

func newDataset() *dataset {
	return &dataset{
		prospects:  map[string]outreach.Prospect{},
		identities: map[string]identity.Identity{},
		creatives:  map[string]creatives.Asset{},
		requests:   map[string]creatives.Request{},
	}
}

func (d *dataset) clone() *dataset {
	out := newDataset()
	for k, v := range d.prospects {
		out.prospects[k] = v
	}
	for k, v := range d.identities {
		out.identities[k] = v
	}
	for k, v := range d.creatives {
		out.creatives[k] = v
	}
	for k, v := range d.requests {
		out.requests[k] = v
	}
	out.audit = append([]audit.Entry(nil), d.audit...)
	out.deadlines = append([]meta.Deadline(nil), d.deadlines...)
	return out
}

// DB holds the whole dataset behind one mutex.
type DB struct {
	mu   sync.Mutex
	data *dataset
}

func New() *DB {
	return &DB{data: newDataset()}
}

func (db *DB) atomic(fn func(tx *memTx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	before := db.data.clone()
	if err := fn(&memTx{data: db.data}); err != nil {
		db.data = before
		return err
	}
	return nil
}

func (db *DB) read(fn func(d *dataset)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.data)
}

// AuditEntries returns every entry in append order.
func (db *DB) AuditEntries() []audit.Entry {
	var out []audit.Entry
	db.read(func(d *dataset) { out = append(out, d.audit...) })
	return out
}

// ListAudit mirrors audit.Reader.List.
func (db *DB) ListAudit(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	actions := map[audit.Action]struct{}{}
	for _, a := range filter.Actions {
		actions[a] = struct{}{}
	}
	var matched []audit.Entry
	db.read(func(d *dataset) {
		for i := len(d.audit) - 1; i >= 0; i-- {
			e := d.audit[i]
			if filter.ProspectID != "" && e.ProspectID != filter.ProspectID {
				continue
			}
			if filter.Actor != "" && e.Actor != filter.Actor {
				continue
			}
			if len(actions) > 0 {
				if _, ok := actions[e.Action]; !ok {
					continue
				}
			}
			if !filter.Since.IsZero() && e.CreatedAt.Before(filter.Since) {
				continue
			}
			matched = append(matched, e)
		}
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	if limit > audit.MaxLimit {
		limit = audit.MaxLimit
	}
	if filter.Offset >= len(matched) {
		return []audit.Entry{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ActivityByDay mirrors audit.Reader.ActivityByDay.
func (db *DB) ActivityByDay(_ context.Context, start, end time.Time) ([]audit.ActivityDay, error) {
	byDay := map[string]*audit.ActivityDay{}
	db.read(func(d *dataset) {
		for _, e := range d.audit {
			ts := e.CreatedAt.UTC()
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			key := day.Format("2006-01-02")
			a, ok := byDay[key]
			if !ok {
				a = &audit.ActivityDay{Day: day, DayLabel: key}
				byDay[key] = a
			}
			a.Total++
			if e.Action == audit.ActionMove {
				a.Moves++
			}
		}
	})
	out := make([]audit.ActivityDay, 0, len(byDay))
	for _, a := range byDay {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// memTx implements the Tx interface of every domain package.
type memTx struct {
	data *dataset
}

func (t *memTx) AppendAudit(_ context.Context, entry audit.Entry) error {
	t.data.audit = append(t.data.audit, entry)
	return nil
}

func (t *memTx) FindIdentity(_ context.Context, id string) (identity.Identity, error) {
	ident, ok := t.data.identities[identity.NormalizeID(id)]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, nil
}

func (t *memTx) InsertIdentity(_ context.Context, ident identity.Identity) error {
	id := identity.NormalizeID(ident.ID)
	if _, ok := t.data.identities[id]; ok {
		return identity.ErrAlreadyAuthorized
	}
	ident.ID = id
	t.data.identities[id] = ident
	return nil
}

func (t *memTx) SaveIdentity(_ context.Context, ident identity.Identity) error {
	id := identity.NormalizeID(ident.ID)
	if _, ok := t.data.identities[id]; !ok {
		return identity.ErrNotFound
	}
	t.data.identities[id] = ident
	return nil
}

func (t *memTx) DeleteIdentity(_ context.Context, id string) error {
	id = identity.NormalizeID(id)
	if _, ok := t.data.identities[id]; !ok {
		return identity.ErrNotFound
	}
	delete(t.data.identities, id)
	return nil
}

// CreditXP is a no-op for members no longer in the directory.
func (t *memTx) CreditXP(_ context.Context, memberID string, xp int) error {
	id := identity.NormalizeID(memberID)
	ident, ok := t.data.identities[id]
	if !ok {
		return nil
	}
	ident.XP += xp
	t.data.identities[id] = ident
	return nil
}

func (t *memTx) LockProspect(_ context.Context, id string) (outreach.Prospect, error) {
	p, ok := t.data.prospects[id]
	if !ok {
		return outreach.Prospect{}, outreach.ErrNotFound
	}
	return p, nil
}

func (t *memTx) InsertProspect(_ context.Context, p outreach.Prospect) error {
	t.data.prospects[p.ID] = p
	return nil
}

func (t *memTx) SaveProspect(_ context.Context, p outreach.Prospect) error {
	if _, ok := t.data.prospects[p.ID]; !ok {
		return outreach.ErrNotFound
	}
	t.data.prospects[p.ID] = p
	return nil
}

func (t *memTx) DeleteProspects(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := t.data.prospects[id]; ok {
			delete(t.data.prospects, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) ProspectNameExists(_ context.Context, kind outreach.Kind, name string) (bool, error) {
	for _, p := range t.data.prospects {
		if p.Kind == kind && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// PurgeInvalidProspects deletes placeholder-named rows and clears assignees
// that do not resolve to a directory member.
func (t *memTx) PurgeInvalidProspects(_ context.Context) (outreach.PurgeResult, error) {
	var res outreach.PurgeResult
	for id, p := range t.data.prospects {
		if outreach.IsPlaceholderName(p.Name) {
			delete(t.data.prospects, id)
			res.Purged++
			continue
		}
		if p.AssignedTo == "" {
			continue
		}
		if _, ok := t.data.identities[p.AssignedTo]; ok {
			continue
		}
		p.AssignedTo, p.AssignedBy, p.AssignedAt = "", "", nil
		t.data.prospects[id] = p
		res.Fixed++
	}
	return res, nil
}

func (t *memTx) LockCreative(_ context.Context, id string) (creatives.Asset, error) {
	a, ok := t.data.creatives[id]
	if !ok {
		return creatives.Asset{}, creatives.ErrNotFound
	}
	return a, nil
}

func (t *memTx) InsertCreative(_ context.Context, a creatives.Asset) error {
	t.data.creatives[a.ID] = a
	return nil
}

func (t *memTx) SaveCreative(_ context.Context, a creatives.Asset) error {
	if _, ok := t.data.creatives[a.ID]; !ok {
		return creatives.ErrNotFound
	}
	t.data.creatives[a.ID] = a
	return nil
}

func (t *memTx) LockCreativeRequest(_ context.Context, id string) (creatives.Request, error) {
	r, ok := t.data.requests[id]
	if !ok {
		return creatives.Request{}, creatives.ErrRequestNotFound
	}
	return r, nil
}

func (t *memTx) InsertCreativeRequest(_ context.Context, r creatives.Request) error {
	t.data.requests[r.ID] = r
	return nil
}

func (t *memTx) SaveCreativeRequest(_ context.Context, r creatives.Request) error {
	if _, ok := t.data.requests[r.ID]; !ok {
		return creatives.ErrRequestNotFound
	}
	t.data.requests[r.ID] = r
	return nil
}

func (t *memTx) InsertDeadline(_ context.Context, d meta.Deadline) error {
	t.data.deadlines = append(t.data.deadlines, d)
	return nil
}

func (t *memTx) ReplaceAll(_ context.Context, snap backup.Snapshot) error {
	fresh := newDataset()
	for _, p := range snap.Prospects {
		fresh.prospects[p.ID] = p
	}
	for _, ident := range snap.Identities {
		ident.ID = identity.NormalizeID(ident.ID)
		fresh.identities[ident.ID] = ident
	}
	for _, a := range snap.Creatives {
		fresh.creatives[a.ID] = a
	}
	for _, r := range snap.CreativeRequests {
		fresh.requests[r.ID] = r
	}
	fresh.audit = append(fresh.audit, snap.AuditLog...)
	fresh.deadlines = append(fresh.deadlines, snap.Deadlines...)
	*t.data = *fresh
	return nil
}

func sortProspects(ps []outreach.Prospect) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].LastUpdated.Equal(ps[j].LastUpdated) {
			return ps[i].LastUpdated.After(ps[j].LastUpdated)
		}
		return ps[i].ID < ps[j].ID
	})
}
