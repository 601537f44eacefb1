package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

func TestAtomic_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := New()
	store := db.Prospects()

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(tx outreach.Tx) error {
		require.NoError(t, tx.InsertProspect(ctx, outreach.Prospect{ID: "p1", Name: "Ada"}))
		require.NoError(t, tx.AppendAudit(ctx, audit.NewEntry("Admin", audit.ActionAdd, "Added Ada", "p1")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetProspect(ctx, "p1")
	assert.ErrorIs(t, err, outreach.ErrNotFound)
	assert.Empty(t, db.AuditEntries())
}

func TestCreditXP_IgnoresUnknownMember(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Identities().Atomic(ctx, func(tx identity.Tx) error {
		return tx.InsertIdentity(ctx, identity.Identity{ID: "R1", Name: "Ravi"})
	}))

	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		if err := tx.CreditXP(ctx, "r1", 50); err != nil {
			return err
		}
		return tx.CreditXP(ctx, "ghost", 10)
	}))

	ident, err := db.Identities().FindIdentity(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, 50, ident.XP)
}

func TestPurgeInvalidProspects(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Identities().Atomic(ctx, func(tx identity.Tx) error {
		return tx.InsertIdentity(ctx, identity.Identity{ID: "r1", Name: "Ravi"})
	}))
	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		for _, p := range []outreach.Prospect{
			{ID: "a", Name: "nan"},
			{ID: "b", Name: "  "},
			{ID: "c", Name: "Grace", AssignedTo: "ghost"},
			{ID: "d", Name: "Linus", AssignedTo: "r1"},
		} {
			if err := tx.InsertProspect(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	var res outreach.PurgeResult
	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		var err error
		res, err = tx.PurgeInvalidProspects(ctx)
		return err
	}))
	assert.Equal(t, outreach.PurgeResult{Purged: 2, Fixed: 1}, res)

	c, err := db.Prospects().GetProspect(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, c.AssignedTo)
	d, err := db.Prospects().GetProspect(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "r1", d.AssignedTo)
}

func TestListAudit_NewestFirstWithFilters(t *testing.T) {
	ctx := context.Background()
	db := New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		for i, action := range []audit.Action{audit.ActionAdd, audit.ActionMove, audit.ActionAssign} {
			e := audit.NewEntry("Ravi", action, string(action), "p1")
			e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			if err := tx.AppendAudit(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	all, err := db.AuditLog().List(ctx, audit.Filter{ProspectID: "p1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, audit.ActionAssign, all[0].Action)

	moves, err := db.AuditLog().List(ctx, audit.Filter{Actions: []audit.Action{audit.ActionMove}})
	require.NoError(t, err)
	require.Len(t, moves, 1)

	paged, err := db.AuditLog().List(ctx, audit.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, audit.ActionMove, paged[0].Action)
}

func TestListProspects_OrderAndPaging(t *testing.T) {
	ctx := context.Background()
	db := New()
	now := time.Now().UTC()
	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		for i, name := range []string{"Old", "Mid", "New"} {
			p := outreach.Prospect{ID: name, Name: name, Kind: outreach.KindSpeaker, Status: outreach.StatusScouted,
				LastUpdated: now.Add(time.Duration(i) * time.Hour)}
			if err := tx.InsertProspect(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := db.Prospects().ListProspects(ctx, outreach.ListFilter{Kind: outreach.KindSpeaker, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "New", got[0].ID)
	assert.Equal(t, "Mid", got[1].ID)
}

func TestActivityByDay(t *testing.T) {
	ctx := context.Background()
	db := New()
	base := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	require.NoError(t, db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		for i, action := range []audit.Action{audit.ActionMove, audit.ActionAdd, audit.ActionMove, audit.ActionMove} {
			e := audit.NewEntry("Ravi", action, "", "p1")
			e.CreatedAt = base.Add(time.Duration(i) * 20 * time.Minute)
			if err := tx.AppendAudit(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	days, err := db.ActivityByDay(ctx, base.Truncate(24*time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-01", days[0].DayLabel)
	assert.EqualValues(t, 2, days[0].Total)
	assert.EqualValues(t, 1, days[0].Moves)
	// the 4th entry at 00:30 falls outside the window
	assert.Equal(t, "2026-03-02", days[1].DayLabel)
	assert.EqualValues(t, 1, days[1].Total)
}
