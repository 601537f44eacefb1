package outreach_test

import (
	"context"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/internal/store/memory"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

var actor = auth.Member{ID: "r42", Name: "Ravi"}

type fixture struct {
	db  *memory.DB
	svc *outreach.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Identities().Atomic(ctx, func(tx identity.Tx) error {
		if err := tx.InsertIdentity(ctx, identity.Identity{ID: actor.ID, Name: actor.Name, Role: identity.RoleSpeakerOutreach}); err != nil {
			return err
		}
		return tx.InsertIdentity(ctx, identity.Identity{ID: "m7", Name: "Meera", Role: identity.RoleSponsorOutreach})
	}))
	return fixture{db: db, svc: outreach.NewService(db.Prospects(), nil, logging.Discard())}
}

// seed creates a prospect and forces it to status with the given contact.
func (f fixture) seed(t *testing.T, status outreach.Status, email, phone string) outreach.Prospect {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.Create(ctx, actor, outreach.NewProspect{Name: gofakeit.Name(), Domain: gofakeit.JobTitle()})
	require.NoError(t, err)
	require.NoError(t, f.db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		p.Status, p.Email, p.Phone = status, email, phone
		return tx.SaveProspect(ctx, p)
	}))
	return p
}

func (f fixture) xp(t *testing.T, id string) int {
	t.Helper()
	ident, err := f.db.Identities().FindIdentity(context.Background(), id)
	require.NoError(t, err)
	return ident.XP
}

func ptr[T any](v T) *T { return &v }

func TestCreate_DefaultsToScoutedSpeaker(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Create(context.Background(), actor, outreach.NewProspect{Name: " Ada Lovelace "})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, outreach.KindSpeaker, p.Kind)
	assert.Equal(t, outreach.StatusScouted, p.Status)
	assert.Equal(t, outreach.PriorityMedium, p.Priority)

	entries := f.db.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionAdd, entries[0].Action)
	assert.Equal(t, p.ID, entries[0].ProspectID)
}

func TestCreate_RejectsAdvancedStatusWithoutContact(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), actor, outreach.NewProspect{Name: "Ada", Status: "CONNECTED"})
	require.ErrorIs(t, err, outreach.ErrContactRequired)
	assert.Empty(t, f.db.AuditEntries())
}

func TestUpdate_EmailOnScoutedAutoAdvances(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")

	got, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{Email: ptr(gofakeit.Email())})
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusEmailAdded, got.Status)
	assert.Equal(t, outreach.XPFor(outreach.StatusEmailAdded), f.xp(t, actor.ID))
}

func TestUpdate_ExplicitStatusBeatsAutoAdvance(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")

	got, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{
		Phone:  ptr(gofakeit.Phone()),
		Status: ptr("RESEARCHED"),
	})
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusResearched, got.Status)
}

func TestUpdate_GuardLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")
	before := len(f.db.AuditEntries())

	_, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{Status: ptr("RESEARCHED")})
	require.ErrorIs(t, err, outreach.ErrContactRequired)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	stored, err := f.svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusScouted, stored.Status)
	assert.Len(t, f.db.AuditEntries(), before)
	assert.Zero(t, f.xp(t, actor.ID))
}

func TestUpdate_ContactInitiatedCreditsFiftyOnce(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusDrafted, gofakeit.Email(), "")
	before := len(f.db.AuditEntries())

	_, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{Status: ptr("CONTACT_INITIATED")})
	require.NoError(t, err)
	assert.Equal(t, 50, f.xp(t, actor.ID))

	entries := f.db.AuditEntries()[before:]
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionMove, entries[0].Action)
	assert.Contains(t, entries[0].Details, "CONTACT_INITIATED")
	assert.Contains(t, entries[0].Details, "+50 XP")

	// Same status again is not a transition.
	_, err = f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{Status: ptr("CONTACT_INITIATED")})
	require.NoError(t, err)
	assert.Equal(t, 50, f.xp(t, actor.ID))
}

func TestUpdate_ClearingContactPastScoutedIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusResearched, "a@b.co", "")

	_, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{Email: ptr("")})
	require.ErrorIs(t, err, outreach.ErrContactRequired)
}

func TestUpdate_BountyToggleIsAudited(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")

	_, err := f.svc.Update(context.Background(), actor, p.ID, outreach.Patch{IsBounty: ptr(true)})
	require.NoError(t, err)
	entries := f.db.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionBounty, last.Action)
	assert.True(t, strings.HasPrefix(last.Details, "Marked"))
}

func TestUpdate_UnknownProspect(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), actor, "missing", outreach.Patch{Notes: ptr("x")})
	require.ErrorIs(t, err, outreach.ErrNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestBulkUpdate_SkipsProspectsWithoutContact(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, outreach.StatusResearched, gofakeit.Email(), "")
	b := f.seed(t, outreach.StatusScouted, "", "")
	c := f.seed(t, outreach.StatusDrafted, "", gofakeit.Phone())

	res, err := f.svc.BulkUpdate(context.Background(), actor, outreach.BulkUpdate{
		IDs:    []string{a.ID, b.ID, c.ID, "ghost"},
		Status: ptr("CONNECTED"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Missing)
	assert.Equal(t, "Successfully updated 2 speakers. Skipped 1 lacking email.", res.Message)

	stored, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusScouted, stored.Status)
	assert.Equal(t, 200, f.xp(t, actor.ID))

	entries := f.db.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionBulkUpdate, last.Action)
	assert.Contains(t, last.Details, "Updated 2 speakers (Skipped 1 due to missing email)")
}

func TestBulkUpdate_AssigneeSentinels(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")
	ctx := context.Background()

	var b outreach.BulkUpdate
	require.NoError(t, b.UnmarshalJSON([]byte(`{"ids":["`+p.ID+`"],"assigned_to":"M7"}`)))
	_, err := f.svc.BulkUpdate(ctx, actor, b)
	require.NoError(t, err)
	got, _ := f.svc.Get(ctx, p.ID)
	assert.Equal(t, "m7", got.AssignedTo)

	require.NoError(t, b.UnmarshalJSON([]byte(`{"ids":["`+p.ID+`"],"assigned_to":"NaN"}`)))
	res, err := f.svc.BulkUpdate(ctx, actor, b)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	got, _ = f.svc.Get(ctx, p.ID)
	assert.Equal(t, "m7", got.AssignedTo)

	require.NoError(t, b.UnmarshalJSON([]byte(`{"ids":["`+p.ID+`"],"assigned_to":null}`)))
	_, err = f.svc.BulkUpdate(ctx, actor, b)
	require.NoError(t, err)
	got, _ = f.svc.Get(ctx, p.ID)
	assert.Empty(t, got.AssignedTo)
}

func TestBulkUpdate_UnknownAssigneeRejectsBatch(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, outreach.StatusScouted, "", "")
	b := f.seed(t, outreach.StatusScouted, "", "")
	ctx := context.Background()
	entries := len(f.db.AuditEntries())

	var in outreach.BulkUpdate
	require.NoError(t, in.UnmarshalJSON([]byte(`{"ids":["`+a.ID+`","`+b.ID+`"],"assigned_to":"nobody","is_bounty":true}`)))
	_, err := f.svc.BulkUpdate(ctx, actor, in)
	require.ErrorIs(t, err, outreach.ErrAssigneeNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	for _, id := range []string{a.ID, b.ID} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.AssignedTo)
		assert.False(t, got.IsBounty)
	}
	assert.Len(t, f.db.AuditEntries(), entries)
}

func TestBulkUpdate_EmptyIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BulkUpdate(context.Background(), actor, outreach.BulkUpdate{})
	require.ErrorIs(t, err, outreach.ErrNoIDs)
}

func TestAssignAndUnassign(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, actor, p.ID, "nobody")
	require.ErrorIs(t, err, outreach.ErrAssigneeNotFound)

	got, err := f.svc.Assign(ctx, actor, p.ID, "M7")
	require.NoError(t, err)
	assert.Equal(t, "m7", got.AssignedTo)
	assert.Equal(t, actor.ID, got.AssignedBy)
	require.NotNil(t, got.AssignedAt)

	mine, err := f.svc.List(ctx, auth.Member{ID: "m7"}, outreach.ListFilter{AssignedToMe: true})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	got, err = f.svc.Unassign(ctx, actor, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTo)
	assert.Nil(t, got.AssignedAt)

	entries := f.db.AuditEntries()
	assert.Equal(t, audit.ActionUnassign, entries[len(entries)-1].Action)
	assert.Equal(t, audit.ActionAssign, entries[len(entries)-2].Action)
}

func TestRecordEmailSent_DoesNotMoveBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drafted := f.seed(t, outreach.StatusDrafted, gofakeit.Email(), "")
	talks := f.seed(t, outreach.StatusInTalks, gofakeit.Email(), "")

	got, err := f.svc.RecordEmailSent(ctx, actor, drafted.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusContactInitiated, got.Status)

	got, err = f.svc.RecordEmailSent(ctx, actor, talks.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusInTalks, got.Status)
	assert.Equal(t, 50, f.xp(t, actor.ID))

	entries := f.db.AuditEntries()
	assert.Equal(t, audit.ActionSendEmail, entries[len(entries)-1].Action)
}

func TestApplyHuntedEmail_AutoAdvances(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, outreach.StatusScouted, "", "")

	got, err := f.svc.ApplyHuntedEmail(context.Background(), actor, p.ID, "found@example.org")
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusEmailAdded, got.Status)
	assert.Equal(t, "found@example.org", got.Email)

	entries := f.db.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionApproveEmail, last.Action)
	assert.Contains(t, last.Details, "Moved")
}

func TestBulkDeleteAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, outreach.StatusScouted, "", "")
	b := f.seed(t, outreach.StatusScouted, "", "")

	n, err := f.svc.BulkDelete(ctx, actor, []string{a.ID, a.ID, "ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, f.db.Prospects().Atomic(ctx, func(tx outreach.Tx) error {
		return tx.InsertProspect(ctx, outreach.Prospect{ID: "junk", Name: "None", Kind: outreach.KindSpeaker, Status: outreach.StatusScouted})
	}))
	res, err := f.svc.Purge(ctx, actor)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Purged)

	_, err = f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	entries := f.db.AuditEntries()
	assert.Equal(t, audit.ActionPurge, entries[len(entries)-1].Action)
}

func TestIngest_SkipsDuplicatesAndPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.seed(t, outreach.StatusScouted, "", "")

	res, err := f.svc.Ingest(ctx, actor, outreach.KindSpeaker, "batch-3", []outreach.Candidate{
		{Name: "Acme Robotics", Email: "hi@acme.test"},
		{Name: "Acme Robotics"},
		{Name: "nan"},
		{Name: existing.Name},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, []string{"Acme Robotics", existing.Name}, res.Duplicates)
	assert.Equal(t, "batch-3", res.Created[0].Batch)
	assert.Equal(t, outreach.StatusScouted, res.Created[0].Status)

	sponsors, err := f.svc.Ingest(ctx, actor, outreach.KindSponsor, "", []outreach.Candidate{{Name: existing.Name}})
	require.NoError(t, err)
	require.Len(t, sponsors.Created, 1)
	assert.Equal(t, outreach.KindSponsor, sponsors.Created[0].Kind)
}

func TestIngest_NamesDifferingOnlyByCaseAreDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, actor, outreach.NewProspect{Name: "Ada Lovelace"})
	require.NoError(t, err)

	res, err := f.svc.Ingest(ctx, actor, outreach.KindSpeaker, "", []outreach.Candidate{
		{Name: "ada lovelace"},
		{Name: "Ada Lovelace"},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "ada lovelace", res.Created[0].Name)
	assert.Equal(t, []string{"Ada Lovelace"}, res.Duplicates)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, outreach.UniqueIDs([]string{" a", "b", "", "a ", "c", "b"}))
	assert.Empty(t, outreach.UniqueIDs(nil))
}
