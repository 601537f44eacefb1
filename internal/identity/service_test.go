package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/store/memory"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

const bootstrapID = "b25349"

var (
	root  = auth.Member{ID: bootstrapID, Name: "Asha", IsAdmin: true}
	admin = auth.Member{ID: "a100", Name: "Dev", IsAdmin: true}
)

func newService(t *testing.T) (*identity.Service, *memory.DB, *auth.Issuer) {
	t.Helper()
	db := memory.New()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	svc := identity.NewService(db.Identities(), issuer, bootstrapID, logging.Discard())

	roster, err := identity.ParseRoster([]byte(`
members:
  - id: B25349
    name: Asha
  - id: a100
    name: Dev
    admin: true
  - id: r42
    name: Ravi
    role: sponsor_outreach
`))
	require.NoError(t, err)
	n, err := svc.Seed(context.Background(), roster)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return svc, db, issuer
}

func TestSeed_OnlyOnEmptyDirectory(t *testing.T) {
	svc, _, _ := newService(t)
	n, err := svc.Seed(context.Background(), identity.Roster{Members: []identity.RosterMember{{ID: "x", Name: "X"}}})
	require.NoError(t, err)
	assert.Zero(t, n)

	boot, err := svc.Get(context.Background(), "B25349")
	require.NoError(t, err)
	assert.True(t, boot.IsAdmin)
	assert.Equal(t, identity.RoleAdmin, boot.Role)

	ravi, err := svc.Get(context.Background(), "r42")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleSponsorOutreach, ravi.Role)
}

func TestParseRoster_RejectsDuplicates(t *testing.T) {
	_, err := identity.ParseRoster([]byte("members:\n  - {id: A1, name: One}\n  - {id: a1, name: Two}\n"))
	require.ErrorIs(t, err, identity.ErrAlreadyAuthorized)

	_, err = identity.ParseRoster([]byte("members:\n  - {id: a1, name: One, role: JANITOR}\n"))
	require.ErrorIs(t, err, identity.ErrInvalidRole)
}

func TestLogin(t *testing.T) {
	svc, _, issuer := newService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "  R42 ")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, "r42", res.User.ID)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), res.User.LastLoginDate)

	member, err := issuer.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "r42", member.ID)
	assert.False(t, member.IsAdmin)

	_, err = svc.Login(ctx, "nobody")
	require.ErrorIs(t, err, identity.ErrNotRecognized)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestAdd_CaseInsensitiveUniqueness(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, admin, identity.NewIdentity{ID: "NEW1", Name: "Nia"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, admin, identity.NewIdentity{ID: "new1", Name: "Nia again"})
	require.ErrorIs(t, err, identity.ErrAlreadyAuthorized)

	var adds int
	for _, e := range db.AuditEntries() {
		if e.Action == audit.ActionAddUser {
			adds++
		}
	}
	assert.Equal(t, 1, adds)
}

func TestAdminGrant_OnlyBootstrap(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, admin, identity.NewIdentity{ID: "x1", Name: "X", IsAdmin: true})
	require.ErrorIs(t, err, identity.ErrAdminGrantForbidden)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	yes := true
	_, err = svc.Update(ctx, admin, "r42", identity.Patch{IsAdmin: &yes})
	require.ErrorIs(t, err, identity.ErrAdminGrantForbidden)

	got, err := svc.Update(ctx, root, "r42", identity.Patch{IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, identity.RoleAdmin, got.Role)

	ok, err := svc.IsAdmin(ctx, "R42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdate_RevokeAndBootstrapProtection(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	no := false

	got, err := svc.Update(ctx, admin, "a100", identity.Patch{IsAdmin: &no})
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)
	assert.Equal(t, identity.RoleSpeakerOutreach, got.Role)

	_, err = svc.Update(ctx, root, bootstrapID, identity.Patch{IsAdmin: &no})
	require.ErrorIs(t, err, identity.ErrBootstrapProtected)
}

func TestRemove(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	err := svc.Remove(ctx, admin, "A100")
	require.ErrorIs(t, err, identity.ErrSelfRemoval)

	err = svc.Remove(ctx, admin, bootstrapID)
	require.ErrorIs(t, err, identity.ErrBootstrapProtected)

	ok, err := svc.IsMember(ctx, "R42")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Remove(ctx, admin, "r42"))
	_, err = svc.Get(ctx, "r42")
	require.ErrorIs(t, err, identity.ErrNotFound)
	ok, err = svc.IsMember(ctx, "r42")
	require.NoError(t, err)
	assert.False(t, ok)

	entries := db.AuditEntries()
	require.NotEmpty(t, entries)
	assert.Equal(t, audit.ActionRemoveUser, entries[len(entries)-1].Action)
	assert.Equal(t, "Dev", entries[len(entries)-1].Actor)
}

func TestUpdateGamification(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	me := auth.Member{ID: "r42", Name: "Ravi"}
	xp, streak, date := 120, 4, "2026-03-02"

	got, err := svc.UpdateGamification(ctx, me, identity.GamificationPatch{XP: &xp, Streak: &streak, LastLoginDate: &date})
	require.NoError(t, err)
	assert.Equal(t, 120, got.XP)
	assert.Equal(t, 4, got.Streak)

	bad := -1
	_, err = svc.UpdateGamification(ctx, me, identity.GamificationPatch{XP: &bad})
	require.ErrorIs(t, err, identity.ErrInvalidCounters)

	badDate := "03/02/2026"
	_, err = svc.UpdateGamification(ctx, me, identity.GamificationPatch{LastLoginDate: &badDate})
	require.ErrorIs(t, err, identity.ErrInvalidDate)

	top, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "r42", top[0].ID)
}
