package meta_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/store/memory"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

func TestDeadline_DefaultsThenLatestWins(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := meta.NewService(db.Meta(), logging.Discard())
	admin := auth.Member{ID: "b25349", Name: "Asha", IsAdmin: true}

	d, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "system", d.CreatedBy)

	first := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	_, err = svc.SetDeadline(ctx, admin, first)
	require.NoError(t, err)
	second := first.Add(48 * time.Hour)
	_, err = svc.SetDeadline(ctx, admin, second)
	require.NoError(t, err)

	d, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, d.Deadline.Equal(second))
	assert.Equal(t, "b25349", d.CreatedBy)

	entries := db.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionSetDeadline, entries[1].Action)
}

func TestHandler_SetDeadlineRequiresValue(t *testing.T) {
	db := memory.New()
	h := meta.NewHandler(meta.NewService(db.Meta(), logging.Discard()), logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/meta/sprint-deadline", strings.NewReader(`{}`))
	req = req.WithContext(auth.WithMember(req.Context(), auth.Member{ID: "b25349", Name: "Asha"}))
	rec := httptest.NewRecorder()
	h.SetDeadline(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/meta/sprint-deadline", strings.NewReader(`{"deadline":"2026-05-01T17:00:00Z"}`))
	req = req.WithContext(auth.WithMember(req.Context(), auth.Member{ID: "b25349", Name: "Asha"}))
	rec = httptest.NewRecorder()
	h.SetDeadline(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
