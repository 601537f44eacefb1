package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type stubLister struct {
	got     Filter
	entries []Entry
}

func (s *stubLister) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.got = filter
	return s.entries, nil
}

func TestHandler_ListParsesActions(t *testing.T) {
	stub := &stubLister{entries: []Entry{NewEntry("Asha", ActionMove, "Moved Ada to LOCKED (+500 XP)", "p1")}}
	h := NewHandler(stub, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/logs?limit=20&action=move,assign&action=BULK_UPDATE", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, stub.got.Limit)
	assert.Equal(t, []Action{ActionMove, ActionAssign, ActionBulkUpdate}, stub.got.Actions)

	var out []Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Asha", out[0].Actor)
}

func TestHandler_ListRejectsUnknownAction(t *testing.T) {
	h := NewHandler(&stubLister{}, logging.Discard())
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/logs?action=EXPLODE", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ForProspectUsesURLParam(t *testing.T) {
	stub := &stubLister{}
	h := NewHandler(stub, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/speakers/p9/logs", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "p9")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.ForProspect(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p9", stub.got.ProspectID)
}
