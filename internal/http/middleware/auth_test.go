package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// directory maps member id to its admin flag.
type directory map[string]bool

func (d directory) IsMember(_ context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("db down")
	}
	_, ok := d[id]
	return ok, nil
}

func (d directory) IsAdmin(_ context.Context, id string) (bool, error) {
	if id == "flaky" {
		return false, errors.New("db down")
	}
	return d[id], nil
}

var roster = directory{"m1": false, "boss": true, "revoked": false, "flaky": true}

func signedMemberToken(t *testing.T, issuer *auth.Issuer, m auth.Member) string {
	t.Helper()
	token, _, err := issuer.Issue(m)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return issuer
}

func TestRequireMemberMissingHeader(t *testing.T) {
	handler := RequireMember(newIssuer(t), roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/speakers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireMemberInvalidToken(t *testing.T) {
	handler := RequireMember(newIssuer(t), roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/speakers", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireMemberPutsMemberOnContext(t *testing.T) {
	issuer := newIssuer(t)
	var got auth.Member
	handler := RequireMember(issuer, roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.MemberFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/speakers", nil)
	req.Header.Set("Authorization", "Bearer "+signedMemberToken(t, issuer, auth.Member{ID: "m1", Name: "Mo"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.ID != "m1" || got.Name != "Mo" {
		t.Fatalf("unexpected member %+v", got)
	}
}

func TestRequireMemberRereadsDirectory(t *testing.T) {
	issuer := newIssuer(t)
	handler := RequireMember(issuer, roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"current member", "m1", http.StatusOK},
		{"removed member", "gone", http.StatusUnauthorized},
		{"directory failure", "broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/speakers", nil)
			req.Header.Set("Authorization", "Bearer "+signedMemberToken(t, issuer, auth.Member{ID: tt.id, Name: "Mo"}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireAdminRereadsDirectory(t *testing.T) {
	issuer := newIssuer(t)
	chain := func() http.Handler {
		return RequireMember(issuer, roster, logging.Discard())(RequireAdmin(roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
	}

	tests := []struct {
		name   string
		member auth.Member
		want   int
	}{
		{"current admin", auth.Member{ID: "boss", IsAdmin: true}, http.StatusOK},
		{"token says admin but directory revoked", auth.Member{ID: "revoked", IsAdmin: true}, http.StatusForbidden},
		{"plain member", auth.Member{ID: "m1"}, http.StatusForbidden},
		{"directory failure", auth.Member{ID: "flaky", IsAdmin: true}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/speakers/bulk", nil)
			req.Header.Set("Authorization", "Bearer "+signedMemberToken(t, issuer, tt.member))
			rec := httptest.NewRecorder()
			chain().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireAdminWithoutMember(t *testing.T) {
	handler := RequireAdmin(roster, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
