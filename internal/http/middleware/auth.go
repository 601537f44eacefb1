package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type tokenVerifier interface {
	Verify(token string) (auth.Member, error)
}

type memberChecker interface {
	IsMember(ctx context.Context, id string) (bool, error)
}

type adminChecker interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// RequireMember rejects requests without a valid bearer credential and puts
// the member on the request context. A credential whose member has left the
// directory is rejected even before it expires.
func RequireMember(verifier tokenVerifier, directory memberChecker, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				respond.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			member, err := verifier.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				respond.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			ok, err := directory.IsMember(r.Context(), member.ID)
			if err != nil {
				logger.Error("member check failed", "error", err, "member_id", member.ID)
				respond.Message(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				logger.Warn("credential for removed member", "member_id", member.ID)
				respond.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithMember(r.Context(), member)))
		})
	}
}

// RequireAdmin must run after RequireMember. The admin flag in the token is
// not trusted: the directory is consulted on every request so a revoked admin
// loses access immediately.
func RequireAdmin(checker adminChecker, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, ok := auth.MemberFromContext(r.Context())
			if !ok {
				respond.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			isAdmin, err := checker.IsAdmin(r.Context(), member.ID)
			if err != nil {
				logger.Error("admin check failed", "error", err, "member_id", member.ID)
				respond.Message(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !isAdmin {
				respond.Message(w, http.StatusForbidden, "forbidden")
				return
			}
			member.IsAdmin = true
			next.ServeHTTP(w, r.WithContext(auth.WithMember(r.Context(), member)))
		})
	}
}
