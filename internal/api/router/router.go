package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/backup"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/dashboard"
	"github.com/wolfman30/outreach-pipeline/internal/drafts"
	httpmiddleware "github.com/wolfman30/outreach-pipeline/internal/http/middleware"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type TokenVerifier interface {
	Verify(token string) (auth.Member, error)
}

// Directory answers membership and admin questions from the live roster.
type Directory interface {
	IsMember(ctx context.Context, id string) (bool, error)
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Verifier           TokenVerifier
	Directory          Directory
	LoginLimiter       *httpmiddleware.RateLimiter
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler

	Identity  *identity.Handler
	Prospects *outreach.Handler
	Audit     *audit.Handler

	// Optional; routes are not mounted when nil.
	Drafts    *drafts.Handler
	Creatives *creatives.Handler
	Meta      *meta.Handler
	Backup    *backup.Handler
	Dashboard *dashboard.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.BodyLimit(cfg.MaxBodyBytes))

	r.Group(func(public chi.Router) {
		public.Get("/healthz", healthz)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		login := public.With()
		if cfg.LoginLimiter != nil {
			login = public.With(httpmiddleware.RateLimit(cfg.LoginLimiter))
		}
		login.Post("/login", cfg.Identity.Login)
	})

	r.Group(func(member chi.Router) {
		member.Use(httpmiddleware.RequireMember(cfg.Verifier, cfg.Directory, cfg.Logger))
		requireAdmin := httpmiddleware.RequireAdmin(cfg.Directory, cfg.Logger)

		member.Get("/users/me", cfg.Identity.Me)
		member.Patch("/users/me/gamification", cfg.Identity.UpdateGamification)
		member.Get("/leaderboard", cfg.Identity.Leaderboard)

		member.Route("/speakers", func(speakers chi.Router) {
			speakers.Get("/", cfg.Prospects.List(outreach.KindSpeaker))
			speakers.Post("/", cfg.Prospects.Create(outreach.KindSpeaker))
			speakers.Patch("/bulk", cfg.Prospects.BulkUpdate)
			speakers.With(requireAdmin).Delete("/bulk", cfg.Prospects.BulkDelete)
			speakers.Route("/{id}", func(one chi.Router) {
				one.Get("/", cfg.Prospects.Get)
				one.Patch("/", cfg.Prospects.Update)
				one.Post("/assign", cfg.Prospects.Assign)
				one.Post("/unassign", cfg.Prospects.Unassign)
				one.Get("/logs", cfg.Audit.ForProspect)
				if cfg.Drafts != nil {
					one.Get("/ai-prompt", cfg.Drafts.Prompt)
					one.Post("/send-email", cfg.Drafts.SendEmail)
				}
			})
		})
		member.Route("/sponsors", func(sponsors chi.Router) {
			sponsors.Get("/", cfg.Prospects.List(outreach.KindSponsor))
			sponsors.Post("/", cfg.Prospects.Create(outreach.KindSponsor))
		})
		member.Get("/logs", cfg.Audit.List)

		if cfg.Drafts != nil {
			member.Post("/ingest", cfg.Drafts.Ingest)
			member.Post("/generate-email", cfg.Drafts.Generate)
			member.Post("/refine-email", cfg.Drafts.Refine)
			member.Post("/hunt-email", cfg.Drafts.Hunt)
			member.Post("/bulk-hunt-emails", cfg.Drafts.BulkHunt)
			member.Get("/hunted-emails", cfg.Drafts.ListHunted)
			member.Post("/approve-hunted-email", cfg.Drafts.Approve)
			member.Post("/discard-hunted-email", cfg.Drafts.Discard)
		}
		if cfg.Creatives != nil {
			member.Get("/creatives", cfg.Creatives.List)
			member.Post("/creatives", cfg.Creatives.Create)
			member.Patch("/creatives/{id}", cfg.Creatives.Update)
			member.Get("/creative-requests", cfg.Creatives.ListRequests)
			member.Post("/creative-requests", cfg.Creatives.CreateRequest)
			member.Patch("/creative-requests/{id}", cfg.Creatives.UpdateRequest)
		}
		if cfg.Meta != nil {
			member.Get("/meta/sprint-deadline", cfg.Meta.GetDeadline)
			member.With(requireAdmin).Post("/meta/sprint-deadline", cfg.Meta.SetDeadline)
		}
		if cfg.Dashboard != nil {
			member.Get("/dashboard", cfg.Dashboard.Get)
		}

		member.Route("/admin", func(admin chi.Router) {
			admin.Use(requireAdmin)
			admin.Get("/users", cfg.Identity.ListUsers)
			admin.Post("/users", cfg.Identity.AddUser)
			admin.Patch("/users/{id}", cfg.Identity.UpdateUser)
			admin.Delete("/users/{id}", cfg.Identity.RemoveUser)
			admin.Post("/purge-invalid", cfg.Prospects.Purge)
			if cfg.Backup != nil {
				admin.Get("/backup", cfg.Backup.Export)
				admin.Post("/restore", cfg.Backup.Restore)
			}
		})
	})

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
