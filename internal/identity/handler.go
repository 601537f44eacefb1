package identity

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// Handler serves login, self-service and roster endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type loginRequest struct {
	ID         string `json:"id"`
	RollNumber string `json:"roll_number"`
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	id := req.ID
	if id == "" {
		id = req.RollNumber
	}
	res, err := h.svc.Login(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Me handles GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	member, ok := auth.MemberFromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("unauthenticated"))
		return
	}
	ident, err := h.svc.Get(r.Context(), member.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ident)
}

// UpdateGamification handles PATCH /users/me/gamification
func (h *Handler) UpdateGamification(w http.ResponseWriter, r *http.Request) {
	member, ok := auth.MemberFromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("unauthenticated"))
		return
	}
	var patch GamificationPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ident, err := h.svc.UpdateGamification(r.Context(), member, patch)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ident)
}

// Leaderboard handles GET /leaderboard?limit=
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	idents, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, idents)
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	idents, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, idents)
}

// AddUser handles POST /admin/users
func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var in NewIdentity
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ident, err := h.svc.Add(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ident)
}

// UpdateUser handles PATCH /admin/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var patch Patch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ident, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ident)
}

// RemoveUser handles DELETE /admin/users/{id}
func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	if err := h.svc.Remove(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
