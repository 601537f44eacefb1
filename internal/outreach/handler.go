package outreach

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// Handler serves the speaker and sponsor worklists.
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

// List handles GET /speakers and GET /sponsors.
func (h *Handler) List(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.MemberFromContext(r.Context())
		filter, err := parseListFilter(r)
		if err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		filter.Kind = kind
		out, err := h.svc.List(r.Context(), actor, filter)
		if err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// Create handles POST /speakers and POST /sponsors.
func (h *Handler) Create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.MemberFromContext(r.Context())
		var in NewProspect
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		in.Kind = kind
		p, err := h.svc.Create(r.Context(), actor, in)
		if err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		respond.JSON(w, http.StatusCreated, p)
	}
}

// Get handles GET /speakers/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Update handles PATCH /speakers/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var patch Patch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	p, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// BulkUpdate handles PATCH /speakers/bulk
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req BulkUpdate
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	res, err := h.svc.BulkUpdate(r.Context(), actor, req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete handles DELETE /speakers/bulk
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req idsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	n, err := h.svc.BulkDelete(r.Context(), actor, req.IDs)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Successfully deleted %d speakers", n),
		"count":   n,
	})
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// Assign handles POST /speakers/{id}/assign?assigned_to= (or a JSON body).
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	assignee := r.URL.Query().Get("assigned_to")
	if assignee == "" {
		assignee = r.URL.Query().Get("assignedTo")
	}
	if assignee == "" && r.ContentLength != 0 {
		var req assignRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		assignee = req.AssignedTo
	}
	if strings.TrimSpace(assignee) == "" {
		respond.Error(w, r, h.logger, apperr.Validation("assigned_to is required"))
		return
	}
	p, err := h.svc.Assign(r.Context(), actor, chi.URLParam(r, "id"), assignee)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message":     "Speaker assigned successfully",
		"assigned_to": p.AssignedTo,
		"speaker":     p,
	})
}

// Unassign handles POST /speakers/{id}/unassign
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	p, err := h.svc.Unassign(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "Speaker unassigned successfully",
		"speaker": p,
	})
}

// Purge handles POST /admin/purge-invalid
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	res, err := h.svc.Purge(r.Context(), actor)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		AssignedTo: strings.ToLower(strings.TrimSpace(q.Get("assigned_to"))),
		Search:     q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return ListFilter{}, ErrInvalidStatus
		}
		filter.Status = st
	}
	var err error
	if filter.Unassigned, err = parseBool(q.Get("unassigned")); err != nil {
		return ListFilter{}, apperr.Validation("unassigned must be a boolean")
	}
	if filter.AssignedToMe, err = parseBool(q.Get("assigned_to_me")); err != nil {
		return ListFilter{}, apperr.Validation("assigned_to_me must be a boolean")
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			return ListFilter{}, apperr.Validation("limit must be a non-negative integer")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if filter.Offset, err = strconv.Atoi(raw); err != nil || filter.Offset < 0 {
			return ListFilter{}, apperr.Validation("offset must be a non-negative integer")
		}
	}
	return filter, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
