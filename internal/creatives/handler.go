package creatives

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

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

// List handles GET /creatives?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Create handles POST /creatives
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var in NewAsset
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	a, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

// Update handles PATCH /creatives/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var p Patch
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	a, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), p)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

// ListRequests handles GET /creative-requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListRequests(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// CreateRequest handles POST /creative-requests. The caller becomes requested_by.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var in NewRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	req, err := h.svc.CreateRequest(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, req)
}

// UpdateRequest handles PATCH /creative-requests/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var p RequestPatch
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	req, err := h.svc.UpdateRequest(r.Context(), actor, chi.URLParam(r, "id"), p)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}
