package drafts

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// Handler serves the AI draft, hunt and ingestion endpoints.
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

// prospectIDParam reads speaker_id, falling back to sponsor_id.
func prospectIDParam(r *http.Request) (string, error) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("speaker_id"))
	if id == "" {
		id = strings.TrimSpace(q.Get("sponsor_id"))
	}
	if id == "" {
		return "", apperr.Validation("speaker_id is required")
	}
	return id, nil
}

// Generate handles POST /generate-email?speaker_id=
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := prospectIDParam(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	d, err := h.svc.Generate(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

type refineRequest struct {
	CurrentDraft string `json:"current_draft"`
	Instruction  string `json:"instruction"`
}

// Refine handles POST /refine-email
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	d, err := h.svc.Refine(r.Context(), req.CurrentDraft, req.Instruction)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Prompt handles GET /speakers/{id}/ai-prompt
func (h *Handler) Prompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.svc.Prompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

// Hunt handles POST /hunt-email?speaker_id=
func (h *Handler) Hunt(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	id, err := prospectIDParam(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	out, err := h.svc.Hunt(r.Context(), actor, id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type bulkHuntRequest struct {
	IDs []string `json:"speaker_ids"`
}

// BulkHunt handles POST /bulk-hunt-emails
func (h *Handler) BulkHunt(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req bulkHuntRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	res, err := h.svc.BulkHunt(r.Context(), actor, req.IDs)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// ListHunted handles GET /hunted-emails
func (h *Handler) ListHunted(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListHunted(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type stagedRequest struct {
	ID    string `json:"speaker_id"`
	Email string `json:"email"`
}

func (r stagedRequest) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return apperr.Validation("speaker_id is required")
	}
	return nil
}

// Approve handles POST /approve-hunted-email
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req stagedRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	p, err := h.svc.Approve(r.Context(), actor, strings.TrimSpace(req.ID), req.Email)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Discard handles POST /discard-hunted-email
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req stagedRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.svc.Discard(r.Context(), actor, strings.TrimSpace(req.ID)); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

type ingestRequest struct {
	RawText string        `json:"raw_text"`
	Kind    outreach.Kind `json:"kind"`
	Batch   string        `json:"batch"`
}

// Ingest handles POST /ingest
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req ingestRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	kind := outreach.Kind(strings.ToUpper(strings.TrimSpace(string(req.Kind))))
	res, err := h.svc.Ingest(r.Context(), actor, req.RawText, kind, strings.TrimSpace(req.Batch))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// SendEmail handles POST /speakers/{id}/send-email
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	p, err := h.svc.SendEmail(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}
