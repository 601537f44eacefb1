package backup

import (
	"net/http"
	"strings"

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

// Export handles GET /admin/backup
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	res, err := h.svc.Export(r.Context(), actor)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="outreach-backup.json"`)
	respond.JSON(w, http.StatusOK, res)
}

// Restore handles POST /admin/restore. With ?key= the archived copy is used,
// otherwise the body is the snapshot.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	if key := strings.TrimSpace(r.URL.Query().Get("key")); key != "" {
		res, err := h.svc.RestoreArchived(r.Context(), actor, key)
		if err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
		return
	}
	var snap Snapshot
	if err := respond.Decode(r, &snap); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Restore(r.Context(), actor, snap)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
