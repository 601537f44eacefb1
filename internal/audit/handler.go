package audit

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type lister interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Handler exposes audit history over HTTP.
type Handler struct {
	reader lister
	logger *logging.Logger
}

func NewHandler(reader lister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// List handles GET /logs?limit=&offset=&actor=&action=MOVE,ASSIGN
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	entries, err := h.reader.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

// ForProspect handles GET /speakers/{id}/logs
func (h *Handler) ForProspect(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	filter.ProspectID = strings.TrimSpace(chi.URLParam(r, "id"))
	if filter.ProspectID == "" {
		respond.Message(w, http.StatusBadRequest, "missing speaker id")
		return
	}
	entries, err := h.reader.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var filter Filter
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Filter{}, apperr.Validation("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Filter{}, apperr.Validation("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	filter.Actor = strings.TrimSpace(q.Get("actor"))
	for _, raw := range q["action"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			action := Action(part)
			if !action.Valid() {
				return Filter{}, apperr.Validation("unknown action " + part)
			}
			filter.Actions = append(filter.Actions, action)
		}
	}
	return filter, nil
}
