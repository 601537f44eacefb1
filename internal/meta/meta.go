// Package meta holds team-wide settings such as the sprint deadline.
package meta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/http/respond"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// Deadline is one sprint deadline setting. The newest one is current.
type Deadline struct {
	ID        string    `json:"id,omitempty"`
	Deadline  time.Time `json:"deadline"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNoDeadline is returned by stores when nothing has been set yet.
var ErrNoDeadline = errors.New("meta: no deadline set")

var ErrInvalidDeadline = apperr.New(apperr.KindValidation, "deadline is required")

type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	LatestDeadline(ctx context.Context) (Deadline, error)
}

type Tx interface {
	InsertDeadline(ctx context.Context, d Deadline) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

func NewService(store Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Current returns the latest deadline, or "now" attributed to system when none exists.
func (s *Service) Current(ctx context.Context) (Deadline, error) {
	d, err := s.store.LatestDeadline(ctx)
	if errors.Is(err, ErrNoDeadline) {
		now := s.now().UTC()
		return Deadline{Deadline: now, CreatedBy: "system", CreatedAt: now}, nil
	}
	if err != nil {
		return Deadline{}, fmt.Errorf("meta: current deadline: %w", err)
	}
	return d, nil
}

// SetDeadline records a new deadline. Admin only.
func (s *Service) SetDeadline(ctx context.Context, actor auth.Member, at time.Time) (Deadline, error) {
	if at.IsZero() {
		return Deadline{}, ErrInvalidDeadline
	}
	d := Deadline{ID: uuid.NewString(), Deadline: at.UTC(), CreatedBy: actor.ID, CreatedAt: s.now().UTC()}
	err := s.store.Atomic(ctx, func(tx Tx) error {
		if err := tx.InsertDeadline(ctx, d); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionSetDeadline,
			fmt.Sprintf("Set sprint deadline to %s", d.Deadline.Format(time.RFC3339)), ""))
	})
	if err != nil {
		return Deadline{}, fmt.Errorf("meta: set deadline: %w", err)
	}
	s.logger.Info("sprint deadline set", "deadline", d.Deadline, "actor", actor.ID)
	return d, nil
}

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

// GetDeadline handles GET /meta/sprint-deadline
func (h *Handler) GetDeadline(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Current(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// SetDeadline handles POST /meta/sprint-deadline
func (h *Handler) SetDeadline(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.MemberFromContext(r.Context())
	var req struct {
		Deadline time.Time `json:"deadline"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	d, err := h.svc.SetDeadline(r.Context(), actor, req.Deadline)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
