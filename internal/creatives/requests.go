package creatives

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
)

func (s *Service) ListRequests(ctx context.Context) ([]Request, error) {
	out, err := s.store.ListCreativeRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("creatives: list requests: %w", err)
	}
	return out, nil
}

// CreateRequest files a request on behalf of actor. New requests start PENDING.
func (s *Service) CreateRequest(ctx context.Context, actor auth.Member, in NewRequest) (Request, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Request{}, ErrMissingTitle
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Request{}, ErrMissingDescription
	}
	priority, ok := outreach.ParsePriority(in.Priority)
	if !ok {
		return Request{}, ErrInvalidPriority
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		return Request{}, err
	}
	now := s.now().UTC()
	req := Request{
		ID:          uuid.NewString(),
		Title:       title,
		Description: desc,
		Priority:    string(priority),
		DueDate:     due,
		Notes:       in.Notes,
		Status:      RequestPending,
		RequestedBy: actor.ID,
		CreatedAt:   now,
		LastUpdated: now,
	}
	err = s.store.Atomic(ctx, func(tx Tx) error {
		if err := tx.InsertCreativeRequest(ctx, req); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAddCreativeRequest,
			fmt.Sprintf("Requested creative %s (%s)", req.Title, req.Priority), ""))
	})
	if err != nil {
		return Request{}, fmt.Errorf("creatives: create request: %w", err)
	}
	s.logger.Info("creative requested", "request_id", req.ID, "priority", req.Priority, "actor", actor.ID)
	return req, nil
}

// UpdateRequest applies p. Reaching COMPLETED stamps CompletedAt once;
// reopening keeps the original stamp.
func (s *Service) UpdateRequest(ctx context.Context, actor auth.Member, id string, p RequestPatch) (Request, error) {
	var status RequestStatus
	if p.Status != nil {
		st, ok := ParseRequestStatus(*p.Status)
		if !ok || strings.TrimSpace(*p.Status) == "" {
			return Request{}, ErrInvalidRequestStatus
		}
		status = st
	}
	var priority outreach.Priority
	if p.Priority != nil {
		pr, ok := outreach.ParsePriority(*p.Priority)
		if !ok {
			return Request{}, ErrInvalidPriority
		}
		priority = pr
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Request{}, ErrMissingTitle
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return Request{}, ErrMissingDescription
	}
	var due *time.Time
	if p.DueDate != nil {
		d, err := parseDueDate(*p.DueDate)
		if err != nil {
			return Request{}, err
		}
		due = d
	}

	var updated Request
	err := s.store.Atomic(ctx, func(tx Tx) error {
		req, err := tx.LockCreativeRequest(ctx, id)
		if err != nil {
			return err
		}
		before := req.Status
		if p.Title != nil {
			req.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			req.Description = strings.TrimSpace(*p.Description)
		}
		if p.Priority != nil {
			req.Priority = string(priority)
		}
		if p.DueDate != nil {
			req.DueDate = due
		}
		if p.Notes != nil {
			req.Notes = *p.Notes
		}
		if p.AssignedTo != nil {
			req.AssignedTo = strings.ToLower(strings.TrimSpace(*p.AssignedTo))
		}
		now := s.now().UTC()
		if status != "" {
			req.Status = status
			if status == RequestCompleted && req.CompletedAt == nil {
				req.CompletedAt = &now
			}
		}
		req.LastUpdated = now
		if err := tx.SaveCreativeRequest(ctx, req); err != nil {
			return err
		}
		details := fmt.Sprintf("Updated creative request %s", req.Title)
		if req.Status != before {
			details = fmt.Sprintf("Moved creative request %s to %s", req.Title, req.Status)
		}
		updated = req
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionUpdateCreativeRequest, details, ""))
	})
	if err != nil {
		return Request{}, fmt.Errorf("creatives: update request: %w", err)
	}
	return updated, nil
}
