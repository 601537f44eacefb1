package creatives

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

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

func (s *Service) List(ctx context.Context, rawStatus string) ([]Asset, error) {
	var status Status
	if strings.TrimSpace(rawStatus) != "" {
		st, ok := ParseStatus(rawStatus)
		if !ok {
			return nil, ErrInvalidStatus
		}
		status = st
	}
	out, err := s.store.ListCreatives(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("creatives: list: %w", err)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Member, in NewAsset) (Asset, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Asset{}, ErrMissingTitle
	}
	status, ok := ParseStatus(in.Status)
	if !ok {
		return Asset{}, ErrInvalidStatus
	}
	now := s.now().UTC()
	a := Asset{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   in.Description,
		AssetType:     strings.TrimSpace(in.AssetType),
		Platform:      strings.TrimSpace(in.Platform),
		CreativeBrief: in.CreativeBrief,
		MoodboardURL:  strings.TrimSpace(in.MoodboardURL),
		Status:        status,
		Priority:      strings.ToUpper(strings.TrimSpace(in.Priority)),
		AssignedTo:    strings.ToLower(strings.TrimSpace(in.AssignedTo)),
		DueDate:       in.DueDate,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		LastUpdated:   now,
	}
	if a.Priority == "" {
		a.Priority = "MEDIUM"
	}
	err := s.store.Atomic(ctx, func(tx Tx) error {
		if err := tx.InsertCreative(ctx, a); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAddCreative,
			fmt.Sprintf("Added creative %s (%s)", a.Title, a.Status), ""))
	})
	if err != nil {
		return Asset{}, fmt.Errorf("creatives: create: %w", err)
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Member, id string, p Patch) (Asset, error) {
	var status Status
	if p.Status != nil {
		st, ok := ParseStatus(*p.Status)
		if !ok || strings.TrimSpace(*p.Status) == "" {
			return Asset{}, ErrInvalidStatus
		}
		status = st
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Asset{}, ErrMissingTitle
	}
	var updated Asset
	err := s.store.Atomic(ctx, func(tx Tx) error {
		a, err := tx.LockCreative(ctx, id)
		if err != nil {
			return err
		}
		before := a.Status
		if p.Title != nil {
			a.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			a.Description = *p.Description
		}
		if p.AssetType != nil {
			a.AssetType = strings.TrimSpace(*p.AssetType)
		}
		if p.Platform != nil {
			a.Platform = strings.TrimSpace(*p.Platform)
		}
		if p.CreativeBrief != nil {
			a.CreativeBrief = *p.CreativeBrief
		}
		if p.MoodboardURL != nil {
			a.MoodboardURL = strings.TrimSpace(*p.MoodboardURL)
		}
		if p.Priority != nil {
			a.Priority = strings.ToUpper(strings.TrimSpace(*p.Priority))
		}
		if p.AssignedTo != nil {
			a.AssignedTo = strings.ToLower(strings.TrimSpace(*p.AssignedTo))
		}
		if p.DueDate != nil {
			a.DueDate = p.DueDate
		}
		if status != "" {
			a.Status = status
		}
		a.LastUpdated = s.now().UTC()
		if err := tx.SaveCreative(ctx, a); err != nil {
			return err
		}
		details := fmt.Sprintf("Updated creative %s", a.Title)
		if a.Status != before {
			details = fmt.Sprintf("Moved creative %s to %s", a.Title, a.Status)
		}
		updated = a
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionUpdateCreative, details, ""))
	})
	if err != nil {
		return Asset{}, fmt.Errorf("creatives: update: %w", err)
	}
	return updated, nil
}
