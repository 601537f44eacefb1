package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/observability/metrics"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

var tracer = otel.Tracer("outreach.internal.outreach")

// Service runs every prospect mutation through the state machine.
type Service struct {
	store   Store
	metrics *metrics.OutreachMetrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewService(store Store, m *metrics.OutreachMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, metrics: m, logger: logger, now: time.Now}
}

// Get returns one prospect.
func (s *Service) Get(ctx context.Context, id string) (Prospect, error) {
	p, err := s.store.GetProspect(ctx, id)
	if err != nil {
		return Prospect{}, fmt.Errorf("outreach: get: %w", err)
	}
	return p, nil
}

// List returns the filtered worklist, most recently updated first.
func (s *Service) List(ctx context.Context, actor auth.Member, filter ListFilter) ([]Prospect, error) {
	filter = filter.Normalize()
	if filter.AssignedToMe {
		if filter.AssignedTo != "" && filter.AssignedTo != actor.ID {
			return []Prospect{}, nil
		}
		filter.AssignedTo = actor.ID
	}
	out, err := s.store.ListProspects(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("outreach: list: %w", err)
	}
	return out, nil
}

// Counts returns the pipeline board totals.
func (s *Service) Counts(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("outreach: counts: %w", err)
	}
	return counts, nil
}

// Create adds a prospect. Status defaults to SCOUTED and may only start past
// SCOUTED when contact info is supplied.
func (s *Service) Create(ctx context.Context, actor auth.Member, in NewProspect) (Prospect, error) {
	p, err := s.buildProspect(in)
	if err != nil {
		return Prospect{}, err
	}
	err = s.store.Atomic(ctx, func(tx Tx) error {
		if err := tx.InsertProspect(ctx, p); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAdd,
			fmt.Sprintf("Added %s %s to %s", kindLabel(p.Kind), p.Name, p.Status), p.ID))
	})
	if err != nil {
		return Prospect{}, fmt.Errorf("outreach: create: %w", err)
	}
	s.logger.Info("prospect created", "prospect_id", p.ID, "kind", p.Kind, "actor", actor.ID)
	return p, nil
}

func (s *Service) buildProspect(in NewProspect) (Prospect, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Prospect{}, ErrInvalidName
	}
	kind := in.Kind
	if kind == "" {
		kind = KindSpeaker
	}
	if !kind.Valid() {
		return Prospect{}, ErrInvalidKind
	}
	status := StatusScouted
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := ParseStatus(in.Status)
		if !ok {
			return Prospect{}, ErrInvalidStatus
		}
		status = parsed
	}
	priority, ok := ParsePriority(in.Priority)
	if !ok {
		return Prospect{}, ErrInvalidPriority
	}
	now := s.now().UTC()
	p := Prospect{
		ID:            uuid.NewString(),
		Kind:          kind,
		Name:          name,
		Domain:        strings.TrimSpace(in.Domain),
		Location:      strings.TrimSpace(in.Location),
		Angle:         strings.TrimSpace(in.Angle),
		Notes:         in.Notes,
		LinkedInURL:   strings.TrimSpace(in.LinkedInURL),
		SearchDetails: strings.TrimSpace(in.SearchDetails),
		Batch:         strings.TrimSpace(in.Batch),
		ContactMethod: strings.TrimSpace(in.ContactMethod),
		SPOCName:      strings.TrimSpace(in.SPOCName),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Status:        status,
		Priority:      priority,
		Tags:          strings.TrimSpace(in.Tags),
		IsBounty:      in.IsBounty,
		CreatedAt:     now,
		LastUpdated:   now,
		LastActivity:  now,
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		p.DueDate = &due
	}
	if p.Status != StatusScouted && !p.HasContact() {
		return Prospect{}, ErrContactRequired
	}
	return p, nil
}

// Update applies a partial update through the state machine: contact guard,
// auto-advance, XP credit and one audit entry, all in one transaction.
func (s *Service) Update(ctx context.Context, actor auth.Member, id string, patch Patch) (Prospect, error) {
	return s.update(ctx, actor, id, patch, "")
}

// ApplyHuntedEmail writes an approved AI-found email onto the prospect. It is
// an ordinary update, so a SCOUTED prospect auto-advances.
func (s *Service) ApplyHuntedEmail(ctx context.Context, actor auth.Member, id, email string) (Prospect, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Prospect{}, ErrNoEmail
	}
	return s.update(ctx, actor, id, Patch{Email: &email}, audit.ActionApproveEmail)
}

// RecordEmailSent moves a prospect to CONTACT_INITIATED after its draft was
// mailed. Prospects already further along keep their status.
func (s *Service) RecordEmailSent(ctx context.Context, actor auth.Member, id string) (Prospect, error) {
	current, err := s.store.GetProspect(ctx, id)
	if err != nil {
		return Prospect{}, fmt.Errorf("outreach: record send: %w", err)
	}
	var patch Patch
	if Rank(current.Status) < Rank(StatusContactInitiated) {
		next := string(StatusContactInitiated)
		patch.Status = &next
	}
	return s.update(ctx, actor, id, patch, audit.ActionSendEmail)
}

func (s *Service) update(ctx context.Context, actor auth.Member, id string, patch Patch, tag audit.Action) (Prospect, error) {
	ctx, span := tracer.Start(ctx, "outreach.update")
	defer span.End()
	span.SetAttributes(attribute.String("outreach.prospect_id", id))

	var proposed *Status
	if patch.Status != nil {
		st, ok := ParseStatus(*patch.Status)
		if !ok {
			return Prospect{}, ErrInvalidStatus
		}
		proposed = &st
	}
	if patch.Priority != nil {
		pr, ok := ParsePriority(*patch.Priority)
		if !ok {
			return Prospect{}, ErrInvalidPriority
		}
		normalized := string(pr)
		patch.Priority = &normalized
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Prospect{}, ErrInvalidName
	}

	var (
		updated  Prospect
		decision Decision
		previous Status
	)
	err := s.store.Atomic(ctx, func(tx Tx) error {
		p, err := tx.LockProspect(ctx, id)
		if err != nil {
			return err
		}
		previous = p.Status
		wasBounty := p.IsBounty
		patch.apply(&p)
		if patch.Priority != nil {
			p.Priority = Priority(*patch.Priority)
		}

		decision = Evaluate(previous, proposed, p.HasContact(), patch.contactSupplied())
		if !decision.Allow {
			return ErrContactRequired
		}
		p.Status = decision.Next
		p.touch(s.now().UTC())
		if err := tx.SaveProspect(ctx, p); err != nil {
			return err
		}
		if decision.XP > 0 {
			if err := tx.CreditXP(ctx, actor.ID, decision.XP); err != nil {
				return err
			}
		}
		action, details := describeUpdate(p, previous, decision, wasBounty, patch)
		if tag != "" {
			action, details = tag, describeTagged(tag, p, previous, decision)
		}
		updated = p
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, action, details, p.ID))
	})
	if err != nil {
		span.RecordError(err)
		return Prospect{}, fmt.Errorf("outreach: update: %w", err)
	}
	if decision.Changed(previous) {
		s.metrics.ObserveTransition(string(decision.Next), decision.AutoAdvanced, decision.XP)
		s.logger.Info("prospect moved",
			"prospect_id", id,
			"from", previous,
			"to", decision.Next,
			"auto", decision.AutoAdvanced,
			"xp", decision.XP,
			"actor", actor.ID,
		)
	}
	return updated, nil
}

func describeUpdate(p Prospect, previous Status, d Decision, wasBounty bool, patch Patch) (audit.Action, string) {
	switch {
	case d.Changed(previous):
		return audit.ActionMove, moveDetails(p, d)
	case patch.IsBounty != nil && *patch.IsBounty != wasBounty:
		verb := "Unmarked"
		if p.IsBounty {
			verb = "Marked"
		}
		return audit.ActionBounty, fmt.Sprintf("%s %s as Bounty", verb, p.Name)
	default:
		return audit.ActionUpdate, fmt.Sprintf("Updated profile for %s", p.Name)
	}
}

func describeTagged(tag audit.Action, p Prospect, previous Status, d Decision) string {
	var base string
	switch tag {
	case audit.ActionApproveEmail:
		base = fmt.Sprintf("Approved hunted email %s for %s", p.Email, p.Name)
	case audit.ActionSendEmail:
		base = fmt.Sprintf("Sent outreach email to %s", p.Name)
	default:
		base = fmt.Sprintf("Updated %s", p.Name)
	}
	if d.Changed(previous) {
		base += "; " + moveDetails(p, d)
	}
	return base
}

func moveDetails(p Prospect, d Decision) string {
	details := fmt.Sprintf("Moved %s to %s", p.Name, d.Next)
	if d.XP > 0 {
		details += fmt.Sprintf(" (+%d XP)", d.XP)
	}
	return details
}

// BulkUpdate applies one payload to many prospects in a single transaction.
// Items failing the contact guard are skipped and counted; unknown ids are
// counted as missing. An unknown assignee rejects the whole batch. Status
// changes credit XP like single updates.
func (s *Service) BulkUpdate(ctx context.Context, actor auth.Member, b BulkUpdate) (BulkResult, error) {
	ctx, span := tracer.Start(ctx, "outreach.bulk_update")
	defer span.End()

	ids := UniqueIDs(b.IDs)
	if len(ids) == 0 {
		return BulkResult{}, ErrNoIDs
	}
	var status *Status
	if b.Status != nil {
		st, ok := ParseStatus(*b.Status)
		if !ok {
			return BulkResult{}, ErrInvalidStatus
		}
		status = &st
	}
	var priority Priority
	if b.Priority != nil {
		pr, ok := ParsePriority(*b.Priority)
		if !ok {
			return BulkResult{}, ErrInvalidPriority
		}
		priority = pr
	}
	span.SetAttributes(attribute.Int("outreach.bulk.size", len(ids)))

	var (
		res   BulkResult
		xp    int
		moves []Decision
	)
	err := s.store.Atomic(ctx, func(tx Tx) error {
		res, xp, moves = BulkResult{}, 0, nil
		now := s.now().UTC()
		if b.Assignee == AssigneeSet {
			if _, err := tx.FindIdentity(ctx, b.AssigneeID); errors.Is(err, identity.ErrNotFound) {
				return ErrAssigneeNotFound
			} else if err != nil {
				return err
			}
		}
		for _, id := range ids {
			p, err := tx.LockProspect(ctx, id)
			if errors.Is(err, ErrNotFound) {
				res.Missing++
				continue
			}
			if err != nil {
				return err
			}
			modified := false
			if status != nil {
				d := Evaluate(p.Status, status, p.HasContact(), false)
				if !d.Allow {
					res.Skipped++
					continue
				}
				if d.Changed(p.Status) {
					xp += d.XP
					moves = append(moves, d)
				}
				p.Status = d.Next
				modified = true
			}
			switch b.Assignee {
			case AssigneeClear:
				p.AssignedTo, p.AssignedBy, p.AssignedAt = "", "", nil
				modified = true
			case AssigneeSet:
				at := now
				p.AssignedTo, p.AssignedBy, p.AssignedAt = b.AssigneeID, actor.ID, &at
				modified = true
			}
			if b.IsBounty != nil {
				p.IsBounty = *b.IsBounty
				modified = true
			}
			if b.Priority != nil {
				p.Priority = priority
				modified = true
			}
			if !modified {
				continue
			}
			p.touch(now)
			if err := tx.SaveProspect(ctx, p); err != nil {
				return err
			}
			res.Updated++
		}
		if res.Updated == 0 {
			return nil
		}
		if xp > 0 {
			if err := tx.CreditXP(ctx, actor.ID, xp); err != nil {
				return err
			}
		}
		details := fmt.Sprintf("Updated %d speakers (Skipped %d due to missing email)", res.Updated, res.Skipped)
		if xp > 0 {
			details += fmt.Sprintf(" (+%d XP)", xp)
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionBulkUpdate, details, ""))
	})
	if err != nil {
		span.RecordError(err)
		return BulkResult{}, fmt.Errorf("outreach: bulk update: %w", err)
	}
	for _, d := range moves {
		s.metrics.ObserveTransition(string(d.Next), false, d.XP)
	}
	s.metrics.ObserveBulk("update", res.Updated, res.Skipped)
	res.Message = fmt.Sprintf("Successfully updated %d speakers. Skipped %d lacking email.", res.Updated, res.Skipped)
	s.logger.Info("bulk update applied", "updated", res.Updated, "skipped", res.Skipped, "missing", res.Missing, "actor", actor.ID)
	return res, nil
}

// BulkDelete hard-deletes prospects. Admin only; the router enforces that.
func (s *Service) BulkDelete(ctx context.Context, actor auth.Member, ids []string) (int64, error) {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, ErrNoIDs
	}
	var deleted int64
	err := s.store.Atomic(ctx, func(tx Tx) error {
		n, err := tx.DeleteProspects(ctx, ids)
		if err != nil {
			return err
		}
		deleted = n
		if n == 0 {
			return nil
		}
		preview := ids
		if len(preview) > 5 {
			preview = preview[:5]
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionBulkDelete,
			fmt.Sprintf("Deleted %d speakers (IDs: %s...)", n, strings.Join(preview, ", ")), ""))
	})
	if err != nil {
		return 0, fmt.Errorf("outreach: bulk delete: %w", err)
	}
	s.metrics.ObserveBulk("delete", int(deleted), len(ids)-int(deleted))
	s.logger.Info("bulk delete applied", "deleted", deleted, "actor", actor.ID)
	return deleted, nil
}

// Assign hands a prospect to a member.
func (s *Service) Assign(ctx context.Context, actor auth.Member, id, assigneeID string) (Prospect, error) {
	assigneeID = identity.NormalizeID(assigneeID)
	if assigneeID == "" {
		return Prospect{}, ErrAssigneeNotFound
	}
	var updated Prospect
	err := s.store.Atomic(ctx, func(tx Tx) error {
		p, err := tx.LockProspect(ctx, id)
		if err != nil {
			return err
		}
		assignee, err := tx.FindIdentity(ctx, assigneeID)
		if errors.Is(err, identity.ErrNotFound) {
			return ErrAssigneeNotFound
		}
		if err != nil {
			return err
		}
		now := s.now().UTC()
		p.AssignedTo, p.AssignedBy, p.AssignedAt = assignee.ID, actor.ID, &now
		p.touch(now)
		if err := tx.SaveProspect(ctx, p); err != nil {
			return err
		}
		updated = p
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAssign,
			fmt.Sprintf("Assigned %s to %s", p.Name, assignee.Name), p.ID))
	})
	if err != nil {
		return Prospect{}, fmt.Errorf("outreach: assign: %w", err)
	}
	return updated, nil
}

// Unassign releases a prospect.
func (s *Service) Unassign(ctx context.Context, actor auth.Member, id string) (Prospect, error) {
	var updated Prospect
	err := s.store.Atomic(ctx, func(tx Tx) error {
		p, err := tx.LockProspect(ctx, id)
		if err != nil {
			return err
		}
		p.AssignedTo, p.AssignedBy, p.AssignedAt = "", "", nil
		p.touch(s.now().UTC())
		if err := tx.SaveProspect(ctx, p); err != nil {
			return err
		}
		updated = p
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionUnassign,
			fmt.Sprintf("Unassigned %s", p.Name), p.ID))
	})
	if err != nil {
		return Prospect{}, fmt.Errorf("outreach: unassign: %w", err)
	}
	return updated, nil
}

// DiscardHuntedEmail records that a staged email was rejected.
func (s *Service) DiscardHuntedEmail(ctx context.Context, actor auth.Member, id, email string) error {
	err := s.store.Atomic(ctx, func(tx Tx) error {
		p, err := tx.LockProspect(ctx, id)
		if err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionDiscardEmail,
			fmt.Sprintf("Discarded hunted email %s for %s", email, p.Name), p.ID))
	})
	if err != nil {
		return fmt.Errorf("outreach: discard hunted email: %w", err)
	}
	return nil
}

// Purge deletes rows whose name is a spreadsheet placeholder and clears
// placeholder assignees. Admin only.
func (s *Service) Purge(ctx context.Context, actor auth.Member) (PurgeResult, error) {
	var res PurgeResult
	err := s.store.Atomic(ctx, func(tx Tx) error {
		r, err := tx.PurgeInvalidProspects(ctx)
		if err != nil {
			return err
		}
		res = r
		if r.Purged == 0 && r.Fixed == 0 {
			return nil
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionPurge,
			fmt.Sprintf("Purged %d invalid speakers, fixed %d assignments", r.Purged, r.Fixed), ""))
	})
	if err != nil {
		return PurgeResult{}, fmt.Errorf("outreach: purge: %w", err)
	}
	s.logger.Info("purge applied", "purged", res.Purged, "fixed", res.Fixed, "actor", actor.ID)
	return res, nil
}

// Ingest creates prospects from AI-extracted candidates, skipping names that
// already exist for the kind. Each created prospect gets its own ADD entry.
func (s *Service) Ingest(ctx context.Context, actor auth.Member, kind Kind, batch string, candidates []Candidate) (IngestResult, error) {
	if kind == "" {
		kind = KindSpeaker
	}
	if !kind.Valid() {
		return IngestResult{}, ErrInvalidKind
	}
	var res IngestResult
	err := s.store.Atomic(ctx, func(tx Tx) error {
		res = IngestResult{Created: []Prospect{}, Duplicates: []string{}}
		seen := map[string]struct{}{}
		for _, c := range candidates {
			name := strings.TrimSpace(c.Name)
			if name == "" || IsPlaceholderName(name) {
				continue
			}
			if _, dup := seen[name]; dup {
				res.Duplicates = append(res.Duplicates, name)
				continue
			}
			seen[name] = struct{}{}
			exists, err := tx.ProspectNameExists(ctx, kind, name)
			if err != nil {
				return err
			}
			if exists {
				res.Duplicates = append(res.Duplicates, name)
				continue
			}
			p, err := s.buildProspect(NewProspect{
				Kind: kind, Name: name, Domain: c.Domain, Location: c.Location,
				Angle: c.Angle, Email: c.Email, Phone: c.Phone, Batch: batch,
			})
			if err != nil {
				return err
			}
			if err := tx.InsertProspect(ctx, p); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAdd,
				fmt.Sprintf("Added %s %s to %s via AI ingestion", kindLabel(kind), p.Name, p.Status), p.ID)); err != nil {
				return err
			}
			res.Created = append(res.Created, p)
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("outreach: ingest: %w", err)
	}
	s.logger.Info("ingestion applied", "created", len(res.Created), "duplicates", len(res.Duplicates), "actor", actor.ID)
	return res, nil
}

// Rank is the position of s in the pipeline, -1 when unknown.
func Rank(s Status) int {
	for i, st := range Pipeline {
		if st == s {
			return i
		}
	}
	return -1
}

// PlaceholderNames are lowercase names left behind by spreadsheet imports.
var PlaceholderNames = []string{"nan", "none", "unknown", "null"}

// IsPlaceholderName reports names left behind by spreadsheet imports.
func IsPlaceholderName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, p := range PlaceholderNames {
		if name == p {
			return true
		}
	}
	return false
}

func kindLabel(k Kind) string {
	if k == KindSponsor {
		return "sponsor"
	}
	return "speaker"
}

// UniqueIDs trims ids and drops blanks and repeats, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
