package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/notify"
	"github.com/wolfman30/outreach-pipeline/internal/observability/metrics"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// MaxBulkHunt caps one bulk hunt request; each item is a model call.
const MaxBulkHunt = 50

type prospectService interface {
	Get(ctx context.Context, id string) (outreach.Prospect, error)
	ApplyHuntedEmail(ctx context.Context, actor auth.Member, id, email string) (outreach.Prospect, error)
	DiscardHuntedEmail(ctx context.Context, actor auth.Member, id, email string) error
	RecordEmailSent(ctx context.Context, actor auth.Member, id string) (outreach.Prospect, error)
	Ingest(ctx context.Context, actor auth.Member, kind outreach.Kind, batch string, candidates []outreach.Candidate) (outreach.IngestResult, error)
}

type stagingStore interface {
	Stage(ctx context.Context, h HuntedEmail) error
	Get(ctx context.Context, prospectID string) (HuntedEmail, error)
	List(ctx context.Context) ([]HuntedEmail, error)
	Delete(ctx context.Context, prospectID string) error
}

type ServiceConfig struct {
	Gateway   *Gateway
	Prospects prospectService
	Staging   stagingStore
	Sender    notify.EmailSender
	ReplyTo   string
	Metrics   *metrics.OutreachMetrics
	Logger    *logging.Logger
}

// Service runs the AI workflows. Model calls happen before any prospect
// write, so no transaction is open while a provider is slow.
type Service struct {
	gateway   *Gateway
	prospects prospectService
	staging   stagingStore
	sender    notify.EmailSender
	replyTo   string
	metrics   *metrics.OutreachMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Sender == nil {
		cfg.Sender = notify.NewStubEmailSender(cfg.Logger)
	}
	return &Service{
		gateway:   cfg.Gateway,
		prospects: cfg.Prospects,
		staging:   cfg.Staging,
		sender:    cfg.Sender,
		replyTo:   cfg.ReplyTo,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Generate drafts an email for one prospect.
func (s *Service) Generate(ctx context.Context, id string) (Draft, error) {
	p, err := s.prospects.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	return s.gateway.Generate(ctx, p), nil
}

// Refine accepts the current draft as JSON or plain text.
func (s *Service) Refine(ctx context.Context, current, instruction string) (Draft, error) {
	d, _ := ParseDraft(current)
	return s.gateway.Refine(ctx, d, instruction)
}

// Prompt returns the preview prompt for one prospect.
func (s *Service) Prompt(ctx context.Context, id string) (string, error) {
	p, err := s.prospects.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.gateway.PreviewPrompt(p), nil
}

const (
	HuntStaged   = "staged"
	HuntNotFound = "not_found"
	HuntHasEmail = "has_email"
	HuntError    = "error"
)

// HuntOutcome reports one hunt.
type HuntOutcome struct {
	ProspectID string       `json:"speaker_id"`
	Status     string       `json:"status"`
	Staged     *HuntedEmail `json:"staged,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Hunt looks for a public address and stages it for review. Prospects that
// already have an email are left alone.
func (s *Service) Hunt(ctx context.Context, actor auth.Member, id string) (HuntOutcome, error) {
	p, err := s.prospects.Get(ctx, id)
	if err != nil {
		return HuntOutcome{}, err
	}
	out := HuntOutcome{ProspectID: p.ID}
	if strings.TrimSpace(p.Email) != "" {
		out.Status = HuntHasEmail
		return out, nil
	}

	res, err := s.gateway.Hunt(ctx, p)
	if err != nil {
		return HuntOutcome{}, err
	}
	if !res.Found() {
		out.Status = HuntNotFound
		return out, nil
	}

	staged := HuntedEmail{
		ProspectID:   p.ID,
		ProspectName: p.Name,
		Email:        res.Email,
		Source:       res.Source,
		HuntedBy:     actor.Name,
		HuntedAt:     s.now().UTC(),
	}
	if err := s.staging.Stage(ctx, staged); err != nil {
		return HuntOutcome{}, fmt.Errorf("drafts: hunt: %w", err)
	}
	s.logger.Info("hunted email staged", "prospect_id", p.ID, "actor", actor.ID)
	out.Status = HuntStaged
	out.Staged = &staged
	return out, nil
}

// BulkHuntResult tallies a bulk hunt.
type BulkHuntResult struct {
	Results  []HuntOutcome `json:"results"`
	Staged   int           `json:"staged"`
	NotFound int           `json:"not_found"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
}

// BulkHunt hunts each prospect in order. One failure does not stop the
// batch; a cancelled context does.
func (s *Service) BulkHunt(ctx context.Context, actor auth.Member, ids []string) (BulkHuntResult, error) {
	ids = outreach.UniqueIDs(ids)
	if len(ids) == 0 {
		return BulkHuntResult{}, ErrNoIDs
	}
	if len(ids) > MaxBulkHunt {
		return BulkHuntResult{}, ErrTooManyIDs
	}
	res := BulkHuntResult{Results: make([]HuntOutcome, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := s.Hunt(ctx, actor, id)
		if err != nil {
			out = HuntOutcome{ProspectID: id, Status: HuntError, Error: apperr.PublicMessage(err)}
			s.logger.Warn("bulk hunt item failed", "prospect_id", id, "error", err)
		}
		switch out.Status {
		case HuntStaged:
			res.Staged++
		case HuntNotFound:
			res.NotFound++
		case HuntHasEmail:
			res.Skipped++
		default:
			res.Failed++
		}
		res.Results = append(res.Results, out)
	}
	s.metrics.ObserveBulk("hunt", res.Staged, res.Skipped+res.NotFound+res.Failed)
	return res, nil
}

func (s *Service) ListHunted(ctx context.Context) ([]HuntedEmail, error) {
	return s.staging.List(ctx)
}

// Approve applies the staged email through the state machine. When email is
// given it must match what was staged.
func (s *Service) Approve(ctx context.Context, actor auth.Member, id, email string) (outreach.Prospect, error) {
	staged, err := s.staging.Get(ctx, id)
	if err != nil {
		return outreach.Prospect{}, err
	}
	if email = strings.TrimSpace(email); email != "" && !strings.EqualFold(email, staged.Email) {
		return outreach.Prospect{}, ErrStagedEmailChanged
	}
	p, err := s.prospects.ApplyHuntedEmail(ctx, actor, id, staged.Email)
	if err != nil {
		return outreach.Prospect{}, err
	}
	if err := s.staging.Delete(ctx, id); err != nil {
		s.logger.Warn("approved hunted email left in staging", "prospect_id", id, "error", err)
	}
	return p, nil
}

// Discard drops the staged email and records the rejection.
func (s *Service) Discard(ctx context.Context, actor auth.Member, id string) error {
	staged, err := s.staging.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.prospects.DiscardHuntedEmail(ctx, actor, id, staged.Email); err != nil {
		return err
	}
	return s.staging.Delete(ctx, id)
}

// Ingest extracts candidates from research notes and creates the new ones.
func (s *Service) Ingest(ctx context.Context, actor auth.Member, raw string, kind outreach.Kind, batch string) (outreach.IngestResult, error) {
	if kind == "" {
		kind = outreach.KindSpeaker
	}
	if !kind.Valid() {
		return outreach.IngestResult{}, outreach.ErrInvalidKind
	}
	candidates, err := s.gateway.ExtractCandidates(ctx, raw, kind)
	if err != nil {
		return outreach.IngestResult{}, err
	}
	return s.prospects.Ingest(ctx, actor, kind, batch, candidates)
}

// SendEmail mails the stored draft and then records the contact. A delivery
// failure leaves the prospect untouched.
func (s *Service) SendEmail(ctx context.Context, actor auth.Member, id string) (outreach.Prospect, error) {
	p, err := s.prospects.Get(ctx, id)
	if err != nil {
		return outreach.Prospect{}, err
	}
	if p.DraftText == nil {
		return outreach.Prospect{}, outreach.ErrNoDraft
	}
	draft, ok := ParseDraft(*p.DraftText)
	if !ok {
		return outreach.Prospect{}, outreach.ErrNoDraft
	}
	if strings.TrimSpace(p.Email) == "" {
		return outreach.Prospect{}, outreach.ErrNoEmail
	}
	if draft.Subject == "" {
		draft.Subject = defaultSubject(p, s.gateway.EventName())
	}

	msg := notify.EmailMessage{
		To:      strings.TrimSpace(p.Email),
		ToName:  p.Name,
		Subject: draft.Subject,
		Body:    draft.BodyText,
		HTML:    draft.BodyHTML,
		ReplyTo: s.replyTo,
	}
	if p.Kind == outreach.KindSponsor && p.SPOCName != "" {
		msg.ToName = p.SPOCName
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.ObserveEmail("error")
		if errors.Is(err, notify.ErrInvalidRecipient) {
			return outreach.Prospect{}, apperr.Wrap(apperr.KindValidation, "speaker email address is invalid", err)
		}
		return outreach.Prospect{}, apperr.Upstream("email delivery failed", err)
	}
	s.metrics.ObserveEmail("sent")
	return s.prospects.RecordEmailSent(ctx, actor, id)
}

