package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/observability/metrics"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

var tracer = otel.Tracer("outreach.internal.drafts")

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 1200
	defaultTemperature = 0.2
)

type GatewayConfig struct {
	Model       string
	EventName   string
	Timeout     time.Duration
	MaxTokens   int32
	Temperature float32
}

// Gateway turns prospects into prompts and model output into drafts,
// hunted addresses and ingestion candidates. It never touches the store.
type Gateway struct {
	client  LLMClient
	cfg     GatewayConfig
	metrics *metrics.OutreachMetrics
	logger  *logging.Logger
}

// NewGateway accepts a nil client; every call then takes the
// not-configured path.
func NewGateway(client LLMClient, cfg GatewayConfig, m *metrics.OutreachMetrics, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if strings.TrimSpace(cfg.EventName) == "" {
		cfg.EventName = "our event"
	}
	return &Gateway{client: client, cfg: cfg, metrics: m, logger: logger}
}

func (g *Gateway) EventName() string { return g.cfg.EventName }

func (g *Gateway) PreviewPrompt(p outreach.Prospect) string {
	return PreviewPrompt(p, g.cfg.EventName)
}

// Generate drafts an email for p. Provider failures produce a template
// draft that carries the error text instead of an error.
func (g *Gateway) Generate(ctx context.Context, p outreach.Prospect) Draft {
	text, err := g.complete(ctx, "generate", draftPrompt(p, g.cfg.EventName))
	if err == nil {
		if d, ok := ParseDraft(text); ok {
			if d.Subject == "" {
				d.Subject = defaultSubject(p, g.cfg.EventName)
			}
			return d
		}
		err = errors.New("model returned an empty draft")
	}
	g.logger.Warn("draft generation failed, returning template", "error", err, "prospect_id", p.ID)
	return g.fallbackDraft(p, err)
}

// Refine rewrites current following instruction. On provider failure the
// current draft comes back unchanged with the error attached.
func (g *Gateway) Refine(ctx context.Context, current Draft, instruction string) (Draft, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Draft{}, ErrEmptyInstruction
	}
	text, err := g.complete(ctx, "refine", refinePrompt(current, instruction))
	if err == nil {
		if d, ok := ParseDraft(text); ok {
			if d.Subject == "" {
				d.Subject = current.Subject
			}
			return d, nil
		}
		err = errors.New("model returned an empty draft")
	}
	g.logger.Warn("draft refinement failed, returning current draft", "error", err)
	current.Fallback = true
	current.Error = "AI Service Error: " + err.Error()
	return current, nil
}

// HuntResult is a publicly listed address proposed for a prospect.
type HuntResult struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (r HuntResult) Found() bool { return r.Email != "" }

// Hunt asks the model for a published email address. There is no sane
// fallback, so provider failures surface as upstream errors.
func (g *Gateway) Hunt(ctx context.Context, p outreach.Prospect) (HuntResult, error) {
	text, err := g.complete(ctx, "hunt", huntPrompt(p))
	if err != nil {
		return HuntResult{}, upstream(err)
	}
	return parseHunt(text), nil
}

// ExtractCandidates parses free-form research notes into prospect candidates.
func (g *Gateway) ExtractCandidates(ctx context.Context, raw string, kind outreach.Kind) ([]outreach.Candidate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResearch
	}
	text, err := g.complete(ctx, "ingest", ingestPrompt(raw, kind))
	if err != nil {
		return nil, upstream(err)
	}
	candidates, err := ParseCandidates(text)
	if err != nil {
		return nil, apperr.Upstream("AI Service Error: unreadable ingestion output", err)
	}
	return candidates, nil
}

func (g *Gateway) complete(ctx context.Context, op, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "drafts."+op)
	defer span.End()
	span.SetAttributes(attribute.String("drafts.model", g.cfg.Model))

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Complete(ctx, LLMRequest{
		Model:       g.cfg.Model,
		System:      []string{systemPrompt(g.cfg.EventName)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	g.metrics.ObserveDraft(op, status, time.Since(started).Seconds())
	if err != nil {
		return "", err
	}
	span.SetAttributes(
		attribute.Int("drafts.input_tokens", int(resp.Usage.InputTokens)),
		attribute.Int("drafts.output_tokens", int(resp.Usage.OutputTokens)),
	)
	return resp.Text, nil
}

func (g *Gateway) fallbackDraft(p outreach.Prospect, cause error) Draft {
	greeting := p.Name
	if p.Kind == outreach.KindSponsor && p.SPOCName != "" {
		greeting = p.SPOCName
	}
	var body string
	if p.Kind == outreach.KindSponsor {
		body = fmt.Sprintf("Dear %s,\n\nI hope this email finds you well. I am reaching out from %s regarding a potential partnership.",
			greeting, g.cfg.EventName)
	} else {
		body = fmt.Sprintf("Dear %s,\n\nI hope this email finds you well. We would be honoured to have you speak at %s.",
			greeting, g.cfg.EventName)
	}
	return Draft{
		Subject:  defaultSubject(p, g.cfg.EventName),
		BodyText: body,
		BodyHTML: textToHTML(body),
		Fallback: true,
		Error:    "AI Service Error: " + cause.Error(),
	}
}

func defaultSubject(p outreach.Prospect, event string) string {
	if p.Kind == outreach.KindSponsor {
		return "Partnership Opportunity with " + event
	}
	return "Invitation to speak at " + event
}

func upstream(err error) error {
	if apperr.Is(err, apperr.KindUpstream) {
		return err
	}
	return apperr.Upstream("AI Service Error", err)
}

func parseHunt(text string) HuntResult {
	obj, ok := extractJSON(stripFences(text), '{', '}')
	if !ok {
		return HuntResult{}
	}
	var r HuntResult
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return HuntResult{}
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(r.Email))
	if err != nil {
		return HuntResult{}
	}
	return HuntResult{Email: strings.ToLower(addr.Address), Source: strings.TrimSpace(r.Source)}
}

// ParseCandidates decodes a JSON array of candidates, tolerating markdown
// fences and surrounding prose.
func ParseCandidates(text string) ([]outreach.Candidate, error) {
	arr, ok := extractJSON(stripFences(text), '[', ']')
	if !ok {
		return nil, errors.New("drafts: no JSON array in model output")
	}
	var out []outreach.Candidate
	if err := json.Unmarshal([]byte(arr), &out); err != nil {
		return nil, fmt.Errorf("drafts: decode candidates: %w", err)
	}
	kept := out[:0]
	for _, c := range out {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}
