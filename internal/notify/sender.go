package notify

import (
	"fmt"
	"strings"

	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// ProviderConfig selects and configures the outreach mail provider.
type ProviderConfig struct {
	Provider          string // sendgrid, ses or stub
	SendGridAPIKey    string
	SendGridFromEmail string
	FromName          string
	SESFromEmail      string
}

// NewEmailSender builds the configured sender. An unknown provider is an
// error; a provider missing credentials falls back to the stub with a warning.
func NewEmailSender(cfg ProviderConfig, ses SESAPI, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "stub":
		return NewStubEmailSender(logger), nil
	case "sendgrid":
		s := NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if s == nil {
			logger.Warn("sendgrid selected without API key; using stub email sender")
			return NewStubEmailSender(logger), nil
		}
		return s, nil
	case "ses":
		if ses == nil || cfg.SESFromEmail == "" {
			logger.Warn("ses selected without client or from address; using stub email sender")
			return NewStubEmailSender(logger), nil
		}
		return NewSESSender(ses, SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.FromName}, logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", cfg.Provider)
	}
}
