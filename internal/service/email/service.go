package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// Provider defines the interface for email providers
type Provider interface {
	Send(ctx context.Context, to, subject, body string, isHTML bool) error
}

// Config holds email service configuration
type Config struct {
	// Provider type: "sendgrid" or "smtp"
	Provider string

	FromEmail string
	FromName  string

	SendGridAPIKey string

	// SMTP configuration (for Mailhog or other SMTP servers)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
}

// DefaultConfig returns a default configuration for development (Mailhog)
func DefaultConfig() *Config {
	return &Config{
		Provider:   "smtp",
		FromEmail:  "noreply@voltmesh.io",
		FromName:   "VoltMesh",
		SMTPHost:   "localhost",
		SMTPPort:   1025,
		SMTPUseTLS: false,
	}
}

// Service sends transactional notifications. Callers treat it as best-effort:
// a failed send is logged upstream and never blocks ledger state.
type Service struct {
	config    *Config
	provider  Provider
	templates map[string]*template.Template
	log       *zap.Logger
}

// NewService creates a new email service
func NewService(config *Config, log *zap.Logger) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
		log:       log,
	}

	switch config.Provider {
	case "sendgrid":
		if config.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SendGrid API key is required")
		}
		s.provider = NewSendGridProvider(config.SendGridAPIKey, config.FromEmail, config.FromName)
	case "smtp":
		s.provider = NewSMTPProvider(
			config.SMTPHost,
			config.SMTPPort,
			config.SMTPUsername,
			config.SMTPPassword,
			config.FromEmail,
			config.FromName,
			config.SMTPUseTLS,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", config.Provider)
	}

	s.loadTemplates()
	return s, nil
}

func (s *Service) loadTemplates() {
	s.templates["settlement"] = template.Must(template.New("settlement").Parse(settlementTemplate))
	s.templates["certificates"] = template.Must(template.New("certificates").Parse(certificatesTemplate))
}

// Send sends a generic plain-text email.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info("Sending email",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return s.provider.Send(ctx, to, subject, body, false)
}

// SendSettlementNotice notifies a trade party that their trade settled.
func (s *Service) SendSettlementNotice(ctx context.Context, to string, trade *domain.Trade) error {
	body, err := s.render("settlement", map[string]interface{}{
		"TradeID":      trade.ID,
		"Seller":       trade.Seller,
		"Buyer":        trade.Buyer,
		"EnergyAmount": trade.EnergyAmount,
		"TotalPrice":   trade.TotalPrice,
		"Region":       trade.Region,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Trade #%d settled - %d kWh", trade.ID, trade.EnergyAmount)
	return s.provider.Send(ctx, to, subject, body, true)
}

// SendCertificatesIssued notifies a generator that certificates were minted
// for their verified production.
func (s *Service) SendCertificatesIssued(ctx context.Context, to string, certs []*domain.Certificate) error {
	if len(certs) == 0 {
		return nil
	}

	body, err := s.render("certificates", map[string]interface{}{
		"Count":  len(certs),
		"Source": certs[0].EnergySource,
		"Certs":  certs,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%d renewable energy certificate(s) issued", len(certs))
	return s.provider.Send(ctx, to, subject, body, true)
}

func (s *Service) render(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
