package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/lamitie/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Service sends transactional email through the Resend API.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	ticketTmpl   *template.Template
	logger       zerolog.Logger
}

// TicketData holds data for rendering the ticket email.
type TicketData struct {
	Name        string
	IndexNumber string
	EventName   string
	EventVenue  string
	EventDate   string
	CurrentYear int
}

// QR is referenced as cid:ticket-qr from the HTML body so clients render
// it inline instead of as a bare attachment.
const ticketTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f4f4f7; margin: 0; padding: 24px;">
  <div style="max-width: 520px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h1 style="color: #1a237e; font-size: 22px;">{{.EventName}}</h1>
    <p>Hi {{.Name}},</p>
    <p>Your registration is confirmed. Present the QR code below at the entrance; it will be scanned once for admission.</p>
    <p style="text-align: center;"><img src="cid:ticket-qr" alt="Ticket QR code" width="256" height="256"/></p>
    <p style="text-align: center; font-size: 18px; letter-spacing: 2px;"><strong>{{.IndexNumber}}</strong></p>
    {{if .EventVenue}}<p><strong>Venue:</strong> {{.EventVenue}}</p>{{end}}
    {{if .EventDate}}<p><strong>Date:</strong> {{.EventDate}}</p>{{end}}
    <p>See you there!</p>
    <hr style="border: none; border-top: 1px solid #e0e0e0;"/>
    <p style="color: #9e9e9e; font-size: 12px;">&copy; {{.CurrentYear}} {{.EventName}}. This ticket is personal and non-transferable.</p>
  </div>
</body>
</html>`

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.FromAddress); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	tmpl, err := template.New("ticket").Parse(ticketTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse ticket template: %w", err)
	}

	svc := &Service{
		config:     cfg,
		ticketTmpl: tmpl,
		logger:     logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled && cfg.ResendAPIKey != "" {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// SendTicket emails the QR ticket PNG to the student. When the service is
// disabled it logs and returns nil so callers need no special casing.
func (s *Service) SendTicket(ctx context.Context, to, name, indexNumber string, qrPNG []byte) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("index_number", indexNumber).
			Msg("email service disabled, skipping ticket email")
		return nil
	}
	if s.resendClient == nil {
		return fmt.Errorf("resend client not initialized")
	}

	data := TicketData{
		Name:        name,
		IndexNumber: indexNumber,
		EventName:   s.config.EventName,
		EventVenue:  s.config.EventVenue,
		EventDate:   s.config.EventDate,
		CurrentYear: time.Now().Year(),
	}
	var body bytes.Buffer
	if err := s.ticketTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render ticket template: %w", err)
	}

	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: fmt.Sprintf("Your %s ticket", s.config.EventName),
		Html:    body.String(),
		Attachments: []*resend.Attachment{
			{
				Filename:    "ticket.png",
				Content:     qrPNG,
				ContentType: "image/png",
				ContentId:   "ticket-qr",
			},
		},
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", to).
		Str("index_number", indexNumber).
		Msg("ticket email sent")
	return nil
}

// validateEmailAddress checks format and rejects header injection attempts.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
