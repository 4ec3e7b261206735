package email

import (
	"context"
	"strings"
	"testing"

	"github.com/lamitie/server/internal/config"
	"github.com/rs/zerolog"
)

func TestValidateEmailAddress_Valid(t *testing.T) {
	tests := []string{
		"student@st.ug.edu.gh",
		"test.user@example.com",
		"user+tag@example.co.uk",
		"Ama Mensah <ama@example.com>", // RFC 5322 format with display name
	}

	for _, email := range tests {
		t.Run(email, func(t *testing.T) {
			if err := validateEmailAddress(email); err != nil {
				t.Errorf("Expected valid email %q to pass validation, got error: %v", email, err)
			}
		})
	}
}

func TestValidateEmailAddress_InvalidFormat(t *testing.T) {
	tests := []struct {
		email       string
		description string
	}{
		{"", "empty string"},
		{"notanemail", "no @ symbol"},
		{"@example.com", "missing local part"},
		{"user@", "missing domain"},
		{"user@@example.com", "double @"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if err := validateEmailAddress(tt.email); err == nil {
				t.Errorf("Expected error for invalid email %q (%s), but got none", tt.email, tt.description)
			}
		})
	}
}

func TestValidateEmailAddress_HeaderInjection(t *testing.T) {
	tests := []struct {
		email       string
		description string
	}{
		{"victim@example.com\r\nBcc: attacker@evil.com", "CRLF with Bcc injection"},
		{"test@example.com\nCc: hacker@evil.com", "LF with Cc injection"},
		{"user@example.com\rSubject: spam", "CR with Subject injection"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if err := validateEmailAddress(tt.email); err == nil {
				t.Errorf("Expected error for injection attempt %q (%s), but got none", tt.email, tt.description)
			}
		})
	}
}

func TestSendTicket_DisabledLogsAndReturnsNil(t *testing.T) {
	svc, err := NewService(config.EmailConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.SendTicket(context.Background(), "ama@example.com", "Ama Mensah", "UGBS1234567", []byte("png")); err != nil {
		t.Fatalf("expected nil when disabled, got %v", err)
	}
}

func TestSendTicket_RejectsBadRecipient(t *testing.T) {
	svc, err := NewService(config.EmailConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.SendTicket(context.Background(), "not-an-email", "Ama", "UGBS1234567", nil); err == nil {
		t.Fatal("expected error for invalid recipient")
	}
}

func TestTicketTemplateRenders(t *testing.T) {
	svc, err := NewService(config.EmailConfig{Enabled: false, EventName: "L'Amitie 2025"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	var body strings.Builder
	data := TicketData{
		Name:        "Ama Mensah",
		IndexNumber: "UGBS1234567",
		EventName:   "L'Amitie 2025",
		EventVenue:  "Great Hall",
		EventDate:   "14 June 2025",
		CurrentYear: 2025,
	}
	if err := svc.ticketTmpl.Execute(&body, data); err != nil {
		t.Fatalf("execute template: %v", err)
	}
	html := body.String()
	for _, want := range []string{"Ama Mensah", "UGBS1234567", "Great Hall", "cid:ticket-qr"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered ticket missing %q", want)
		}
	}
}
