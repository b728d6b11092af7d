package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/pkg/circuitbreaker"
)

type Service interface {
	SendListingConfirmation(ctx context.Context, msg ListingConfirmation) error
}

// ListingConfirmation is sent to a dentist once the practice is listed.
type ListingConfirmation struct {
	To          string
	DentistName string
	ClinicName  string
	ClinicSlug  string
}

// Sender delivers prepared messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	sender  Sender
	from    string
	baseURL string
	cb      *circuitbreaker.CircuitBreaker
}

func NewSMTPService(cfg config.SMTPConfig) *SMTPService {
	return NewService(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, cfg.BaseURL)
}

func NewService(sender Sender, from, baseURL string) *SMTPService {
	return &SMTPService{
		sender:  sender,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 3,
			Timeout:     30 * time.Second,
		}),
	}
}

func (s *SMTPService) SendListingConfirmation(ctx context.Context, msg ListingConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("listing confirmation has no recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", ListingSubject(msg.ClinicName))
	m.SetBody("text/plain", ListingBody(msg, s.baseURL))

	if err := s.cb.Execute(func() error { return s.sender.DialAndSend(m) }); err != nil {
		return fmt.Errorf("failed to send listing confirmation: %w", err)
	}
	return nil
}

func ListingSubject(clinicName string) string {
	return fmt.Sprintf("%s is now listed", clinicName)
}

func ListingBody(msg ListingConfirmation, baseURL string) string {
	name := msg.DentistName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "%s has been added to the directory and is waiting for verification.\n", msg.ClinicName)
	if baseURL != "" && msg.ClinicSlug != "" {
		fmt.Fprintf(&b, "Your listing: %s/clinic/%s\n", baseURL, msg.ClinicSlug)
	}
	b.WriteString("\nYou can add opening hours, photos and services from your dashboard.\n")
	return b.String()
}
