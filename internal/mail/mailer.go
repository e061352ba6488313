package mail

import (
	"context"
	"fmt"

	"github.com/bidcraft/backend/config"
	gomail "github.com/wneessen/go-mail"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a single message. Delivery is best-effort everywhere in
// this codebase; callers record the outcome and move on.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	cfg  *config.SMTPConfig
	opts []gomail.Option
}

func NewSMTPMailer(cfg *config.SMTPConfig) *SMTPMailer {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.User),
		gomail.WithPassword(cfg.Password),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	}
	return &SMTPMailer{cfg: cfg, opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm := gomail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail.SMTPMailer.Send: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("mail.SMTPMailer.Send: %w", err)
	}
	mm.Subject(msg.Subject)
	if msg.HTML != "" {
		mm.SetBodyString(gomail.TypeTextHTML, msg.HTML)
		if msg.Text != "" {
			mm.AddAlternativeString(gomail.TypeTextPlain, msg.Text)
		}
	} else {
		mm.SetBodyString(gomail.TypeTextPlain, msg.Text)
	}

	client, err := gomail.NewClient(m.cfg.Host, m.opts...)
	if err != nil {
		return fmt.Errorf("mail.SMTPMailer.Send: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("mail.SMTPMailer.Send: %w", err)
	}
	return nil
}
