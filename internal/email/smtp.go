package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("email recipient is empty")

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

type SMTPSender struct {
	client     *mail.Client
	from       string
	adminEmail string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	from := cfg.From
	if from == "" {
		from = cfg.AdminEmail
	}
	return &SMTPSender{client: client, from: from, adminEmail: cfg.AdminEmail}, nil
}

func (s *SMTPSender) SendEmailToAdmin(ctx context.Context, msg Message) error {
	return s.send(ctx, s.adminEmail, msg)
}

func (s *SMTPSender) SendEmailToUser(ctx context.Context, to string, msg Message) error {
	return s.send(ctx, to, msg)
}

func (s *SMTPSender) send(ctx context.Context, to string, msg Message) error {
	if to == "" {
		return ErrNoRecipient
	}
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("email from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("email to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, Render(msg))

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
