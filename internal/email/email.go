//go:generate go run go.uber.org/mock/mockgen -source=email.go -destination=../mocks/mock_email.go -package=mocks
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
)

// Message is a pre-rendered email. ContentHTML is inserted as-is.
type Message struct {
	Subject          string
	Title            string
	ContentHTML      string
	IncludeSignature bool
}

type Sender interface {
	SendEmailToAdmin(ctx context.Context, msg Message) error
	SendEmailToUser(ctx context.Context, to string, msg Message) error
}

const signature = `<p style="color:#6b7280">The Support Team</p>`

// Render wraps a message body in the layout shared by all outgoing mail.
func Render(msg Message) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;line-height:1.5">`)
	if msg.Title != "" {
		fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(msg.Title))
	}
	b.WriteString("<div>")
	b.WriteString(msg.ContentHTML)
	b.WriteString("</div>")
	if msg.IncludeSignature {
		b.WriteString(signature)
	}
	b.WriteString("</div>")
	return b.String()
}

// TextToHTML escapes plain text and turns newlines into line breaks.
func TextToHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// ActionLink renders a call-to-action paragraph pointing at href.
func ActionLink(href, label string) string {
	return fmt.Sprintf(`<p><a href="%s">%s</a></p>`, html.EscapeString(href), html.EscapeString(label))
}

// LogSender only logs. It is used when no SMTP server is configured.
type LogSender struct {
	adminEmail string
	log        *slog.Logger
}

func NewLogSender(adminEmail string, log *slog.Logger) *LogSender {
	return &LogSender{adminEmail: adminEmail, log: log}
}

func (s *LogSender) SendEmailToAdmin(_ context.Context, msg Message) error {
	s.log.Info("Email (not sent, SMTP disabled)", "to", s.adminEmail, "subject", msg.Subject)
	return nil
}

func (s *LogSender) SendEmailToUser(_ context.Context, to string, msg Message) error {
	s.log.Info("Email (not sent, SMTP disabled)", "to", to, "subject", msg.Subject)
	return nil
}
