// Package mailer emails exported reports as attachments over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
	"github.com/Saul-Punybz/mentionwatch/internal/models"
	"github.com/Saul-Punybz/mentionwatch/internal/report"
)

var (
	// ErrNotConfigured is returned when sender credentials are missing.
	ErrNotConfigured = errors.New("mailer: sender credentials not configured")
	// ErrInvalidRecipient is returned for an empty or malformed address.
	ErrInvalidRecipient = errors.New("mailer: invalid recipient address")
)

// Sender delivers a built message.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPSender submits messages with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a Sender for cfg.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send dials the server, authenticates and sends msg on one connection.
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("mailer: new client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// Distributor renders a report to a temporary file and mails it.
type Distributor struct {
	sender  Sender
	from    string
	tempDir string
}

// NewDistributor creates a Distributor sending as from. Temporary exports go
// to tempDir, or the OS default when empty.
func NewDistributor(sender Sender, from, tempDir string) *Distributor {
	return &Distributor{sender: sender, from: from, tempDir: tempDir}
}

// NewSMTPDistributor wires a Distributor to the configured SMTP server. It
// returns ErrNotConfigured when credentials are missing.
func NewSMTPDistributor(cfg config.SMTPConfig) (*Distributor, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewDistributor(NewSMTPSender(cfg), from, ""), nil
}

// Send mails r to recipient as a format attachment. The temporary export is
// removed before Send returns, whatever the outcome.
func (d *Distributor) Send(ctx context.Context, r *models.Report, format report.Format, recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return ErrInvalidRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(d.from); err != nil {
		return fmt.Errorf("mailer: from %q: %w", d.from, err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	f, err := os.CreateTemp(d.tempDir, "mentionwatch-*."+string(format))
	if err != nil {
		return fmt.Errorf("mailer: create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Error("mailer: remove temp export", "path", path, "err", err)
		}
	}()

	renderErr := report.Render(f, r, format)
	if err := f.Close(); err != nil && renderErr == nil {
		renderErr = err
	}
	if renderErr != nil {
		return fmt.Errorf("mailer: write export: %w", renderErr)
	}

	msg.Subject(fmt.Sprintf("News Report for %s - %s", r.PersonName, r.Day()))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Attached is the news mention report for %s on %s.\n\n%d articles analyzed.\n",
		r.PersonName, r.Day(), len(r.Articles)))
	msg.AttachFile(path, mail.WithFileName(report.Filename(r, string(format))))

	if err := d.sender.Send(ctx, msg); err != nil {
		slog.Warn("mailer: send failed", "person", r.PersonName, "recipient", recipient, "err", err)
		return err
	}
	slog.Info("mailer: report sent", "person", r.PersonName, "recipient", recipient, "format", format)
	return nil
}

// UserMessage turns a Send error into the single line shown to users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "Email is not configured on this server."
	case errors.Is(err, ErrInvalidRecipient):
		return "The recipient email address is not valid."
	default:
		return "Failed to send email. Please check the sender credentials and try again."
	}
}
