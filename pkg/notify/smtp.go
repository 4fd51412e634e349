package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers notifications over plain SMTP.
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger zerolog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Send implements Notifier. Errors are logged, not returned: the caller
// has already committed its record change and must not fail on mail.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) {
	if strings.TrimSpace(msg.To) == "" {
		n.logger.Warn().Str("subject", msg.Subject).Msg("Dropping notification with empty recipient")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		n.logger.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Notification delivery failed")
		return
	}

	n.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Notification sent")
}
