// Package mailer delivers password-reset codes over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"html"
	"net/smtp"
	"time"

	"stockreport/internal/config"

	"github.com/jordan-wright/email"
)

var ErrNotConfigured = errors.New("mailer: SMTP_HOST is not configured")

type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

func (m *Mailer) Configured() bool {
	return m.host != ""
}

// SendPasswordResetOTP mails code to the account owner.
func (m *Mailer) SendPasswordResetOTP(to, username, code string, ttl time.Duration) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = "Password reset code"
	e.Text = []byte(resetText(username, code, ttl))
	e.HTML = []byte(resetHTML(username, code, ttl))

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send reset code: %w", err)
	}
	return nil
}

func resetText(username, code string, ttl time.Duration) string {
	return fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.\n\nIf you did not ask for a reset you can ignore this message.\n",
		username, code, int(ttl.Minutes()))
}

func resetHTML(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in %d minutes.</p><p>If you did not ask for a reset you can ignore this message.</p>`,
		html.EscapeString(username), code, int(ttl.Minutes()))
}
