package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
)

const (
	smtpDialTimeout    = 10 * time.Second
	smtpSessionTimeout = 30 * time.Second
)

// sendMail is a seam for testing the SMTP exchange.
var sendMail = dialAndSend

// SMTPConfig describes the relay used by SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay. STARTTLS is negotiated
// when the server offers it; PLAIN auth is used when a user is configured.
type SMTPSender struct {
	cfg SMTPConfig
	log logging.Logger
	now func() time.Time
}

func NewSMTPSender(cfg SMTPConfig, log logging.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTPSender{cfg: cfg, log: log, now: time.Now}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) bool {
	if err := ctx.Err(); err != nil {
		s.log.Warn(ctx, "smtp send skipped", "to", to, "error", err)
		return false
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	msg := s.buildMessage(to, subject, body)
	if err := sendMail(ctx, addr, s.cfg.Host, auth, s.cfg.From, []string{to}, msg); err != nil {
		s.log.Error(ctx, "smtp send failed", "to", to, "addr", addr, "error", err)
		return false
	}

	s.log.Debug(ctx, "smtp message sent", "to", to, "subject", subject)
	return true
}

func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// dialAndSend runs one SMTP transaction bounded by the context deadline,
// or smtpSessionTimeout when the context has none.
func dialAndSend(ctx context.Context, addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	d := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpSessionTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
