package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer delivers mail through an SMTP relay, using STARTTLS when offered.
type SMTPMailer struct {
	cfg  SMTPConfig
	now  func() time.Time
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	d := &net.Dialer{}
	return &SMTPMailer{
		cfg:  cfg,
		now:  time.Now,
		dial: d.DialContext,
	}
}

func (m *SMTPMailer) addr() string {
	port := m.cfg.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(m.cfg.Host, strconv.Itoa(port))
}

// Send opens one connection per message. The context deadline bounds the
// whole SMTP conversation.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	conn, err := m.dial(ctx, "tcp", m.addr())
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp hello: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(e.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(m.message(e)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}

func (m *SMTPMailer) message(e Email) []byte {
	var b strings.Builder
	domain := m.cfg.Host
	if at := strings.LastIndex(m.cfg.From, "@"); at >= 0 {
		domain = m.cfg.From[at+1:]
	}
	fmt.Fprintf(&b, "From: %s\r\n", headerSafe(m.cfg.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe(e.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(e.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(e.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
