package mail

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

	"github.com/you-humble/printq/api/internal/domain"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SendFunc delivers raw to the peer at addr. It must return once ctx is done.
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, raw []byte) error

type smtpNotifier struct {
	cfg  Config
	send SendFunc
}

func NewSMTPNotifier(cfg Config) *smtpNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &smtpNotifier{cfg: cfg, send: sendMail}
}

// WithSendFunc replaces the transport, for tests.
func (n *smtpNotifier) WithSendFunc(f SendFunc) *smtpNotifier {
	n.send = f
	return n
}

func (n *smtpNotifier) Send(ctx context.Context, msg domain.Message) error {
	if !n.cfg.Configured() {
		return domain.ErrNotifierUnconfigured
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	raw := buildMessage(n.cfg.From, msg, time.Now())

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.send(ctx, addr, auth, n.cfg.From, []string{msg.To}, raw)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return domain.ErrNotificationFailed.WithDetail("smtp send timed out").
			Wrap(fmt.Errorf("smtp send via %s: %w (%v)", addr, ctx.Err(), err))
	default:
		return domain.ErrNotificationFailed.Wrap(fmt.Errorf("smtp send via %s: %w", addr, err))
	}
}

// sendMail is smtp.SendMail on a connection bound to ctx: once ctx is done
// every pending read or write on the connection fails.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, raw []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("smtp addr: %w", err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from string, msg domain.Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
