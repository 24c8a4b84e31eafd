// AngelaMos | 2026
// smtp.go

package mail

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/propertyxchange/backend/internal/config"
)

const defaultDialTimeout = 10 * time.Second

// SMTPTransport speaks SMTP with "starttls", "ssl" or "none" encryption.
// The context deadline bounds the whole conversation, not just the dial.
type SMTPTransport struct {
	host       string
	port       int
	username   string
	password   string
	from       netmail.Address
	encryption string
	dialer     func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	d := &net.Dialer{Timeout: defaultDialTimeout}
	return &SMTPTransport{
		host:       cfg.Host,
		port:       cfg.Port,
		username:   cfg.Username,
		password:   cfg.Password,
		from:       netmail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		encryption: strings.ToLower(cfg.Encryption),
		dialer:     d.DialContext,
	}
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	client, conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.Mail(t.from.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(t.build(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

// Ping opens a session, authenticates and quits without sending.
func (t *SMTPTransport) Ping(ctx context.Context) error {
	client, conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	return client.Quit()
}

func (t *SMTPTransport) connect(ctx context.Context) (*smtp.Client, net.Conn, error) {
	addr := t.addr()
	tlsConfig := &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}

	conn, err := t.dialer(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	if t.encryption == "ssl" {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("create smtp client: %w", err)
	}

	if t.encryption == "starttls" {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("starttls: %w", err)
		}
	}

	if t.username != "" {
		auth := smtp.PlainAuth("", t.username, t.password, t.host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	return client, conn, nil
}

// build writes a multipart/alternative RFC 5322 message.
func (t *SMTPTransport) build(msg Message) []byte {
	boundary := newBoundary()

	var b strings.Builder
	b.WriteString("From: " + t.from.String() + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(`Content-Type: multipart/alternative; boundary="` + boundary + "\"\r\n")
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text + "\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML + "\r\n")

	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}

func newBoundary() string {
	buf := make([]byte, 12)
	//nolint:errcheck // crypto/rand.Read does not fail on supported platforms
	_, _ = rand.Read(buf)
	return "pxc-" + hex.EncodeToString(buf)
}
