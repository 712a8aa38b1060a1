package alert

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface check.
var _ domain.Alerter = (*SMTPMailer)(nil)

// Env var names for SMTP.
const (
	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvEmailFrom    = "ALERT_EMAIL_FROM"
	EnvEmailTo      = "ALERT_EMAIL_TO"
)

// SMTPConfig holds the mail server and addresses.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// SMTPConfigFromEnv reads the SMTP settings from the environment.
// ALERT_EMAIL_TO may hold several comma-separated addresses.
func SMTPConfigFromEnv() (SMTPConfig, error) {
	cfg := SMTPConfig{
		Host:     os.Getenv(EnvSMTPHost),
		Port:     os.Getenv(EnvSMTPPort),
		Username: os.Getenv(EnvSMTPUsername),
		Password: os.Getenv(EnvSMTPPassword),
		From:     os.Getenv(EnvEmailFrom),
	}
	for _, addr := range strings.Split(os.Getenv(EnvEmailTo), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.To = append(cfg.To, addr)
		}
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return cfg, fmt.Errorf("%s, %s and %s must be set: %w", EnvSMTPHost, EnvEmailFrom, EnvEmailTo, domain.ErrNotConfigured)
	}
	return cfg, nil
}

// deliverFunc hands a built message to the server.
type deliverFunc func(ctx context.Context, c *mail.Client, msg *mail.Msg) error

func dialAndSend(ctx context.Context, c *mail.Client, msg *mail.Msg) error {
	return c.DialAndSendWithContext(ctx, msg)
}

// SMTPMailer emails threat alerts with the captured frame attached.
type SMTPMailer struct {
	cfg     SMTPConfig
	log     *logger.Logger
	timeout time.Duration
	deliver deliverFunc
}

// NewSMTPMailer creates an email alerter.
func NewSMTPMailer(cfg SMTPConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, timeout: 15 * time.Second, deliver: dialAndSend}
}

// Name implements domain.Alerter.
func (m *SMTPMailer) Name() string { return "email" }

// Send builds the message and hands it to the SMTP server. The
// connection is torn down as soon as ctx ends, so a server that stops
// answering cannot hold the caller past its deadline.
func (m *SMTPMailer) Send(ctx context.Context, a domain.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.buildMessage(a)
	if err != nil {
		return fmt.Errorf("building email: %w", err)
	}

	var stops []func() bool
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()
	dial := func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		stops = append(stops, context.AfterFunc(ctx, func() { conn.Close() }))
		return conn, nil
	}

	client, err := m.client(dial)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := m.deliver(ctx, client, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Debug("email alert sent to %s", strings.Join(m.cfg.To, ", "))
	return nil
}

func (m *SMTPMailer) client(dial func(context.Context, string, string) (net.Conn, error)) (*mail.Client, error) {
	port, err := strconv.Atoi(m.cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvSMTPPort, m.cfg.Port, err)
	}
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(port),
		mail.WithTimeout(m.timeout),
		mail.WithDialContextFunc(dial),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

func (m *SMTPMailer) buildMessage(a domain.Alert) (*mail.Msg, error) {
	subject, body := RenderEmail(a)

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return nil, err
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)

	if len(a.Image) > 0 {
		name := a.ImageName
		if name == "" {
			name = "capture.jpg"
		}
		err := msg.AttachReader(name, bytes.NewReader(a.Image),
			mail.WithFileContentType(mail.ContentType(contentType(name))))
		if err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
