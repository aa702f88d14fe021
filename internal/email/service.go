// Package email sends account emails (verification, password reset) over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var messageTemplate = template.Must(template.ParseFS(templateFS, "templates/message.html"))

const dialTimeout = 15 * time.Second

// message is the data rendered into templates/message.html.
type message struct {
	Subject    string
	Heading    string
	Intro      string
	Action     string
	Ignore     string
	HeadingLao string
	IntroLao   string
	Link       string
	Expiry     string
	Year       int
}

// sendFunc delivers a fully built MIME message.
type sendFunc func(ctx context.Context, to string, msg []byte) error

type Service struct {
	cfg    config.EmailConfig
	logger *logging.Logger
	send   sendFunc
	now    func() time.Time
}

// NewService returns a mailer. With no SMTP host configured every send is
// skipped with a warning, which keeps local development working.
func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	s := &Service{cfg: cfg, logger: logger, now: time.Now}
	s.send = s.sendSMTP
	return s
}

// SendVerificationEmail sends an email verification link to the user
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	return s.deliver(ctx, toEmail, message{
		Subject:    "Verify your email address",
		Heading:    "Verify your email address",
		Intro:      "Thanks for joining Lao Cinema! Confirm your email address to finish setting up your account.",
		Action:     "Verify Email Address",
		Ignore:     "If you didn't create an account, you can safely ignore this email.",
		HeadingLao: "ຢືນຢັນອີເມວຂອງທ່ານ",
		IntroLao:   "ຂອບໃຈທີ່ເຂົ້າຮ່ວມ Lao Cinema! ກົດປຸ່ມຂ້າງເທິງເພື່ອຢືນຢັນອີເມວຂອງທ່ານ.",
		Link:       s.link("/verify", token),
		Expiry:     "24 hours",
	})
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	return s.deliver(ctx, toEmail, message{
		Subject:    "Reset your password",
		Heading:    "Reset your password",
		Intro:      "We received a request to reset your Lao Cinema password. Use the button below to choose a new one.",
		Action:     "Reset Password",
		Ignore:     "If you didn't request a password reset, you can ignore this email. Your password will stay the same.",
		HeadingLao: "ປ່ຽນລະຫັດຜ່ານຂອງທ່ານ",
		IntroLao:   "ກົດປຸ່ມຂ້າງເທິງເພື່ອຕັ້ງລະຫັດຜ່ານໃໝ່.",
		Link:       s.link("/reset-password", token),
		Expiry:     "1 hour",
	})
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *Service) deliver(ctx context.Context, to string, m message) error {
	logger := s.logger.With("email", to, "subject", m.Subject)

	if s.cfg.SMTPHost == "" {
		logger.Warn("smtp not configured, email skipped")
		return nil
	}

	m.Year = s.now().Year()
	body, err := render(m)
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(ctx, to, s.build(to, m.Subject, body)); err != nil {
		logger.Error("failed to send email", "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent")
	return nil
}

func render(m message) (string, error) {
	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) build(to, subject, body string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: Lao Cinema <%s>\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

// sendSMTP dials with ctx so a stuck server cannot hold a send forever.
func (s *Service) sendSMTP(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if s.cfg.SMTPUser != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}
