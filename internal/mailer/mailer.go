package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"siteplanner/internal/logging"
)

// Sender delivers one-time sign-up codes.
type Sender interface {
	SendOTP(toEmail, code string, ttl time.Duration) error
}

type smtpSender struct {
	dialer      *gomail.Dialer
	senderEmail string
}

// New returns an SMTP sender, or a sender that only logs when host is empty.
func New(host string, port int, username, password, senderEmail string) Sender {
	if host == "" {
		logging.Area("MAILER").Warn("SMTP_HOST not set, OTP codes will only be logged")
		return logSender{}
	}
	return &smtpSender{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
	}
}

func (s *smtpSender) SendOTP(toEmail, code string, ttl time.Duration) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your SitePlanner verification code")
	m.SetBody("text/html", otpBody(code, ttl))

	if err := s.dialer.DialAndSend(m); err != nil {
		logging.Area("MAILER").WithError(err).WithField("to", toEmail).Error("failed to send OTP")
		return err
	}
	logging.Area("MAILER").WithField("to", toEmail).Info("OTP sent")
	return nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to SitePlanner</h2>
			<p>Your verification code is:</p>
			<h1 style="color: #2E7D32; letter-spacing: 5px;">%s</h1>
			<p>This code will expire in %d minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, code, int(ttl.Minutes()))
}

type logSender struct{}

func (logSender) SendOTP(toEmail, code string, _ time.Duration) error {
	logging.Area("MAILER").WithField("to", toEmail).WithField("code", code).Info("OTP (SMTP disabled)")
	return nil
}
