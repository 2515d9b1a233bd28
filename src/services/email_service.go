package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/logger"
)

type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
}

func NewEmailService() EmailService {
	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete, falling back to log-only email service")
			return &LogEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" {
			logger.L.Warn("SMTP configuration incomplete, falling back to log-only email service")
			return &LogEmailService{}
		}
		return &SMTPEmailService{
			server:      config.Cfg.SMTPServer,
			port:        config.Cfg.SMTPPort,
			user:        config.Cfg.SMTPUser,
			password:    config.Cfg.SMTPPassword,
			senderEmail: config.Cfg.SenderEmail,
		}
	default:
		return &LogEmailService{}
	}
}

func verificationLink(token string) string {
	return fmt.Sprintf("%s?token=%s", config.Cfg.VerificationEmailBaseURL, token)
}

func passwordResetLink(token string) string {
	return fmt.Sprintf("%s?token=%s", config.Cfg.PasswordResetBaseURL, token)
}

// --- Mailgun ---

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) send(subject, plainBody, htmlBody, toEmail, tag string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, subject, plainBody, toEmail)
	message.SetHtml(htmlBody)
	if tag != "" {
		message.AddTag(tag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send email via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Email sent via Mailgun", "to", toEmail, "subject", subject, "id", id)
	return nil
}

func (s *MailgunEmailService) SendVerificationEmail(toEmail, username, token string) error {
	link := verificationLink(token)
	plain := fmt.Sprintf(`Hi %s,

Welcome to Trackfolio! Please verify your email address by clicking the link below:
%s

If you did not create an account using this email address, please ignore this email.

Thanks,
The Trackfolio Team`, username, link)
	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">
<p>Hi %s,</p>
<p>Welcome to Trackfolio! Please verify your email address by clicking the link below:</p>
<p><a href="%s" target="_blank">Verify Email Address</a></p>
<p>If you did not create an account using this email address, please ignore this email.</p>
<p>Thanks,<br>The Trackfolio Team</p>
</body></html>`, username, link)
	return s.send("Verify Your Email Address for Trackfolio", plain, html, toEmail, "")
}

func (s *MailgunEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	link := passwordResetLink(token)
	expiry := config.Cfg.PasswordResetTokenExpiry.String()
	plain := fmt.Sprintf(`Hi %s,

You requested a password reset for your Trackfolio account.
Please click the following link to reset your password:
%s

If you did not request a password reset, please ignore this email. This link will expire in %s.

Thanks,
The Trackfolio Team`, username, link, expiry)
	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">
<p>Hi %s,</p>
<p>You requested a password reset for your Trackfolio account. Click the link below to reset your password:</p>
<p><a href="%s" target="_blank">Reset Password</a></p>
<p>If you did not request this reset, please ignore this email. This link will expire in %s.</p>
<p>Thanks,<br>The Trackfolio Team</p>
</body></html>`, username, link, expiry)
	return s.send("Password Reset Request for Trackfolio", plain, html, toEmail, "password-reset")
}

// --- SMTP ---

type SMTPEmailService struct {
	server      string
	port        int
	user        string
	password    string
	senderEmail string
}

func (s *SMTPEmailService) send(subject, body, toEmail string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		s.senderEmail, toEmail, subject)
	auth := smtp.PlainAuth("", s.user, s.password, s.server)
	addr := fmt.Sprintf("%s:%d", s.server, s.port)

	if err := smtp.SendMail(addr, auth, s.senderEmail, []string{toEmail}, []byte(headers+body)); err != nil {
		logger.L.Error("Failed to send email via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("smtp send failed: %w", err)
	}
	logger.L.Info("Email sent via SMTP", "to", toEmail, "subject", subject)
	return nil
}

func (s *SMTPEmailService) SendVerificationEmail(toEmail, username, token string) error {
	body := fmt.Sprintf("Hi %s,\n\nPlease verify your email by clicking this link: %s\n\nThanks,\nThe Trackfolio Team",
		username, verificationLink(token))
	return s.send("Verify Your Email Address for Trackfolio", body, toEmail)
}

func (s *SMTPEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	body := fmt.Sprintf("Hi %s,\n\nReset your password using this link: %s\n\nThis link expires in %s.\n\nThanks,\nThe Trackfolio Team",
		username, passwordResetLink(token), config.Cfg.PasswordResetTokenExpiry.String())
	return s.send("Password Reset Request for Trackfolio", body, toEmail)
}

// --- Log only (development default) ---

type LogEmailService struct{}

func (l *LogEmailService) SendVerificationEmail(toEmail, username, token string) error {
	logger.L.Info("LogEmailService: would send verification email",
		"to", toEmail, "username", username, "link", verificationLink(token))
	return nil
}

func (l *LogEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	logger.L.Info("LogEmailService: would send password reset email",
		"to", toEmail, "username", username, "link", passwordResetLink(token))
	return nil
}
