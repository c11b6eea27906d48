package service

import (
	"deckforge/auth-api/internal/model"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers verification codes. Sending is fire-and-report, the
// caller learns about failures but nothing retries here
type Mailer interface {
	Configured() bool
	SendVerificationCode(to, code, purpose string, expiresMinutes int) error
}

type SMTPMailer struct {
	host     string
	port     int
	from     string
	password string
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		host:     viper.GetString("mail.host"),
		port:     viper.GetInt("mail.port"),
		from:     viper.GetString("mail.sender_address"),
		password: viper.GetString("mail.password"),
	}
}

func (m *SMTPMailer) Configured() bool {
	return m.host != "" && m.from != ""
}

func (m *SMTPMailer) SendVerificationCode(to, code, purpose string, expiresMinutes int) error {
	if to == m.from {
		return errors.New("invalid email address")
	}

	var subject, title, description string

	switch purpose {
	case model.PurposeRegister:
		subject = "[Deckforge] Registration code"
		title = "Welcome to Deckforge"
		description = "You're creating a Deckforge account. Use this code to finish signing up:"
	case model.PurposeResetPassword:
		subject = "[Deckforge] Password reset code"
		title = "Reset your password"
		description = "You're resetting your Deckforge password. Use this code to continue:"
	default:
		subject = "[Deckforge] Verification code"
		title = "Verification code"
		description = "Your verification code is:"
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", fmt.Sprintf(
		"%s\n\n%s\n\nThe code is valid for %d minutes. Don't share it with anyone.\n\nIf you didn't request this, you can ignore this email.",
		description, code, expiresMinutes,
	))
	msg.AddAlternative("text/html", fmt.Sprintf(mailTemplate, title, description, code, expiresMinutes))

	d := gomail.NewDialer(m.host, m.port, m.from, m.password)

	if err := d.DialAndSend(msg); err != nil {
		return err
	}

	zap.L().Debug("Verification mail sent", zap.String("purpose", purpose))
	return nil
}

const mailTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>%[1]s</title></head>
<body style="margin:0;padding:0;background:#f8f9fa;font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;">
  <table role="presentation" style="width:100%%;border-collapse:collapse;">
    <tr><td align="center" style="padding:40px 20px;">
      <table role="presentation" style="width:100%%;max-width:480px;border-collapse:collapse;">
        <tr><td style="background:#ffffff;border-radius:16px;padding:40px 32px;">
          <h1 style="margin:0 0 16px 0;font-size:24px;color:#111827;text-align:center;">%[1]s</h1>
          <p style="margin:0 0 24px 0;font-size:15px;color:#6b7280;text-align:center;">%[2]s</p>
          <div style="background:#eef2ff;border-radius:12px;padding:24px;text-align:center;margin-bottom:24px;">
            <div style="font-size:36px;font-weight:700;letter-spacing:8px;color:#3730a3;font-family:'Courier New',monospace;">%[3]s</div>
          </div>
          <p style="margin:0;font-size:13px;color:#6b7280;text-align:center;">The code is valid for <strong>%[4]d minutes</strong>. Don't share it with anyone.</p>
          <p style="margin:16px 0 0 0;font-size:13px;color:#9ca3af;text-align:center;">If you didn't request this, you can ignore this email.</p>
        </td></tr>
        <tr><td style="padding-top:30px;text-align:center;">
          <p style="margin:0;font-size:13px;color:#9ca3af;">Sent automatically by Deckforge, please don't reply.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
