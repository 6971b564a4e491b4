package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/meditrack/hospital-api/internal/config"
)

type smtpService struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: cfg.FrontendURL,
	}
}

func (s *smtpService) SendResultReady(ctx context.Context, to, patientName, testName string, resultID uuid.UUID, accessCode string, expiresAt time.Time) error {
	subject := fmt.Sprintf("Your Test Result for %s is Available", testName)
	body := fmt.Sprintf(
		"<h2>Test Result Notification</h2>"+
			"<p>Dear %s,</p>"+
			"<p>Your test result for <strong>%s</strong> is now available.</p>"+
			"<p>Access it at: <a href=\"%s/results/%s/access\">%s/results/%s/access</a></p>"+
			"<p>Your access code: <strong>%s</strong></p>"+
			"<p>This code expires on %s.</p>",
		patientName, testName,
		s.baseURL, resultID, s.baseURL, resultID,
		accessCode,
		expiresAt.UTC().Format(time.RFC1123),
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendCredentials(ctx context.Context, to, name, tempPassword string) error {
	subject := "Your Account Credentials"
	body := fmt.Sprintf(
		"<p>Dear %s,</p>"+
			"<p>An account has been created for you. Sign in with:</p>"+
			"<p>Email: %s<br>Temporary password: <strong>%s</strong></p>"+
			"<p>Please change your password after first login.</p>",
		name, to, tempPassword,
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendAppointmentReminder(ctx context.Context, to, patientName string, startTime time.Time) error {
	subject := "Appointment Reminder"
	body := fmt.Sprintf(
		"<p>Dear %s,</p>"+
			"<p>This is a reminder for your appointment on %s.</p>",
		patientName, startTime.Format(time.RFC1123),
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
