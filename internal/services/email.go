package services

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/shopspring/decimal"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     os.Getenv("EMAIL_FROM"),
	}
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if s.host == "" || s.port == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("SMTP credentials not fully configured")
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	// Build the message
	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", to[0], subject, body))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, to, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendPaymentReminder emails a participant about an upcoming installment
func (s *EmailService) SendPaymentReminder(to, participant, event string, amount decimal.Decimal, dueDate string) error {
	subject := fmt.Sprintf("Payment reminder: %s", event)
	body := fmt.Sprintf("Hello %s,\n\nYour installment of %s for %s is due on %s.\n\nPlease complete the payment before the due date to avoid late fees.",
		participant, amount.StringFixed(2), event, dueDate)
	return s.SendEmail([]string{to}, subject, body)
}

// SendPaymentReceipt emails a participant after a payment is applied
func (s *EmailService) SendPaymentReceipt(to, participant, event string, amount decimal.Decimal) error {
	subject := fmt.Sprintf("Payment received: %s", event)
	body := fmt.Sprintf("Hello %s,\n\nWe received your payment of %s for %s. Thank you!",
		participant, amount.StringFixed(2), event)
	return s.SendEmail([]string{to}, subject, body)
}
