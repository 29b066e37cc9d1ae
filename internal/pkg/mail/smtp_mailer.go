package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/subfoxapp/SubFox/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// ActivationMailBody renders the account activation mail.
func ActivationMailBody(userName, activationLink string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>welcome to SubFox! Please confirm your account:</p>"+
			"<p><a href=\"%s\">%s</a></p>"+
			"<p>If you did not sign up, you can ignore this mail.</p>",
		userName, activationLink, activationLink,
	)
}

// RenewalReminderBody renders the reminder mail for an upcoming charge.
func RenewalReminderBody(userName, subscriptionName, amount, dueDate string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>your subscription <strong>%s</strong> renews on %s for %s.</p>"+
			"<p>You can manage or cancel it any time in your SubFox dashboard.</p>",
		userName, subscriptionName, dueDate, amount,
	)
}
