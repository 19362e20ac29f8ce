package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// EmailService delivers access codes to buyers. Delivery is best effort;
// a missing SMTP configuration downgrades every send to a warn-and-skip.
type EmailService struct {
	appContext.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	baseURL      string

	templates map[string]*template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *appContext.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")

	svc.fromEmail = os.Getenv("FROM_EMAIL")
	if svc.fromEmail == "" {
		svc.fromEmail = "noreply@questrail.games"
	}
	svc.fromName = os.Getenv("FROM_NAME")
	if svc.fromName == "" {
		svc.fromName = "QuestTrail"
	}

	svc.baseURL = os.Getenv("BASE_URL")
	if svc.baseURL == "" {
		svc.baseURL = "https://play.questrail.games"
	}

	svc.templates = make(map[string]*template.Template)
	return svc.loadTemplates()
}

func (svc *EmailService) Start() error {
	return nil
}

func (svc *EmailService) loadTemplates() error {
	accessCodeTmpl := `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Your QuestTrail access code</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2 style="color: #1a1a2e;">Your adventure awaits</h2>
	<p>Thanks for your purchase of <strong>{{.GameTitle}}</strong>.</p>
	<p>Your access code:</p>
	<p style="font-size: 28px; letter-spacing: 4px; font-weight: bold; text-align: center; background: #f0f0f0; padding: 16px; border-radius: 8px;">{{.Code}}</p>
	<p>Enter it at <a href="{{.PlayURL}}">{{.PlayURL}}</a> when you arrive at the starting point. The code is valid for {{.WindowHours}} hours from first use.</p>
	<p style="color: #888; font-size: 12px;">If you did not make this purchase, you can ignore this email.</p>
</body>
</html>`

	tmpl, err := template.New("access_code").Parse(accessCodeTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse access code template: %v", err)
	}
	svc.templates["access_code"] = tmpl

	return nil
}

// SendAccessCode mails a freshly created access code to the buyer.
func (svc *EmailService) SendAccessCode(toEmail, code, gameTitle string, windowHours int) error {
	data := map[string]interface{}{
		"Code":        code,
		"GameTitle":   gameTitle,
		"PlayURL":     svc.baseURL,
		"WindowHours": windowHours,
	}
	return svc.sendTemplateEmail(toEmail, "Your QuestTrail access code", "access_code", data)
}

func (svc *EmailService) sendTemplateEmail(toEmail, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	return svc.sendEmail(toEmail, subject, body.String())
}

func (svc *EmailService) sendEmail(toEmail, subject, htmlBody string) error {
	if svc.smtpHost == "" || svc.smtpUsername == "" {
		log.Warnf("SMTP not configured, skipping email to %s", toEmail)
		return nil
	}

	from := fmt.Sprintf("%s <%s>", svc.fromName, svc.fromEmail)

	message := fmt.Sprintf("From: %s\r\n", from)
	message += fmt.Sprintf("To: %s\r\n", toEmail)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	message += "\r\n"
	message += htmlBody

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	addr := fmt.Sprintf("%s:%s", svc.smtpHost, svc.smtpPort)

	if err := smtp.SendMail(addr, auth, svc.fromEmail, []string{toEmail}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.Infof("Email sent to %s: %s", toEmail, subject)
	return nil
}

func (svc *EmailService) SendPlainEmail(toEmail, subject, body string) error {
	if svc.smtpHost == "" || svc.smtpUsername == "" {
		log.Warnf("SMTP not configured, skipping email to %s", toEmail)
		return nil
	}

	from := fmt.Sprintf("%s <%s>", svc.fromName, svc.fromEmail)

	message := fmt.Sprintf("From: %s\r\n", from)
	message += fmt.Sprintf("To: %s\r\n", toEmail)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	addr := fmt.Sprintf("%s:%s", svc.smtpHost, svc.smtpPort)

	return smtp.SendMail(addr, auth, svc.fromEmail, []string{toEmail}, []byte(message))
}
