package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// EmailService is the out-of-band channel for freeze notices. Delivery is
// best-effort: a missing SMTP configuration or a send failure is logged and
// swallowed so a restriction always outlives a failed notice.
type EmailService struct {
	context.DefaultService

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

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	svc.baseURL = os.Getenv("BASE_URL")

	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "DrinkTea"
	}
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:8000"
	}

	svc.templates = make(map[string]*template.Template)

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	err := svc.loadTemplates()
	if err != nil {
		log.WithError(err).Error("Failed to load email templates")
		// Don't fail startup, just log the error
	}

	return nil
}

const freezeNoticeEmailHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Account Restricted - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #B91C1C; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
        </div>
        <div class="content">
            <p>Hello {{.Username}},</p>
            <p>{{.Content}}</p>
            {{if .UnfreezeDate}}<p>The restriction is scheduled to lift on <strong>{{.UnfreezeDate}}</strong>.</p>{{end}}
            <p>If you believe this is a mistake, contact support through the app.</p>
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}. This is an automated message.</p>
        </div>
    </div>
</body>
</html>
`

const unfreezeNoticeEmailHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Account Update - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #047857; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
        </div>
        <div class="content">
            <p>Hello {{.Username}},</p>
            <p>{{.Content}}</p>
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}. This is an automated message.</p>
        </div>
    </div>
</body>
</html>
`

type noticeEmailData struct {
	AppName      string
	Username     string
	Title        string
	Content      string
	UnfreezeDate string
}

func (svc *EmailService) loadTemplates() error {
	var err error

	svc.templates["freeze_notice"], err = template.New("freeze_notice").Parse(freezeNoticeEmailHTML)
	if err != nil {
		return fmt.Errorf("failed to parse freeze notice template: %v", err)
	}

	svc.templates["unfreeze_notice"], err = template.New("unfreeze_notice").Parse(unfreezeNoticeEmailHTML)
	if err != nil {
		return fmt.Errorf("failed to parse unfreeze notice template: %v", err)
	}

	return nil
}

// SendFreezeNotice emails the restricted user. The title/content are the same
// privacy-safe strings persisted on the notification record.
func (svc *EmailService) SendFreezeNotice(email, username, title, content, unfreezeDate string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping freeze notice email")
		return nil
	}

	data := noticeEmailData{
		AppName:      svc.fromName,
		Username:     username,
		Title:        title,
		Content:      content,
		UnfreezeDate: unfreezeDate,
	}

	return svc.sendTemplateEmail(email, title, "freeze_notice", data)
}

func (svc *EmailService) SendUnfreezeNotice(email, username, title, content string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping unfreeze notice email")
		return nil
	}

	data := noticeEmailData{
		AppName:  svc.fromName,
		Username: username,
		Title:    title,
		Content:  content,
	}

	return svc.sendTemplateEmail(email, title, "unfreeze_notice", data)
}

func (svc *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, data)
	if err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	return svc.sendEmail(to, subject, body.String())
}

func (svc *EmailService) sendEmail(to, subject, body string) error {
	if svc.smtpHost == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := smtp.SendMail(
		svc.smtpHost+":"+svc.smtpPort,
		auth,
		svc.fromEmail,
		[]string{to},
		msg,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent successfully")
	return nil
}
