package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"

	"github.com/princeprakhar/travel-review-backend/internal/config"
	"gopkg.in/gomail.v2"
)

var commentMailTemplate = template.Must(template.New("comment").Parse(`<h2>New comment on your review</h2>
<p><strong>{{.Commenter}}</strong> commented on <strong>{{.ReviewTitle}}</strong>:</p>
<blockquote>{{.Content}}</blockquote>
<p>Happy travels,<br>The Travel Review Team</p>
`))

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService delivers comment notifications to review authors over SMTP.
type EmailService struct {
	from   string
	sender mailSender
}

func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	return &EmailService{from: cfg.FromEmail, sender: dialer}
}

func (s *EmailService) SendEmail(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendCommentNotification implements CommentNotifier. User-supplied text is
// HTML-escaped by the template.
func (s *EmailService) SendCommentNotification(to, reviewTitle, commenter, content string) error {
	var body bytes.Buffer
	err := commentMailTemplate.Execute(&body, struct {
		ReviewTitle, Commenter, Content string
	}{reviewTitle, commenter, content})
	if err != nil {
		return fmt.Errorf("render comment mail: %w", err)
	}

	return s.SendEmail(to, fmt.Sprintf("New comment on %q", reviewTitle), body.String())
}
