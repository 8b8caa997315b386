// Package sendgrid implements mailer.Sender using the SendGrid v3 Mail Send API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

const (
	providerName = "sendgrid"
	sendEndpoint = "/v3/mail/send"
)

// DefaultHost is the SendGrid API host.
const DefaultHost = "https://api.sendgrid.com"

// Config holds SendGrid configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	APIKey string `env:"SENDGRID_API_KEY"`
	Host   string `env:"SENDGRID_HOST" envDefault:"https://api.sendgrid.com"`
}

// Sender implements mailer.Sender using SendGrid.
type Sender struct {
	config Config
}

// New creates a new SendGrid sender.
func New(cfg Config) *Sender {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Sender{config: cfg}
}

// Send implements mailer.Sender. Any status outside 2xx is a *mailer.ProviderError.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	msg, err := buildMessage(email)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.config.APIKey, sendEndpoint, strings.TrimRight(s.config.Host, "/"))
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &mailer.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(resp.Body),
		}
	}
	return nil
}

func buildMessage(email *mailer.Email) (*sgmail.SGMailV3, error) {
	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return nil, errors.Join(mailer.ErrNoSender, err)
	}

	msg := sgmail.NewV3Mail()
	msg.SetFrom(sgmail.NewEmail(from.Name, from.Address))
	msg.Subject = email.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", email.To))
	msg.AddPersonalizations(p)

	// text/plain must precede text/html.
	if email.Text != "" {
		msg.AddContent(sgmail.NewContent("text/plain", email.Text))
	}
	if email.HTML != "" {
		msg.AddContent(sgmail.NewContent("text/html", email.HTML))
	}

	if a := email.Attachment; a != nil {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		att := sgmail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(contentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		msg.AddAttachment(att)
	}

	return msg, nil
}

var _ mailer.Sender = (*Sender)(nil)
