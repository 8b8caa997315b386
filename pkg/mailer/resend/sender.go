// Package resend implements mailer.Sender using the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

const providerName = "resend"

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	client *resend.Client
	config Config
}

// New creates a new Resend sender.
func New(cfg Config) *Sender {
	return &Sender{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

// NewWithClient creates a Resend sender around an existing client.
// Used to point the sender at a different base URL.
func NewWithClient(client *resend.Client, cfg Config) *Sender {
	return &Sender{client: client, config: cfg}
}

// From returns the configured default sender identity.
func (s *Sender) From() string {
	return mailer.Recipient(s.config.SenderName, s.config.SenderEmail)
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if email != nil && email.From == "" {
		clone := *email
		clone.From = s.From()
		email = &clone
	}
	if err := email.Validate(); err != nil {
		return err
	}

	req := buildRequest(email)

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		if ctx.Err() != nil {
			return errors.Join(mailer.ErrSendFailed, ctx.Err())
		}
		// resend-go folds the response body into the error text.
		return fmt.Errorf("%w: %w", mailer.ErrSendFailed, &mailer.ProviderError{
			Provider: providerName,
			Body:     err.Error(),
		})
	}

	return nil
}

func buildRequest(email *mailer.Email) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if a := email.Attachment; a != nil {
		req.Attachments = []*resend.Attachment{{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}}
	}
	return req
}

var _ mailer.Sender = (*Sender)(nil)
