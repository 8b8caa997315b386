// Package mailer defines the provider-neutral message model used by campaigns.
//
// A campaign renders one Email per contact and hands it to a Sender. Providers
// live in sub-packages:
//
//   - mailer/mailgun: Mailgun Messages API over HTTP (default)
//   - mailer/resend: Resend API via resend-go
//   - mailer/sendgrid: SendGrid v3 API via sendgrid-go
//   - mailer/smtp: any SMTP relay via go-smtp
//
// # Usage
//
//	sender := mailgun.New(mailgun.Config{
//		Domain: "mg.example.com",
//		APIKey: os.Getenv("MAILGUN_API_KEY"),
//	})
//
//	err := sender.Send(ctx, &mailer.Email{
//		From:    mailer.Recipient("Your Name", "mailgun@mg.example.com"),
//		To:      "alice@example.com",
//		Subject: "Hello Alice",
//		Text:    "Hi Alice!",
//	})
//
// # Custom Providers
//
// Implement the Sender interface to add support for other email providers:
//
//	type MySender struct{}
//
//	func (s *MySender) Send(ctx context.Context, email *mailer.Email) error {
//		// Send email using your provider's API
//		return nil
//	}
//
// Providers report a rejected request as *ProviderError so callers can record
// the provider's response body; Detail extracts it from any error chain.
//
// # HTML alternative
//
// Bodies are plain text. MarkdownToHTML renders an optional, sanitized HTML
// alternative for providers that accept one.
//
// # Errors
//
//   - ErrNoRecipient: No recipient specified
//   - ErrNoSender: No sender address
//   - ErrNoContent: Neither text nor HTML provided
//   - ErrSendFailed: Email sending failed
//   - ErrRejected: Provider answered with a non-success status
package mailer
