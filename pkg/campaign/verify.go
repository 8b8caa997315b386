package campaign

import (
	"context"
	"errors"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

const (
	verifySenderName = "Test User"
	verifySubject    = "Mailgun Test Email"
	verifyText       = "This is a test email to verify Mailgun credentials."
)

// Verify sends one test message to the verification address.
// It never touches a contact set. Any failure is returned joined with ErrCredentials.
func (d *Dispatcher) Verify(ctx context.Context, creds Credentials) error {
	if d.factory == nil {
		return ErrNoSenderFactory
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	sender, err := d.factory(creds)
	if err != nil {
		return errors.Join(ErrCredentials, err)
	}

	err = sender.Send(ctx, &mailer.Email{
		From:    mailer.Recipient(verifySenderName, d.localPart+"@"+creds.Domain),
		To:      d.verifyAddress,
		Subject: verifySubject,
		Text:    verifyText,
	})
	if err != nil {
		return errors.Join(ErrCredentials, err)
	}
	return nil
}
