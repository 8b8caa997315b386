// Package campaign sends one templated email per contact.
//
// A Dispatcher takes an immutable Campaign (contacts, template, credentials and
// an optional attachment) and runs a single pass over it in its own goroutine.
// Sends are strictly sequential with a fixed pause between them, and a failure
// for one recipient never stops the pass.
//
// # Usage
//
//	d := campaign.New(func(c campaign.Credentials) (mailer.Sender, error) {
//		return mailgun.New(mailgun.Config{Domain: c.Domain, APIKey: c.APIKey}), nil
//	})
//
//	task, err := d.Start(ctx, campaign.Campaign{
//		Contacts:    set,
//		Template:    placeholder.Template{Subject: "Hello {name}", Body: "Hi {name}!"},
//		Credentials: campaign.Credentials{Domain: "mg.example.com", APIKey: key},
//	})
//	if err != nil {
//		return err // missing credentials or empty contact set
//	}
//
//	for ev := range task.Events() {
//		if ev.Result != nil {
//			fmt.Println(ev.Result.Recipient, ev.Result.Status)
//		}
//	}
//	report, _ := task.Wait(ctx)
//
// A pass over N contacts yields exactly N results in input order unless it
// is canceled, in which case the results recorded so far are kept.
//
// # Options
//
//   - WithDelay: pause between consecutive sends (default 1s)
//   - WithRetry: extra attempts per recipient (default none)
//   - WithVerifyAddress: recipient of the Verify test message
//   - WithSender: display name and mailbox of the from address
//   - WithSink / WithLogger: where progress entries go besides the report
//
// # Deferred start
//
// Campaign.SendAt in the future holds the first send until that time.
// A zero or past SendAt starts immediately.
//
// # Manager
//
// Manager runs campaigns for a long-lived process. It bounds how many
// campaigns send at once with a weighted semaphore and stores finished
// reports in a ReportStore.
//
// # Errors
//
//   - ErrCredentials, ErrMissingCredentials: rejected before a pass starts
//   - contacts.ErrEmptyContactSet: nothing to send to
//   - ErrSend: recorded per failed result, see SendResult.Err
//   - ErrNotFound, ErrFinished, ErrShuttingDown: Manager lookups and lifecycle
package campaign
