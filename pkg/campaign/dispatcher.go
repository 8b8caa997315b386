package campaign

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/id"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/placeholder"
)

// Campaign is the immutable input of one pass.
type Campaign struct {
	SendAt      time.Time
	Contacts    *contacts.Set
	Attachment  *mailer.Attachment
	Credentials Credentials
	Template    placeholder.Template
	HTML        bool
}

// Dispatcher runs campaigns: one paced, sequential, continue-on-error pass per Campaign.
type Dispatcher struct {
	factory       SenderFactory
	sink          Sink
	newID         func() string
	verifyAddress string
	senderName    string
	localPart     string
	delay         time.Duration
	backoff       time.Duration
	retries       int
}

// New creates a Dispatcher that builds senders with factory.
func New(factory SenderFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		factory:       factory,
		newID:         id.NewULID,
		verifyAddress: DefaultVerifyAddress,
		senderName:    DefaultSenderName,
		localPart:     DefaultLocalPart,
		delay:         DefaultDelay,
		backoff:       DefaultDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// From returns the sender identity used for domain.
func (d *Dispatcher) From(domain string) string {
	return mailer.Recipient(d.senderName, d.localPart+"@"+domain)
}

// Start checks preconditions and launches the pass in its own goroutine.
// Missing credentials, an empty contact set or a failing sender factory are
// reported here, before any network call. Canceling ctx cancels the pass.
func (d *Dispatcher) Start(ctx context.Context, c Campaign) (*Task, error) {
	return d.start(ctx, c, nil)
}

// slot gates the first send of a pass.
type slot interface {
	acquire(ctx context.Context) error
	release()
}

func (d *Dispatcher) start(ctx context.Context, c Campaign, gate slot) (*Task, error) {
	sender, err := d.prepare(c)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := newTask(d.newID(), c.Contacts.Len(), c.Contacts.Skipped(), c.SendAt, cancel, d.sink)
	t.logf(slog.LevelInfo, "", "campaign created for %d contacts on %s", c.Contacts.Len(), c.Credentials.Domain)
	for _, line := range c.Contacts.Skipped() {
		t.logf(slog.LevelWarn, "", "row on line %d skipped: empty email", line)
	}

	go d.run(runCtx, t, c, sender, gate)

	return t, nil
}

func (d *Dispatcher) prepare(c Campaign) (mailer.Sender, error) {
	if d.factory == nil {
		return nil, ErrNoSenderFactory
	}
	if err := c.Credentials.Validate(); err != nil {
		return nil, err
	}
	if err := c.Contacts.Validate(); err != nil {
		return nil, err
	}
	sender, err := d.factory(c.Credentials)
	if err != nil {
		return nil, errors.Join(ErrCredentials, err)
	}
	return sender, nil
}

func (d *Dispatcher) run(ctx context.Context, t *Task, c Campaign, sender mailer.Sender, gate slot) {
	defer t.cancel()
	t.finish(d.pass(ctx, t, c, sender, gate))
}

func (d *Dispatcher) pass(ctx context.Context, t *Task, c Campaign, sender mailer.Sender, gate slot) State {
	t.scheduled()

	if wait := time.Until(c.SendAt); !c.SendAt.IsZero() && wait > 0 {
		t.logf(slog.LevelInfo, "", "campaign scheduled for %s", c.SendAt.UTC().Format(time.RFC3339))
		if !sleep(ctx, wait) {
			return StateCanceled
		}
	}

	if gate != nil {
		if err := gate.acquire(ctx); err != nil {
			return StateCanceled
		}
		defer gate.release()
	}

	t.start()

	for i, row := range c.Contacts.Rows() {
		if ctx.Err() != nil {
			return StateCanceled
		}
		if i > 0 && d.delay > 0 && !sleep(ctx, d.delay) {
			return StateCanceled
		}
		t.record(d.deliver(ctx, t, sender, c, i, row))
	}

	return StateCompleted
}

// deliver sends to one row, retrying when enabled. It never returns an error:
// failures are folded into the result and the sink.
func (d *Dispatcher) deliver(ctx context.Context, t *Task, sender mailer.Sender, c Campaign, index int, row contacts.Row) SendResult {
	subject, body := c.Template.Render(row)
	email := &mailer.Email{
		From:       d.From(c.Credentials.Domain),
		To:         row.Email(),
		Subject:    subject,
		Text:       body,
		Attachment: c.Attachment,
	}
	if c.HTML {
		html, err := mailer.MarkdownToHTML(body)
		if err != nil {
			t.logf(slog.LevelWarn, email.To, "html alternative skipped: %v", err)
		} else {
			email.HTML = html
		}
	}

	res := SendResult{Index: index, Recipient: email.To}

	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			t.logf(slog.LevelWarn, email.To, "retrying, attempt %d of %d", attempt+1, d.retries+1)
			if !sleep(ctx, d.backoff) {
				break
			}
		}
		res.Attempts++
		if err = sender.Send(ctx, email); err == nil || ctx.Err() != nil {
			break
		}
	}
	res.SentAt = time.Now()

	if err != nil {
		res.Status = StatusFailed
		res.Detail = mailer.Detail(err)
		t.logf(slog.LevelError, email.To, "%v", res.Err())
		return res
	}

	res.Status = StatusSent
	t.logf(slog.LevelInfo, email.To, "sent")
	return res
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
