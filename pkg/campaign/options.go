package campaign

import (
	"log/slog"
	"time"
)

const (
	// DefaultDelay is the pause between consecutive sends.
	DefaultDelay = time.Second

	// DefaultVerifyAddress receives the credential verification message.
	DefaultVerifyAddress = "your_verified_email@example.com"

	// DefaultSenderName is the display name in the from address.
	DefaultSenderName = "Your Name"

	// DefaultLocalPart is the mailbox used at the credentials' domain.
	DefaultLocalPart = "mailgun"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDelay sets the pause between consecutive sends.
// Zero disables pacing. Default: 1s.
func WithDelay(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d >= 0 {
			disp.delay = d
		}
	}
}

// WithRetry enables up to n extra attempts per recipient, waiting backoff between them.
// Default: no retries.
func WithRetry(n int, backoff time.Duration) Option {
	return func(disp *Dispatcher) {
		if n >= 0 {
			disp.retries = n
		}
		if backoff >= 0 {
			disp.backoff = backoff
		}
	}
}

// WithVerifyAddress sets the recipient of the verification message.
func WithVerifyAddress(addr string) Option {
	return func(disp *Dispatcher) {
		if addr != "" {
			disp.verifyAddress = addr
		}
	}
}

// WithSender sets the from identity as "name <localPart@domain>".
func WithSender(name, localPart string) Option {
	return func(disp *Dispatcher) {
		disp.senderName = name
		if localPart != "" {
			disp.localPart = localPart
		}
	}
}

// WithSink adds a sink that receives entries from every campaign.
// Repeated sink options accumulate.
func WithSink(s Sink) Option {
	return func(disp *Dispatcher) {
		if s != nil {
			disp.sink = Tee(disp.sink, s)
		}
	}
}

// WithLogger also routes campaign entries to a slog.Logger.
func WithLogger(log *slog.Logger) Option {
	return func(disp *Dispatcher) {
		if log != nil {
			disp.sink = Tee(disp.sink, NewLoggerSink(log))
		}
	}
}

// WithIDGenerator replaces the campaign ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(disp *Dispatcher) {
		if fn != nil {
			disp.newID = fn
		}
	}
}
