package campaign

import "errors"

var (
	// ErrCredentials is returned when provider credentials are missing or rejected.
	ErrCredentials = errors.New("campaign: invalid credentials")

	// ErrMissingCredentials indicates the domain or API key was not supplied.
	ErrMissingCredentials = errors.New("campaign: domain and api key are required")

	// ErrSend marks a failed delivery to a single recipient.
	// It is recorded in the report and never aborts the pass.
	ErrSend = errors.New("campaign: send failed")

	// ErrNotFound is returned when no campaign exists for an ID.
	ErrNotFound = errors.New("campaign: not found")

	// ErrFinished is returned when canceling a campaign that already ended.
	ErrFinished = errors.New("campaign: already finished")

	// ErrShuttingDown is returned by Manager.Launch after Shutdown was called.
	ErrShuttingDown = errors.New("campaign: manager is shutting down")

	// ErrNoSenderFactory is returned when a Dispatcher has no way to build a sender.
	ErrNoSenderFactory = errors.New("campaign: sender factory is required")
)
