package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have a recipient")

	// ErrNoSender indicates no sender address was specified.
	ErrNoSender = errors.New("email must have a sender")

	// ErrNoContent indicates neither text nor HTML content was provided.
	ErrNoContent = errors.New("email must have text or HTML content")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")

	// ErrRejected indicates the provider answered with a non-success status.
	ErrRejected = errors.New("provider rejected the request")
)

// ProviderError carries the provider's response for a rejected request.
// It matches ErrRejected with errors.Is.
type ProviderError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrRejected
}

// Message returns the "message" field of a JSON response body, falling back
// to the raw body.
func (e *ProviderError) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return e.Body
}

// Detail returns the text worth showing for a failed send: the provider's
// response body when the request was rejected, the error text otherwise.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Body != "" {
		return pe.Body
	}
	return err.Error()
}
