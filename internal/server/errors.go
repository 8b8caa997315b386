package server

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/dnscheck"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/store"
)

// HTTPError is an error with an HTTP status and a client-facing message.
type HTTPError struct {
	Err     error  `json:"-"`
	Message string `json:"error"`
	// Detail carries the provider response for send and verify failures.
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Code      int    `json:"-"`
}

func (e *HTTPError) Error() string { return e.Message }

func (e *HTTPError) Unwrap() error { return e.Err }

func newHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// statusRules maps domain sentinels to statuses; first match wins.
var statusRules = []struct {
	err  error
	code int
}{
	{contacts.ErrUnsupportedFormat, http.StatusBadRequest},
	{contacts.ErrMissingEmailColumn, http.StatusBadRequest},
	{contacts.ErrMalformed, http.StatusBadRequest},
	{materials.ErrEmptyFile, http.StatusBadRequest},
	{materials.ErrNotPDF, http.StatusBadRequest},
	{materials.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{store.ErrNotFound, http.StatusNotFound},
	{campaign.ErrNotFound, http.StatusNotFound},
	{materials.ErrNotFound, http.StatusNotFound},
	{contacts.ErrEmptyContactSet, http.StatusUnprocessableEntity},
	{campaign.ErrCredentials, http.StatusUnprocessableEntity},
	{dnscheck.ErrInvalidDomain, http.StatusUnprocessableEntity},
	{dnscheck.ErrNoMXRecords, http.StatusUnprocessableEntity},
	{dnscheck.ErrNoSPFRecord, http.StatusUnprocessableEntity},
	{dnscheck.ErrLookupFailed, http.StatusUnprocessableEntity},
	{campaign.ErrFinished, http.StatusConflict},
	{campaign.ErrShuttingDown, http.StatusServiceUnavailable},
}

// toHTTPError classifies err. Unknown errors become an opaque 500.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &HTTPError{Err: err, Code: http.StatusRequestEntityTooLarge, Message: "upload exceeds size limit"}
	}

	for _, rule := range statusRules {
		if errors.Is(err, rule.err) {
			return &HTTPError{Err: err, Code: rule.code, Message: err.Error(), Detail: providerDetail(err)}
		}
	}
	return &HTTPError{Err: err, Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
}

func providerDetail(err error) string {
	var pe *mailer.ProviderError
	if errors.As(err, &pe) {
		return pe.Message()
	}
	return ""
}
