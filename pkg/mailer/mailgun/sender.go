// Package mailgun implements mailer.Sender on top of the Mailgun Messages API.
package mailgun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

const (
	providerName = "mailgun"
	apiUser      = "api"
	maxBodyBytes = 64 << 10
)

// ErrMissingDomain is returned when the sender has no domain to post to.
var ErrMissingDomain = errors.New("mailgun: domain is required")

// Sender implements mailer.Sender using the Mailgun HTTP API.
type Sender struct {
	client *http.Client
	config Config
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a new Mailgun sender.
func New(cfg Config, opts ...Option) *Sender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Domain = strings.TrimSpace(cfg.Domain)

	s := &Sender{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// From returns the default sender identity for the configured domain.
func (s *Sender) From() string {
	return mailer.Recipient(s.config.SenderName, "mailgun@"+s.config.Domain)
}

// Endpoint returns the messages endpoint for the configured domain.
func (s *Sender) Endpoint() string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + s.config.Domain + "/messages"
}

// Send implements mailer.Sender.
// Only HTTP 200 counts as success; any other status yields a *mailer.ProviderError.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if s.config.Domain == "" {
		return ErrMissingDomain
	}
	if email != nil && email.From == "" {
		clone := *email
		clone.From = s.From()
		email = &clone
	}
	if err := email.Validate(); err != nil {
		return err
	}

	body, contentType, err := buildForm(email)
	if err != nil {
		return fmt.Errorf("mailgun: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint(), body)
	if err != nil {
		return fmt.Errorf("mailgun: build request: %w", err)
	}
	req.SetBasicAuth(apiUser, s.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return &mailer.ProviderError{
		Provider:   providerName,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// buildForm encodes the message as multipart/form-data.
func buildForm(email *mailer.Email) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"from", email.From},
		{"to", email.To},
		{"subject", email.Subject},
		{"text", email.Text},
	}
	if email.HTML != "" {
		fields = append(fields, [2]string{"html", email.HTML})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if a := email.Attachment; a != nil {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename="%s"`, quoteEscaper.Replace(a.Filename)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var _ mailer.Sender = (*Sender)(nil)
