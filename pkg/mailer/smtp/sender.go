// Package smtp implements mailer.Sender by relaying through an SMTP server.
//
// Messages are composed with go-message as multipart/mixed: an inline
// text (and optional HTML) alternative followed by the attachment.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"strconv"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

const providerName = "smtp"

var (
	// ErrMissingHost is returned when no relay host is configured.
	ErrMissingHost = errors.New("smtp: host is required")

	// ErrUnknownTLSMode is returned for an unsupported SMTP_TLS value.
	ErrUnknownTLSMode = errors.New("smtp: unknown tls mode")
)

// Sender implements mailer.Sender over SMTP.
type Sender struct {
	config Config
}

// New creates an SMTP sender.
func New(cfg Config) *Sender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSStartTLS
	}
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	return &Sender{config: cfg}
}

// Send implements mailer.Sender.
// A reply code from the server is reported as *mailer.ProviderError.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if s.config.Host == "" {
		return ErrMissingHost
	}
	if err := email.Validate(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return errors.Join(mailer.ErrNoSender, err)
	}

	var msg bytes.Buffer
	if err := compose(&msg, from, email); err != nil {
		return fmt.Errorf("smtp: compose message: %w", err)
	}

	c, err := s.dial()
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}
	defer func() { _ = c.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := s.deliver(c, from.Address, email.To, &msg); err != nil {
		if ctx.Err() != nil {
			return errors.Join(mailer.ErrSendFailed, ctx.Err())
		}
		return classify(err)
	}
	return nil
}

func (s *Sender) dial() (*gosmtp.Client, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	tlsConfig := &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}

	var (
		c   *gosmtp.Client
		err error
	)
	switch s.config.TLS {
	case TLSNone:
		c, err = gosmtp.Dial(addr)
	case TLSStartTLS:
		c, err = gosmtp.DialStartTLS(addr, tlsConfig)
	case TLSImplicit:
		c, err = gosmtp.DialTLS(addr, tlsConfig)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTLSMode, s.config.TLS)
	}
	if err != nil {
		return nil, err
	}
	if s.config.Timeout > 0 {
		c.CommandTimeout = s.config.Timeout
		c.SubmissionTimeout = s.config.Timeout
	}
	return c, nil
}

func (s *Sender) deliver(c *gosmtp.Client, from, to string, msg io.Reader) error {
	if err := c.Hello(s.config.LocalName); err != nil {
		return err
	}
	if s.config.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.config.Username, s.config.Password)); err != nil {
			return err
		}
	}
	if err := c.Mail(from, nil); err != nil {
		return err
	}
	if err := c.Rcpt(to, nil); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func classify(err error) error {
	var se *gosmtp.SMTPError
	if errors.As(err, &se) {
		return &mailer.ProviderError{Provider: providerName, StatusCode: se.Code, Body: se.Message}
	}
	return errors.Join(mailer.ErrSendFailed, err)
}

// compose writes a MIME message for email.
func compose(w io.Writer, from *mail.Address, email *mailer.Email) error {
	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*gomail.Address{{Name: from.Name, Address: from.Address}})
	h.SetAddressList("To", []*gomail.Address{{Address: email.To}})
	h.SetSubject(email.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return err
	}

	mw, err := gomail.CreateWriter(w, h)
	if err != nil {
		return err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return err
	}
	if email.Text != "" {
		if err := writeInline(iw, "text/plain", email.Text); err != nil {
			return err
		}
	}
	if email.HTML != "" {
		if err := writeInline(iw, "text/html", email.HTML); err != nil {
			return err
		}
	}
	if err := iw.Close(); err != nil {
		return err
	}

	if a := email.Attachment; a != nil {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		var ah gomail.AttachmentHeader
		ah.SetContentType(contentType, nil)
		ah.SetFilename(a.Filename)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return err
		}
		if _, err := aw.Write(a.Content); err != nil {
			return err
		}
		if err := aw.Close(); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writeInline(iw *gomail.InlineWriter, contentType, body string) error {
	var ih gomail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ih.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := iw.CreatePart(ih)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return err
	}
	return pw.Close()
}

var _ mailer.Sender = (*Sender)(nil)
