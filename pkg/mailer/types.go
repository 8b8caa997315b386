package mailer

import (
	"fmt"
	"strings"
)

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Recipient(name, email string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email represents a fully-prepared message for a single recipient.
type Email struct {
	Attachment *Attachment // Optional file part
	From       string      // Sender address, "Name <addr>" allowed
	To         string      // Recipient address
	Subject    string      // Rendered subject
	Text       string      // Rendered plain text body
	HTML       string      // Optional HTML alternative
}

// Validate checks that the message can be handed to a provider.
func (e *Email) Validate() error {
	switch {
	case e == nil || strings.TrimSpace(e.To) == "":
		return ErrNoRecipient
	case strings.TrimSpace(e.From) == "":
		return ErrNoSender
	case e.Text == "" && e.HTML == "":
		return ErrNoContent
	}
	return nil
}

// Attachment represents campaign material sent alongside every message.
type Attachment struct {
	Filename    string `json:"filename"`     // Display name for the attachment
	ContentType string `json:"content_type"` // MIME type (e.g., "application/pdf")
	Content     []byte `json:"content"`      // Raw file content
}
