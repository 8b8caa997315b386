package campaign

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

// Credentials parameterize the provider for one campaign.
// They are never persisted; the API key is excluded from JSON and redacted in logs.
type Credentials struct {
	Domain string `json:"domain"`
	APIKey string `json:"-"`
}

// Validate reports ErrMissingCredentials (wrapped in ErrCredentials) when a field is blank.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Domain) == "" {
		missing = append(missing, "domain")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: missing %s", ErrCredentials, ErrMissingCredentials, strings.Join(missing, " and "))
	}
	return nil
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("domain", c.Domain),
		slog.String("api_key", redact(c.APIKey)),
	)
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// SenderFactory binds credentials to a provider.
type SenderFactory func(Credentials) (mailer.Sender, error)
