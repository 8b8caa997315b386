package smtp

import "time"

// TLS modes.
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
)

// Config holds SMTP relay configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Host      string        `env:"SMTP_HOST"`
	Username  string        `env:"SMTP_USERNAME"`
	Password  string        `env:"SMTP_PASSWORD"`
	TLS       string        `env:"SMTP_TLS" envDefault:"starttls"`
	LocalName string        `env:"SMTP_LOCAL_NAME" envDefault:"localhost"`
	Port      int           `env:"SMTP_PORT" envDefault:"587"`
	Timeout   time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
}
