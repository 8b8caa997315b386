// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/logger"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/mailer/mailgun"
	"github.com/dmitrymomot/campaigner/pkg/mailer/resend"
	"github.com/dmitrymomot/campaigner/pkg/mailer/sendgrid"
	"github.com/dmitrymomot/campaigner/pkg/mailer/smtp"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/store"
)

// Providers.
const (
	ProviderMailgun  = "mailgun"
	ProviderResend   = "resend"
	ProviderSendGrid = "sendgrid"
	ProviderSMTP     = "smtp"
)

var (
	ErrUnknownProvider = errors.New("config: unknown provider")
	ErrParse           = errors.New("config: failed to parse environment")
)

// Config is the full process configuration.
type Config struct {
	Provider string `env:"PROVIDER" envDefault:"mailgun"`

	// Domain is the sending domain for CLI runs when the provider config has none.
	Domain string `env:"SENDING_DOMAIN"`

	Server    Server
	Campaign  Campaign
	Log       logger.Config
	Mailgun   mailgun.Config
	Resend    resend.Config
	SendGrid  sendgrid.Config
	SMTP      smtp.Config
	Redis     store.RedisConfig
	Materials materials.Config
}

// Server holds HTTP API settings.
type Server struct {
	Addr            string         `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins     []string       `env:"CORS_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration  `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	UploadTTL       time.Duration  `env:"UPLOAD_TTL" envDefault:"24h"`
	ReportTTL       time.Duration  `env:"REPORT_TTL" envDefault:"168h"`
	MaxUploadSize   int64          `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	VerifyPerMinute int            `env:"VERIFY_RATE_LIMIT" envDefault:"5"`
	// TrustedProxies are the networks allowed to set X-Forwarded-For.
	TrustedProxies  []netip.Prefix `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Campaign holds dispatcher settings.
type Campaign struct {
	VerifyAddress   string        `env:"VERIFY_ADDRESS" envDefault:"your_verified_email@example.com"`
	SenderName      string        `env:"SENDER_NAME" envDefault:"Your Name"`
	SenderLocalPart string        `env:"SENDER_LOCAL_PART" envDefault:"mailgun"`
	Delay           time.Duration `env:"SEND_DELAY" envDefault:"1s"`
	RetryBackoff    time.Duration `env:"SEND_RETRY_BACKOFF" envDefault:"1s"`
	MaxConcurrent   int64         `env:"MAX_CONCURRENT_CAMPAIGNS" envDefault:"4"`
	Retries         int           `env:"SEND_RETRIES" envDefault:"0"`
}

// Load reads optional dotenv files (".env" when none are given) and parses the
// environment. Missing dotenv files are ignored.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrParse, err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMailgun, ProviderResend, ProviderSendGrid, ProviderSMTP:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Provider == ProviderSMTP && c.SMTP.Host == "" {
		return fmt.Errorf("%w: SMTP_HOST is required for the smtp provider", ErrParse)
	}
	return nil
}

// SenderFactory binds per-campaign credentials to the configured provider.
// Credentials override the provider's domain and key; the rest of the
// provider config comes from the environment.
func (c Config) SenderFactory() campaign.SenderFactory {
	return func(creds campaign.Credentials) (mailer.Sender, error) {
		switch c.Provider {
		case ProviderMailgun:
			cfg := c.Mailgun
			cfg.Domain, cfg.APIKey = creds.Domain, creds.APIKey
			return mailgun.New(cfg), nil
		case ProviderResend:
			cfg := c.Resend
			cfg.APIKey = creds.APIKey
			return resend.New(cfg), nil
		case ProviderSendGrid:
			cfg := c.SendGrid
			cfg.APIKey = creds.APIKey
			return sendgrid.New(cfg), nil
		case ProviderSMTP:
			cfg := c.SMTP
			cfg.Password = creds.APIKey
			if cfg.Username == "" {
				cfg.Username = "postmaster@" + creds.Domain
			}
			return smtp.New(cfg), nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
}

// Credentials returns the credentials configured in the environment, used by
// the CLI. The HTTP API takes credentials per request instead.
func (c Config) Credentials() campaign.Credentials {
	creds := campaign.Credentials{Domain: c.Domain}

	switch c.Provider {
	case ProviderMailgun:
		creds.APIKey = c.Mailgun.APIKey
		if c.Mailgun.Domain != "" {
			creds.Domain = c.Mailgun.Domain
		}
	case ProviderResend:
		creds.APIKey = c.Resend.APIKey
		if creds.Domain == "" {
			_, creds.Domain, _ = strings.Cut(c.Resend.SenderEmail, "@")
		}
	case ProviderSendGrid:
		creds.APIKey = c.SendGrid.APIKey
	case ProviderSMTP:
		creds.APIKey = c.SMTP.Password
	}
	return creds
}

// DispatcherOptions maps Campaign settings onto dispatcher options.
func (c Config) DispatcherOptions() []campaign.Option {
	return []campaign.Option{
		campaign.WithDelay(c.Campaign.Delay),
		campaign.WithRetry(c.Campaign.Retries, c.Campaign.RetryBackoff),
		campaign.WithVerifyAddress(c.Campaign.VerifyAddress),
		campaign.WithSender(c.Campaign.SenderName, c.Campaign.SenderLocalPart),
	}
}
