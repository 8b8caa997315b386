package mailgun

import "time"

// DefaultBaseURL is the Mailgun US region API root.
const DefaultBaseURL = "https://api.mailgun.net/v3"

// Config holds Mailgun email provider configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Domain     string        `env:"MAILGUN_DOMAIN"`
	APIKey     string        `env:"MAILGUN_API_KEY"`
	BaseURL    string        `env:"MAILGUN_BASE_URL" envDefault:"https://api.mailgun.net/v3"`
	SenderName string        `env:"MAILGUN_SENDER_NAME" envDefault:"Your Name"`
	Timeout    time.Duration `env:"MAILGUN_TIMEOUT" envDefault:"30s"`
}
