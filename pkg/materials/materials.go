package materials

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/dmitrymomot/campaigner/pkg/id"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

// Store keeps campaign materials until a campaign attaches them.
type Store interface {
	// Put validates data and stores it under a generated key.
	Put(ctx context.Context, filename string, data []byte) (*Info, error)

	// Get loads a stored file as an email attachment.
	Get(ctx context.Context, key string) (*mailer.Attachment, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, key string) error
}

// Info describes a stored file.
type Info struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`

	// Endpoint is set for MinIO or other S3-compatible services.
	Endpoint string `env:"S3_ENDPOINT"`
	Region   string `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix   string `env:"S3_PREFIX" envDefault:"materials"`

	// MaxSize bounds a single upload in bytes.
	MaxSize int64 `env:"MATERIALS_MAX_SIZE" envDefault:"10485760"`

	// PathStyle is required for MinIO.
	PathStyle bool `env:"S3_PATH_STYLE" envDefault:"false"`
}

const (
	DefaultRegion  = "us-east-1"
	DefaultPrefix  = "materials"
	DefaultMaxSize = 10 << 20
)

// Enabled reports whether an S3 bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// newKey builds {prefix}/{ulid}.pdf.
func newKey(prefix string) string {
	name := id.NewULID() + ".pdf"
	if prefix = sanitizePathSegment(prefix); prefix == "" {
		return name
	}
	return prefix + "/" + name
}

var pathSegmentRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizePathSegment(segment string) string {
	segment = strings.Trim(segment, " /\\")
	segment = strings.ReplaceAll(segment, "..", "")
	segment = pathSegmentRegex.ReplaceAllString(segment, "_")
	return url.PathEscape(segment)
}

// displayName reduces an uploaded filename to its base name.
func displayName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment.pdf"
	}
	return name
}
