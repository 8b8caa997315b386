package materials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

// filenameMetaKey holds the uploaded filename in object metadata.
const filenameMetaKey = "filename"

// S3 implements Store using S3-compatible object storage.
type S3 struct {
	client *s3.Client
	cfg    Config
}

// NewS3 creates an S3-backed store.
func NewS3(cfg Config) (*S3, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3{
		client: s3.New(s3.Options{}, opts...),
		cfg:    cfg,
	}, nil
}

// Put implements Store. Objects are always private.
func (s *S3) Put(ctx context.Context, filename string, data []byte) (*Info, error) {
	if err := Validate(data, s.cfg.MaxSize); err != nil {
		return nil, err
	}

	key := newKey(s.cfg.Prefix)
	name := displayName(filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(MIMEPDF),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata:      map[string]string{filenameMetaKey: url.QueryEscape(name)},
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrUploadFailed)
	}

	return &Info{Key: key, Filename: name, ContentType: MIMEPDF, Size: int64(len(data))}, nil
}

// Get implements Store. Objects larger than the configured limit are refused.
func (s *S3) Get(ctx context.Context, key string) (*mailer.Attachment, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrNotFound)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("materials: read %s: %w", key, err)
	}
	if int64(len(data)) > s.cfg.MaxSize {
		return nil, ErrFileTooLarge
	}

	name := "attachment.pdf"
	if v, ok := out.Metadata[filenameMetaKey]; ok {
		if decoded, err := url.QueryUnescape(v); err == nil && decoded != "" {
			name = decoded
		}
	}

	return &mailer.Attachment{Filename: name, ContentType: MIMEPDF, Content: data}, nil
}

// Delete implements Store.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapS3Error(err, ErrDeleteFailed)
	}
	return nil
}

// Healthcheck verifies the bucket is reachable.
func (s *S3) Healthcheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return errors.Join(ErrAccessDenied, err)
	}
	return nil
}

var _ Store = (*S3)(nil)
