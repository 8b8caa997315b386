package logger

import (
	"context"
	"log/slog"
)

type (
	requestIDKey  struct{}
	campaignIDKey struct{}
)

// WithRequestID returns a context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithCampaignID returns a context carrying the campaign ID.
func WithCampaignID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, campaignIDKey{}, id)
}

// CampaignID returns the campaign ID stored in ctx, or "".
func CampaignID(ctx context.Context) string {
	id, _ := ctx.Value(campaignIDKey{}).(string)
	return id
}

// RequestIDExtractor adds request_id to records logged with a request context.
func RequestIDExtractor() ContextExtractor {
	return stringExtractor("request_id", RequestID)
}

// CampaignIDExtractor adds campaign_id to records logged with a campaign context.
func CampaignIDExtractor() ContextExtractor {
	return stringExtractor("campaign_id", CampaignID)
}

func stringExtractor(key string, get func(context.Context) string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := get(ctx); v != "" {
			return slog.String(key, v), true
		}
		return slog.Attr{}, false
	}
}
