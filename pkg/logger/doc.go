// Package logger builds the structured slog logger used by the API server and CLI.
//
// Records are JSON on stdout by default. A LogHandlerDecorator injects
// context-scoped attributes on every call; the package ships extractors for
// request_id and campaign_id:
//
//	log := logger.NewFromConfig(cfg.Log,
//		logger.RequestIDExtractor(),
//		logger.CampaignIDExtractor(),
//	)
//
//	ctx = logger.WithCampaignID(ctx, task.ID())
//	log.InfoContext(ctx, "campaign accepted", slog.Int("contacts", n))
//	// {"level":"INFO","msg":"campaign accepted","contacts":2,"campaign_id":"01J..."}
//
// # Sentry
//
// When SENTRY_DSN is set, records are also sent to Sentry: errors become
// issues, warnings are stored as logs. Without a DSN, or if Sentry fails to
// initialize, logging continues on stdout only. Call Flush before exit.
//
// # Levels
//
// LOG_LEVEL accepts debug, info, warn and error. LOG_FORMAT=text switches to
// the slog text handler for local use.
package logger
