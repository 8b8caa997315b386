package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/campaigner/internal/config"
	"github.com/dmitrymomot/campaigner/internal/server"
	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/health"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer flushSentry()

	ctx := cmd.Context()
	deps := server.Deps{
		Logger: log,
		Checks: health.Checks{},
	}

	uploads, reports, err := openStores(ctx, cfg, log, &deps)
	if err != nil {
		return err
	}

	if deps.Materials, err = openMaterials(cfg.Materials, log, &deps); err != nil {
		return err
	}

	deps.Dispatcher = campaign.New(cfg.SenderFactory(), append(cfg.DispatcherOptions(), campaign.WithLogger(log))...)
	deps.Manager = campaign.NewManager(deps.Dispatcher,
		campaign.WithMaxConcurrent(cfg.Campaign.MaxConcurrent),
		campaign.WithReportStore(reports),
		campaign.WithManagerLogger(log),
	)
	deps.Uploads = uploads

	log.Info("campaigner configured",
		slog.String("provider", cfg.Provider),
		slog.Bool("redis", cfg.Redis.URL != ""),
		slog.Bool("s3", cfg.Materials.Enabled()),
	)

	return server.New(cfg.Server, deps).Run(ctx)
}

// openStores picks Redis when REDIS_URL is set and in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, deps *server.Deps) (store.Store[*contacts.Set], store.Store[campaign.Report], error) {
	uploadOpts := []store.Option{store.WithPrefix("uploads"), store.WithTTL(cfg.Server.UploadTTL)}
	reportOpts := []store.Option{store.WithPrefix("reports"), store.WithTTL(cfg.Server.ReportTTL)}

	if cfg.Redis.URL == "" {
		log.Warn("REDIS_URL not set, uploads and reports are kept in memory")
		uploads := store.NewMemory[*contacts.Set](uploadOpts...)
		reports := store.NewMemory[campaign.Report](reportOpts...)
		deps.ShutdownHooks = append(deps.ShutdownHooks, closeHook(uploads), closeHook(reports))
		return uploads, reports, nil
	}

	client, err := store.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	deps.Checks["redis"] = store.Healthcheck(client)
	deps.ShutdownHooks = append(deps.ShutdownHooks, closeHook(client))

	return store.NewRedis[*contacts.Set](client, uploadOpts...), store.NewRedis[campaign.Report](client, reportOpts...), nil
}

// openMaterials uses S3 when a bucket is configured.
func openMaterials(cfg materials.Config, log *slog.Logger, deps *server.Deps) (materials.Store, error) {
	if !cfg.Enabled() {
		log.Warn("S3_BUCKET not set, materials are kept in memory")
		return materials.NewMemory(cfg.MaxSize), nil
	}

	s3, err := materials.NewS3(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure materials storage: %w", err)
	}
	deps.Checks["s3"] = s3.Healthcheck
	return s3, nil
}

type closer interface{ Close() error }

func closeHook(c closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}
