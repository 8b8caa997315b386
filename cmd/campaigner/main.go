// Command campaigner sends personalized email campaigns from a contact file,
// either once from the command line or through the HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/campaigner/internal/config"
	"github.com/dmitrymomot/campaigner/pkg/logger"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "campaigner",
	Short:         "Send personalized email campaigns",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewFromConfig(cfg.Log, logger.RequestIDExtractor(), logger.CampaignIDExtractor())
	return cfg, log, nil
}

func flushSentry() {
	logger.Flush(2 * time.Second)
}
