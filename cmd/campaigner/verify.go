package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/dnscheck"
)

var verifyFlags struct {
	domain   string
	apiKey   string
	checkDNS bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Send one test message to check provider credentials",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlags.domain, "domain", "", "sending domain (overrides the environment)")
	verifyCmd.Flags().StringVar(&verifyFlags.apiKey, "api-key", "", "provider API key (overrides the environment)")
	verifyCmd.Flags().BoolVar(&verifyFlags.checkDNS, "check-dns", false, "check MX and SPF records first")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := cliCredentials(cfg.Credentials(), verifyFlags.domain, verifyFlags.apiKey)

	if verifyFlags.checkDNS {
		res, err := dnscheck.SendingDomain(ctx, creds.Domain)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "DNS ok: MX %s, SPF %q\n", strings.Join(res.MX, ", "), res.SPF)
	}

	d := campaign.New(cfg.SenderFactory(), append(cfg.DispatcherOptions(), campaign.WithLogger(log))...)
	if err := d.Verify(ctx, creds); err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Credentials verified successfully!")
	return nil
}

// cliCredentials applies non-empty flag values over the environment.
func cliCredentials(creds campaign.Credentials, domain, apiKey string) campaign.Credentials {
	if domain != "" {
		creds.Domain = domain
	}
	if apiKey != "" {
		creds.APIKey = apiKey
	}
	return creds
}
