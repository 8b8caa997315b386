package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/logger"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/placeholder"
)

var errNoTemplate = errors.New("either --template or --subject and --body are required")

type inputFlags struct {
	contacts string
	template string
	subject  string
	body     string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.contacts, "contacts", "c", "", "contact file (.csv or .xlsx)")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template file with optional subject frontmatter")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject template")
	cmd.Flags().StringVar(&f.body, "body", "", "body template")
	_ = cmd.MarkFlagRequired("contacts")
}

// load reads the contact file and the template.
func (f *inputFlags) load() (*contacts.Set, placeholder.Template, error) {
	data, err := os.ReadFile(f.contacts)
	if err != nil {
		return nil, placeholder.Template{}, fmt.Errorf("failed to read contacts: %w", err)
	}
	set, err := contacts.LoadFile(filepath.Base(f.contacts), data)
	if err != nil {
		return nil, placeholder.Template{}, err
	}

	if f.template != "" {
		raw, err := os.ReadFile(f.template)
		if err != nil {
			return nil, placeholder.Template{}, fmt.Errorf("failed to read template: %w", err)
		}
		tpl, err := placeholder.Parse(raw)
		if err != nil {
			return nil, placeholder.Template{}, err
		}
		if f.subject != "" {
			tpl.Subject = f.subject
		}
		return set, tpl, nil
	}

	if f.subject == "" && f.body == "" {
		return nil, placeholder.Template{}, errNoTemplate
	}
	return set, placeholder.Template{Subject: f.subject, Body: f.body}, nil
}

var sendFlags struct {
	input      inputFlags
	attachment string
	at         string
	domain     string
	apiKey     string
	html       bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one campaign and print progress",
	RunE:  runSend,
}

func init() {
	sendFlags.input.register(sendCmd)
	sendCmd.Flags().StringVarP(&sendFlags.attachment, "attachment", "a", "", "PDF attached to every message")
	sendCmd.Flags().StringVar(&sendFlags.at, "at", "", "start time in RFC 3339, e.g. 2026-01-02T09:00:00Z")
	sendCmd.Flags().StringVar(&sendFlags.domain, "domain", "", "sending domain (overrides the environment)")
	sendCmd.Flags().StringVar(&sendFlags.apiKey, "api-key", "", "provider API key (overrides the environment)")
	sendCmd.Flags().BoolVar(&sendFlags.html, "html", false, "add an HTML alternative rendered from Markdown")
}

func runSend(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer flushSentry()

	set, tpl, err := sendFlags.input.load()
	if err != nil {
		return err
	}

	c := campaign.Campaign{
		Contacts:    set,
		Template:    tpl,
		Credentials: cliCredentials(cfg.Credentials(), sendFlags.domain, sendFlags.apiKey),
		HTML:        sendFlags.html,
	}
	if sendFlags.attachment != "" {
		if c.Attachment, err = readAttachment(sendFlags.attachment, cfg.Materials.MaxSize); err != nil {
			return err
		}
	}
	if sendFlags.at != "" {
		if c.SendAt, err = time.Parse(time.RFC3339, sendFlags.at); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	for _, field := range tpl.Missing(set.Columns()) {
		fmt.Fprintf(out, "warning: placeholder {%s} has no matching column\n", field)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := campaign.New(cfg.SenderFactory(), append(cfg.DispatcherOptions(), campaign.WithLogger(log))...)
	task, err := d.Start(ctx, c)
	if err != nil {
		return err
	}
	log.InfoContext(logger.WithCampaignID(ctx, task.ID()), "campaign started", slog.Int("contacts", set.Len()))

	for ev := range task.Events() {
		printEvent(out, ev, set.Len())
	}

	report, _ := task.Wait(cmd.Context())
	fmt.Fprintf(out, "%s: %d sent, %d failed, %d skipped\n", report.State, report.Sent, report.Failed, len(report.Skipped))
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d messages failed", campaign.ErrSend, report.Failed, report.Total)
	}
	if report.State == campaign.StateCanceled {
		return errors.New("campaign canceled")
	}
	return nil
}

func printEvent(w io.Writer, ev campaign.Event, total int) {
	switch ev.Type {
	case campaign.EventScheduled:
		fmt.Fprintf(w, "scheduled %d messages\n", total)
	case campaign.EventStarted:
		fmt.Fprintln(w, "sending...")
	case campaign.EventResult:
		r := ev.Result
		if r.Status == campaign.StatusSent {
			fmt.Fprintf(w, "[%d/%d] Email sent to %s\n", r.Index+1, total, r.Recipient)
			return
		}
		fmt.Fprintf(w, "[%d/%d] Failed to send email to %s: %s\n", r.Index+1, total, r.Recipient, r.Detail)
	}
}

// readAttachment loads a local PDF with the same checks as API uploads.
func readAttachment(path string, maxSize int64) (*mailer.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := materials.Validate(data, maxSize); err != nil {
		return nil, err
	}
	return &mailer.Attachment{
		Filename:    filepath.Base(path),
		ContentType: materials.MIMEPDF,
		Content:     data,
	}, nil
}
