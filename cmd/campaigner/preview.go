package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var previewFlags struct {
	input inputFlags
	rows  int
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the first messages of a campaign without sending",
	RunE:  runPreview,
}

func init() {
	previewFlags.input.register(previewCmd)
	previewCmd.Flags().IntVarP(&previewFlags.rows, "rows", "n", 3, "number of contacts to render")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	set, tpl, err := previewFlags.input.load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d contacts, columns: %s\n", set.Len(), strings.Join(set.Columns(), ", "))
	if skipped := set.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(out, "skipped lines without email: %v\n", skipped)
	}
	for _, field := range tpl.Missing(set.Columns()) {
		fmt.Fprintf(out, "warning: placeholder {%s} has no matching column\n", field)
	}

	for _, row := range set.Preview(previewFlags.rows) {
		subject, body := tpl.Render(row)
		fmt.Fprintf(out, "\nTo: %s\nSubject: %s\n\n%s\n", row.Email(), subject, body)
	}
	return nil
}
