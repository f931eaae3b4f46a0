package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"memento/internal/client"
	"memento/internal/ledger"
)

const downloadDateLayout = "2006-01-02 15:04:05"

func newLedgerCommands(ctx *commandContext) []*cobra.Command {
	var progressJSON bool
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the current import progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				snap, err := cl.Progress(cmd.Context())
				if err != nil {
					return err
				}
				if progressJSON {
					return writeJSON(cmd, snap)
				}
				stdout := cmd.OutOrStdout()
				for _, line := range progressLines(snap, shouldColorize(stdout)) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
	progressCmd.Flags().BoolVar(&progressJSON, "json", false, "Output as JSON")

	var (
		offset        int
		limit         int
		downloadsJSON bool
	)
	downloadsCmd := &cobra.Command{
		Use:   "downloads",
		Short: "List items imported by the current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 {
				return fmt.Errorf("--offset must be non-negative")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withClient(func(cl *client.Client) error {
				page, err := cl.Downloads(cmd.Context(), offset, limit)
				if err != nil {
					return err
				}
				if downloadsJSON {
					return writeJSON(cmd, page)
				}
				stdout := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintf(stdout, "No downloads (total %d)\n", page.Total)
					return nil
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"#", "Filename", "Captured", "Type"},
					downloadRows(page),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
					fmt.Sprintf("%d-%d of %d", page.Offset+1, page.Offset+len(page.Items), page.Total),
				))
				return nil
			})
		},
	}
	downloadsCmd.Flags().IntVar(&offset, "offset", 0, "Index of the first entry")
	downloadsCmd.Flags().IntVar(&limit, "limit", ledger.DefaultPageLimit, "Maximum number of entries")
	downloadsCmd.Flags().BoolVar(&downloadsJSON, "json", false, "Output as JSON")

	var failuresJSON bool
	failuresCmd := &cobra.Command{
		Use:   "failures",
		Short: "List items that failed to import",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				failures, err := cl.Failures(cmd.Context())
				if err != nil {
					return err
				}
				if failuresJSON {
					return writeJSON(cmd, failures)
				}
				stdout := cmd.OutOrStdout()
				if len(failures) == 0 {
					fmt.Fprintln(stdout, "No failures")
					return nil
				}
				rows := make([][]string, len(failures))
				for i, entry := range failures {
					rows[i] = []string{entry.Filename, entry.Reason}
				}
				fmt.Fprint(stdout, renderTable([]string{"Filename", "Reason"}, rows, nil, ""))
				return nil
			})
		},
	}
	failuresCmd.Flags().BoolVar(&failuresJSON, "json", false, "Output as JSON")

	return []*cobra.Command{progressCmd, downloadsCmd, failuresCmd}
}

func downloadRows(page ledger.Page) [][]string {
	rows := make([][]string, len(page.Items))
	for i, item := range page.Items {
		rows[i] = []string{
			strconv.Itoa(page.Offset + i + 1),
			item.Filename,
			item.Date.UTC().Format(downloadDateLayout),
			item.MediaType,
		}
	}
	return rows
}
