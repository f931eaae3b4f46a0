package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"memento/internal/config"
	"memento/internal/ledger"
	"memento/internal/logging"
	"memento/internal/notifications"
	"memento/internal/workflow"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		concurrency  int
		outputDir    string
		addMetadata  bool
		skipExisting bool
		mergeOverlay bool
		logLevel     string
		importJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "import <manifest>",
		Short: "Run an import in the foreground without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manifestPath, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			level := strings.TrimSpace(logLevel)
			if level == "" {
				level = cfg.Logging.Level
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			req := workflow.DefaultStartRequest(cfg, manifestPath)
			req.OutputDir = strings.TrimSpace(outputDir)
			flags := cmd.Flags()
			if concurrency > 0 {
				req.Concurrency = concurrency
			}
			if flags.Changed("add-metadata") {
				req.AddMetadata = addMetadata
			}
			if flags.Changed("skip-existing") {
				req.SkipExisting = skipExisting
			}
			if flags.Changed("merge-overlay") {
				req.MergeOverlay = mergeOverlay
			}

			manager := workflow.NewManager(cfg, logger, workflow.WithNotifier(notifications.NewService(cfg)))
			defer manager.Close()

			result, err := manager.Start(cmd.Context(), req)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if !importJSON {
				fmt.Fprintf(stdout, "Importing %d items into %s (%d skipped)\n", result.Total, result.OutputDir, result.Skipped)
			}

			final, err := followImport(cmd.Context(), manager, stdout, !importJSON)
			if err != nil {
				manager.Cancel(context.WithoutCancel(cmd.Context()))
				return err
			}
			if importJSON {
				return writeJSON(cmd, struct {
					Progress ledger.Snapshot    `json:"progress"`
					Failures ledger.FailureList `json:"failures"`
				}{final, manager.Failures()})
			}
			for _, line := range progressLines(final, shouldColorize(stdout)) {
				fmt.Fprintln(stdout, line)
			}
			for _, entry := range manager.Failures() {
				fmt.Fprintf(stdout, "  failed %s: %s\n", entry.Filename, entry.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent downloads (defaults to import.concurrency)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory inside paths.allowed_root")
	cmd.Flags().BoolVar(&addMetadata, "add-metadata", true, "Embed capture date and location metadata")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "Skip items already present in the output directory")
	cmd.Flags().BoolVar(&mergeOverlay, "merge-overlay", true, "Composite overlays onto their media")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&importJSON, "json", false, "Print the final progress and failures as JSON")
	return cmd
}

// followImport blocks until the run finishes, printing a progress line each
// time another tenth of the items completes.
func followImport(ctx context.Context, manager *workflow.Manager, out io.Writer, verbose bool) (ledger.Snapshot, error) {
	sampler := logging.NewProgressSampler(10)
	for {
		updated := manager.ProgressUpdated()
		snap := manager.Progress()
		if verbose && snap.Total > 0 && sampler.ShouldLog(snap.Processed(), snap.Total) {
			fmt.Fprintln(out, progressSummary(snap))
		}
		if !snap.Status.Active() {
			if err := manager.Wait(ctx); err != nil {
				return snap, err
			}
			return manager.Progress(), nil
		}
		select {
		case <-updated:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}
