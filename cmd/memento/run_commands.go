package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"memento/internal/client"
	"memento/internal/config"
	"memento/internal/ledger"
)

func newRunCommands(ctx *commandContext) []*cobra.Command {
	var (
		concurrency  int
		outputDir    string
		addMetadata  bool
		skipExisting bool
		mergeOverlay bool
		watch        bool
		runJSON      bool
	)
	runCmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Upload a manifest to the daemon and start an import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			opts := client.RunOptions{Concurrency: concurrency, OutputDir: strings.TrimSpace(outputDir)}
			flags := cmd.Flags()
			if flags.Changed("add-metadata") {
				opts.AddMetadata = &addMetadata
			}
			if flags.Changed("skip-existing") {
				opts.SkipExisting = &skipExisting
			}
			if flags.Changed("merge-overlay") {
				opts.MergeOverlay = &mergeOverlay
			}

			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Run(cmd.Context(), manifestPath, opts)
				if err != nil {
					return err
				}
				if runJSON && !watch {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Import %s started: %d items queued, %d skipped\n", resp.RunID, resp.Total, resp.Skipped)
				fmt.Fprintf(stdout, "Output directory: %s\n", resp.OutputDir)
				if !watch {
					return nil
				}
				return watchProgress(cmd.Context(), cl, stdout)
			})
		},
	}
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent downloads (defaults to import.concurrency)")
	runCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory inside paths.allowed_root")
	runCmd.Flags().BoolVar(&addMetadata, "add-metadata", true, "Embed capture date and location metadata")
	runCmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "Skip items already present in the output directory")
	runCmd.Flags().BoolVar(&mergeOverlay, "merge-overlay", true, "Composite overlays onto their media")
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the run finishes")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output as JSON")

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the active import after in-flight items finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Pause(cmd.Context())
				if err != nil {
					return err
				}
				return printControlStatus(cmd.OutOrStdout(), "pause", resp.Status)
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused import",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Resume(cmd.Context())
				if err != nil {
					return err
				}
				return printControlStatus(cmd.OutOrStdout(), "resume", resp.Status)
			})
		},
	}

	var restartOutputDir string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the active import and clear its output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Restart(cmd.Context(), strings.TrimSpace(restartOutputDir))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Import state cleared (status: %s)\n", resp.Status)
				return nil
			})
		},
	}
	restartCmd.Flags().StringVarP(&restartOutputDir, "output-dir", "o", "", "Directory to clear (defaults to the last run's output)")

	var watchJSON bool
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow import progress until the run finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				if watchJSON {
					return cl.Watch(cmd.Context(), func(snap ledger.Snapshot) error {
						if err := writeJSON(cmd, snap); err != nil {
							return err
						}
						return stopWhenSettled(snap)
					})
				}
				return watchProgress(cmd.Context(), cl, cmd.OutOrStdout())
			})
		},
	}
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Emit each snapshot as JSON")

	return []*cobra.Command{runCmd, pauseCmd, resumeCmd, restartCmd, watchCmd}
}

func printControlStatus(out io.Writer, action string, status ledger.Status) error {
	switch {
	case action == "pause" && status == ledger.StatusPaused,
		action == "resume" && status == ledger.StatusRunning:
		fmt.Fprintf(out, "Import %s\n", status)
	default:
		fmt.Fprintf(out, "Nothing to %s (status: %s)\n", action, status)
	}
	return nil
}

// stopWhenSettled ends a watch once no run is in flight.
func stopWhenSettled(snap ledger.Snapshot) error {
	if snap.Status.Active() {
		return nil
	}
	return client.ErrStopWatch
}

// watchProgress prints one summary line per pushed snapshot and returns once
// the run is no longer active.
func watchProgress(ctx context.Context, cl *client.Client, out io.Writer) error {
	var last ledger.Snapshot
	err := cl.Watch(ctx, func(snap ledger.Snapshot) error {
		fmt.Fprintln(out, progressSummary(snap))
		last = snap
		return stopWhenSettled(snap)
	})
	if err != nil {
		return err
	}
	if last.Status == ledger.StatusDone && last.Failed > 0 {
		fmt.Fprintf(out, "%d item(s) failed; run `memento failures` for details\n", last.Failed)
	}
	return nil
}
