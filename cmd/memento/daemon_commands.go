package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"memento/internal/api"
	"memento/internal/daemonctl"
	"memento/internal/daemonrun"
	"memento/internal/preflight"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the memento daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			cl, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cl, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configFlagValue(),
				LogLevel:   startLogLevel,
			}, startWaitTimeout)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				if result.PID > 0 {
					fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				} else {
					fmt.Fprintln(stdout, "Daemon started")
				}
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the memento daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cl, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cmd.Context(), cl, ctx.configValue(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			cl, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := cl.Status(cmd.Context())
			running := err == nil
			if !running {
				// Fall back to local checks so status still reports something useful.
				status = api.DaemonStatus{Dependencies: api.FromDependencies(preflight.CheckSystemDeps(cfg))}
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
			}
			fmt.Fprintln(stdout, renderValueLine("API", cfg.Paths.APIBind))
			fmt.Fprintln(stdout, renderValueLine("Downloads", cfg.Paths.DownloadsDir))
			for _, result := range preflight.CheckDirectories(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(status.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !running {
				return nil
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Components", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range healthLines(status.Health, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Import", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range progressLines(status.Progress, colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status.OutputDir != "" {
				fmt.Fprintln(stdout, renderValueLine("Output", status.OutputDir))
			}
			if msg := strings.TrimSpace(status.LastError); msg != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, msg, colorize))
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the memento daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in logs")
	return cmd
}
