// internal/cli/root.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/reviewwatch/internal/app"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/law-makers/reviewwatch/internal/monitor"
	"github.com/law-makers/reviewwatch/internal/ui"
)

// shutdownTimeout bounds browser cleanup after a command finishes.
const shutdownTimeout = 10 * time.Second

// appOptions are applied to every Application built by the command tree.
var appOptions []app.Option

// rootCmd runs a single monitoring cycle when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "reviewwatch",
	Short: "Watch the thesis review portal and push a notice when results change",
	Long: `Reviewwatch opens the graduate school portal in a headless browser, signs in
when asked to, reads the blind review results table and compares it with the
results saved by the previous run. A push notification is sent only when the
results changed.

Run it from cron or a CI schedule. Configuration comes from reviewwatch.yaml
and REVIEWWATCH_* environment variables; PUSH_KEY, ZJUAM_ACCOUNT and
ZJUAM_PASSWORD are read as well.`,
	Example: `  # Check once
  $ reviewwatch

  # Keep checking on the configured schedule
  $ reviewwatch watch`,
	Version:       "1.0.0",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCycle,
}

// Execute runs the command tree under ctx and returns the process exit code.
// The application is closed on every path, including cancellation.
func Execute(ctx context.Context) int {
	// Commands keep the context of a previous execution; start every one fresh.
	setContexts(rootCmd, ctx)
	cmd, err := rootCmd.ExecuteContextC(ctx)

	if a := GetApp(cmd); a != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = a.Close(closeCtx)
		cancel()
	}

	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
		return 1
	}
	return 0
}

func setContexts(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContexts(c, ctx)
	}
}

func init() {
	// Initialize the application lazily so -h and --version never touch config.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			app.SetupLogging(config.LogConfig{Level: config.DefaultLogLevel}, os.Stderr)
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		opts := append([]app.Option{app.WithOutput(cmd.OutOrStdout())}, appOptions...)
		a, err := app.New(cfg, opts...)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		return nil
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetUsageFunc(customUsageFunc)
}

// runCycle performs one check. A degraded cycle is logged and still exits 0
// so schedulers do not flag transient portal trouble as a failed job.
func runCycle(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	out, err := a.RunOnce(cmd.Context())
	reportOutcome(cmd, out, err)
	return nil
}

func reportOutcome(cmd *cobra.Command, out monitor.Outcome, err error) {
	w := cmd.OutOrStdout()
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("Interrupted, shutting down")
	case err != nil:
		ev := log.Error().Err(err)
		var me *monitor.MonitorError
		if errors.As(err, &me) {
			ev = ev.Str("code", string(me.Code)).Fields(me.Details)
		}
		ev.Msg("Monitoring cycle failed")
		fmt.Fprintln(w, ui.Error("✗ Cycle failed: "+err.Error()))
	case out.Status == monitor.StatusExtractFailed:
		fmt.Fprintln(w, ui.Error("✗ No review results could be read this time"))
	case out.Status == monitor.StatusUnchanged:
		fmt.Fprintln(w, ui.Info("No change since the last check"))
	case out.Status == monitor.StatusChanged:
		fmt.Fprintln(w, ui.Success("✓ Results changed"))
		ui.PrintField(w, "Notified", yesNo(out.Notified))
		ui.PrintField(w, "Saved", yesNo(out.Persisted))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
