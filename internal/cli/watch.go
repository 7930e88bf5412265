package cli

import (
	"context"
	"time"

	"github.com/law-makers/reviewwatch/internal/schedule"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep checking on the configured schedule",
	Long: `Runs a check immediately and then on watch.schedule (default "@every 5m")
until interrupted. The browser stays open between checks. A check that is
still running when the next one is due makes the scheduler skip that one.`,
	Example: `  $ REVIEWWATCH_WATCH_SCHEDULE="*/10 8-22 * * *" reviewwatch watch`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	spec := a.Config.Watch.Schedule

	return schedule.Run(cmd.Context(), spec, func(ctx context.Context) {
		out, err := a.RunOnce(ctx)
		reportOutcome(cmd, out, err)
		if next, err := schedule.Next(spec, time.Now()); err == nil && ctx.Err() == nil {
			log.Info().Time("next", next).Msg("Next check scheduled")
		}
	})
}
