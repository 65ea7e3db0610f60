package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/internal/watch"
)

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index up to date while documents change",
		Long: `Watch the documents directory and refresh the index after changes.

--schedule adds a periodic check for filesystems without change
notifications, for example "@every 10m" or "0 3 * * *".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bot.Initialize(ctx, false); err != nil {
				return err
			}

			return watch.New(a.bot, watch.Options{
				Dir:      a.cfg.Paths.DocumentsDir,
				Schedule: schedule,
				Logger:   a.logger,
			}).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule for periodic checks")
	return cmd
}
