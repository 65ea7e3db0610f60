package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/internal/chatbot"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load the cached index or build it from the documents directory",
		Long: `Load the cached index when no document changed since it was built,
otherwise index the documents directory again and cache the result.

A corrupt cache is reported and never rebuilt automatically. Use --rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bot.Initialize(ctx, rebuild); err != nil {
				return err
			}

			status, err := a.bot.Status(ctx)
			if err != nil {
				return err
			}
			infos, err := a.bot.DocumentInfo()
			if err != nil {
				return err
			}

			source := "built from documents"
			if status.Origin == chatbot.OriginCache {
				source = "loaded from cache"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, okStyle.Render("Index ready"))
			fmt.Fprintln(out, field("Source", source))
			fmt.Fprintln(out, field("Documents", fmt.Sprintf("%d files, %d records", len(infos), status.Records)))
			fmt.Fprintln(out, field("Cache", status.StoreLocation))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "ignore the cache and index all documents again")
	return cmd
}
