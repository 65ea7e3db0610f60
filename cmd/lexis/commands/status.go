package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/internal/chatbot"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the cached index is fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.bot.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), a.cfg.Storage.Backend, status)
			return nil
		},
	}
}

func printStatus(out io.Writer, backend string, status *chatbot.Status) {
	fmt.Fprintln(out, titleStyle.Render("Index status"))
	fmt.Fprintln(out, field("Documents", status.DocumentsDir))
	fmt.Fprintln(out, field("Backend", backend))
	fmt.Fprintln(out, field("Cache", status.StoreLocation))

	if status.Manifest == nil {
		fmt.Fprintln(out, field("Built", mutedStyle.Render("never")))
	} else {
		fmt.Fprintln(out, field("Built", status.Manifest.BuiltAt.Local().Format(time.RFC1123)))
		fmt.Fprintln(out, field("Records", fmt.Sprintf("%d (%d files, dimension %d)",
			status.Manifest.DocumentCount, len(status.Manifest.Sources), status.Manifest.Dimension)))
	}

	if !status.Stale {
		fmt.Fprintln(out, field("State", okStyle.Render("fresh")))
		return
	}
	fmt.Fprintln(out, field("State", errorStyle.Render("stale")))
	for _, change := range status.Changes {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render(string(change.Reason)+":"), change.Path)
	}
}
