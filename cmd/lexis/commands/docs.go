package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDocsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List the documents in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bot.Initialize(ctx, false); err != nil {
				return err
			}
			infos, err := a.bot.DocumentInfo()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Documents (%d)", len(infos))))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tTYPE\tCHARACTERS")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%d\n", info.Filename, info.DocumentType, info.TextLength)
			}
			return w.Flush()
		},
	}
}
