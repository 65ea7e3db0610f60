package commands

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/internal/rag"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a single question",
		Long: `Answer a single question from the indexed documents.

Examples:
  lexis ask What is Article 21?
  lexis ask "latest Supreme Court ruling on bail"`,
		Args: cobra.MinimumNArgs(1),
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

			answer, err := a.bot.Query(ctx, strings.Join(args, " "))
			var qerr *rag.QueryError
			if errors.As(err, &qerr) {
				fmt.Fprintln(cmd.OutOrStdout(), errorStyle.Render(qerr.Render()))
				return nil
			}
			if err != nil {
				return err
			}

			printAnswer(cmd.OutOrStdout(), answer, showSources)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", true, "list the documents the answer drew on")
	return cmd
}

func printAnswer(out io.Writer, answer *rag.Answer, showSources bool) {
	fmt.Fprintln(out, answer.Text)
	if !showSources || len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, mutedStyle.Render("Sources: "+strings.Join(answer.Sources, ", ")))
	if answer.NeedsWeb {
		fmt.Fprintln(out, mutedStyle.Render("Includes recent web information"))
	}
}
