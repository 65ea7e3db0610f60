package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/internal/chat"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: `Start a line-oriented conversation. Each line is one question.
Type "exit" or "quit", or send EOF, to leave.`,
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

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Indian Legal Assistant"))
			fmt.Fprintln(out, mutedStyle.Render("Consult a qualified lawyer for legal advice."))
			return chatLoop(ctx, chat.NewSession(a.bot), cmd.InOrStdin(), out)
		},
	}
}

// chatLoop answers one question per line of in until EOF, an exit word or
// an interrupt.
func chatLoop(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, answer, err := session.Ask(ctx, line)
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		if answer == nil {
			fmt.Fprintln(out, errorStyle.Render(reply))
			continue
		}
		printAnswer(out, answer, true)
		fmt.Fprintln(out)
	}
}
