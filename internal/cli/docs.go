package cli

import (
	"fmt"
	"os"

	"stacknote/internal/docs"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw, asHTML bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Long: `Without a topic, list the available topics. With a topic, render it for the
terminal (plain text when piped). --raw prints the markdown source and --html
prints an HTML fragment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, envelope{Data: map[string]any{"topics": docs.Topics()}})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `stacknote docs` to list topics)", topic))
			}

			out := cmd.OutOrStdout()
			switch {
			case raw && asHTML:
				return writeErr(cmd, fmt.Errorf("--raw and --html are mutually exclusive"))
			case raw:
				_, err := fmt.Fprint(out, body)
				return err
			case asHTML:
				_, err := fmt.Fprint(out, docs.RenderHTML(body))
				return err
			}
			_, err := fmt.Fprintln(out, docs.Render(body, docs.StyleFor(out), terminalWidth(out)))
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the topic as an HTML fragment")

	return cmd
}

func terminalWidth(w any) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
