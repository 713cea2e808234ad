package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const shellHelp = `meta commands:
  \q | quit | exit       quit
  \history               print history
  \help                  show help

anything else runs as a novaspatial command, e.g.
  query point places 48.7139 44.4984
  catalog show`

const prompt = "novaspatial> "

func (a *App) shellCmd() *cobra.Command {
	var (
		histPath string
		histMax  int
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell with history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inShell {
				return errors.New("already in the shell")
			}
			h := NewHistory(histPath)
			if err := h.Load(histMax); err != nil {
				fmt.Fprintf(a.Err, "history: %v\n", err)
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          prompt,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("readline: %w", err)
			}
			defer func() { _ = rl.Close() }()

			// preload so the arrow keys work immediately
			for _, line := range h.Lines() {
				_ = rl.SaveHistory(line)
			}

			fmt.Fprintln(a.Out, `type \help for help`)
			return a.shellLoop(cmd, rl, h)
		},
	}
	cmd.Flags().StringVar(&histPath, "history", defaultHistoryPath(), "history file path")
	cmd.Flags().IntVar(&histMax, "history-max", 2000, "max history lines loaded into memory")
	return cmd
}

type lineReader interface {
	Readline() (string, error)
}

func (a *App) shellLoop(cmd *cobra.Command, rl lineReader, h *History) error {
	a.inShell = true
	defer func() { a.inShell = false }()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.Out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case `\q`, "quit", "exit":
			return nil
		case `\help`:
			fmt.Fprintln(a.Out, shellHelp)
			continue
		case `\history`:
			h.Print(a.Out, 50)
			continue
		}
		if strings.HasPrefix(line, `\`) {
			fmt.Fprintf(a.Out, "unknown command: %s\n", line)
			continue
		}

		if err := h.Append(line); err != nil {
			fmt.Fprintf(a.Err, "history: %v\n", err)
		}
		if err := a.Run(cmd.Context(), strings.Fields(line)); err != nil {
			fmt.Fprintf(a.Err, "error: %v\n", err)
		}
	}
}
