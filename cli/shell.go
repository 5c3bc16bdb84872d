package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/rizalta/toysql/session"
)

const historyFile = ".toysql_history"

// prompter is the part of liner.State the shell loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, _ []string) error {
			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			history := filepath.Join(a.cfg.DataDir, historyFile)
			if f, err := os.Open(history); err == nil {
				line.ReadHistory(f)
				f.Close()
			}

			err := runShell(a.session(), line, cmd.OutOrStdout())

			if f, ferr := os.Create(history); ferr == nil {
				line.WriteHistory(f)
				f.Close()
			} else {
				a.logger.Warn("failed to save history", "path", history, "error", ferr)
			}
			return err
		}),
	}
}

// runShell reads statements until EOF or "exit". A statement ends with a
// semicolon and may span several lines. Every statement starts from a
// cleared response.
func runShell(sess *session.Session, p prompter, out io.Writer) error {
	fmt.Fprintln(out, `toysql shell, end statements with ";", type "exit" to quit`)

	var buf strings.Builder
	for {
		prompt := "toysql> "
		if buf.Len() > 0 {
			prompt = "   ...> "
		}

		input, err := p.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 {
			switch strings.ToLower(trimmed) {
			case "":
				continue
			case "exit", "quit", `\q`:
				return nil
			}
		}

		buf.WriteString(input)
		buf.WriteString("\n")
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		stmt := buf.String()
		buf.Reset()
		p.AppendHistory(strings.TrimSpace(stmt))

		sess.Clear()
		resp, _ := sess.Parse(strings.NewReader(stmt))
		if err := resp.Render(out); err != nil {
			return err
		}
	}
}
