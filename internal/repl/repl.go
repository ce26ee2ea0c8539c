// Package repl is the plain line-mode front end, for terminals where the
// full-screen TUI is unwanted.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"termeval/internal/domain"
)

// Prompter reads one line of input. *liner.State satisfies it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Run reads commands until end of input, an interrupt, or quit/exit.
func Run(p Prompter, svc domain.CommandService, prompt string, out, errOut io.Writer) error {
	for {
		line, err := p.Prompt(prompt)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "CTRL-D")
			return nil
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(out, "CTRL-C")
			return nil
		case err != nil:
			return err
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		p.AppendHistory(cmd)
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		res, err := svc.Execute(cmd)
		if err != nil {
			fmt.Fprintln(errOut, "error: "+err.Error())
			continue
		}
		if res != "" {
			fmt.Fprintln(out, res)
		}
	}
}

// Start runs an interactive liner session, loading and saving history at
// historyPath when it is non-empty.
func Start(svc domain.CommandService, prompt, historyPath string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}
	return Run(ln, svc, prompt, os.Stdout, os.Stderr)
}
