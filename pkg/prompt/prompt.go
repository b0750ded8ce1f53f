// Package prompt asks the user questions on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// Prompter is what commands need from an interactive user.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(question string, defaultYes bool) (bool, error)
	// Input asks for a line of text, returning def for an empty answer.
	Input(label, def string) (string, error)
}

// Terminal prompts on a reader/writer pair. Reads stop when its context is
// done; a line still being read is handed to the next prompt.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	ctx         context.Context
	pending     chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewTerminal prompts on stdin, writing questions to stderr. It is
// interactive only when stdin is a TTY.
func NewTerminal() *Terminal {
	fd := os.Stdin.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewTerminalWith(os.Stdin, os.Stderr, tty)
}

// NewTerminalWith builds a terminal over arbitrary streams.
func NewTerminalWith(in io.Reader, out io.Writer, interactive bool) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, interactive: interactive, ctx: context.Background()}
}

// WithContext makes prompts abort with UserAborted once ctx is done.
func (t *Terminal) WithContext(ctx context.Context) *Terminal {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = ctx
	return t
}

// Interactive reports whether questions can be asked.
func (t *Terminal) Interactive() bool { return t.interactive }

func (t *Terminal) readLine() (string, error) {
	if !t.interactive {
		return "", ionerr.New(ionerr.NotInteractive, "stdin is not a terminal; rerun with --no-prompt")
	}
	if err := t.ctx.Err(); err != nil {
		return "", ionerr.Wrap(ionerr.UserAborted, err, "interrupted")
	}
	if t.pending == nil {
		ch := make(chan readResult, 1)
		t.pending = ch
		go func() {
			line, err := t.in.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}()
	}
	var line string
	var err error
	select {
	case <-t.ctx.Done():
		_, _ = fmt.Fprintln(t.out)
		return "", ionerr.Wrap(ionerr.UserAborted, t.ctx.Err(), "interrupted")
	case r := <-t.pending:
		t.pending = nil
		line, err = r.line, r.err
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(line) != "" {
				return strings.TrimSpace(line), nil
			}
			_, _ = fmt.Fprintln(t.out)
			return "", ionerr.New(ionerr.UserAborted, "input closed")
		}
		return "", ionerr.Wrap(ionerr.UserAborted, err, "read input")
	}
	return strings.TrimSpace(line), nil
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	for {
		_, _ = fmt.Fprintf(t.out, "%s %s ", question, hint)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		_, _ = fmt.Fprintln(t.out, "please answer y or n")
	}
}

// Input implements Prompter.
func (t *Terminal) Input(label, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(t.out, "%s (%s): ", label, def)
	} else {
		_, _ = fmt.Fprintf(t.out, "%s: ", label)
	}
	answer, err := t.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Require asks for a non-empty value, repeating until one is given.
func Require(p Prompter, label, def string) (string, error) {
	for {
		v, err := p.Input(label, def)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
}
