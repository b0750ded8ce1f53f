// Package julia builds and runs Julia command lines.
package julia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
)

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "julia"

// Runner starts a process and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs commands as subprocesses.
type ExecRunner struct{}

// Run implements Runner. A binary missing from PATH is a HostLanguageNotFound
// error.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return ionerr.Wrap(ionerr.HostLanguageNotFound, err,
			"%s not found; install Julia from https://julialang.org/downloads or set julia.binary", name)
	}
	cmd := exec.CommandContext(ctx, path, args...) // #nosec G204 -- argv built by Command
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", name, exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Command accumulates julia flags around a script passed with -e.
type Command struct {
	binary string
	flags  []string
	script string
}

// NewCommand returns a command that evaluates script.
func NewCommand(binary, script string) *Command {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Command{binary: binary, script: script}
}

// Arg appends a raw flag.
func (c *Command) Arg(arg string) *Command {
	c.flags = append(c.flags, arg)
	return c
}

// Project selects the active environment, e.g. "@." for the nearest project.
func (c *Command) Project(project string) *Command {
	return c.Arg("--project=" + project)
}

// Compile sets the compiler mode (yes, no, all, min).
func (c *Command) Compile(option string) *Command {
	return c.Arg("--compile=" + option)
}

// NoStartupFile skips ~/.julia/config/startup.jl.
func (c *Command) NoStartupFile() *Command {
	return c.Arg("--startup-file=no")
}

// Color forces colored output.
func (c *Command) Color() *Command {
	return c.Arg("--color=yes")
}

// Binary returns the executable name.
func (c *Command) Binary() string { return c.binary }

// Args returns the argument vector after the binary.
func (c *Command) Args() []string {
	args := append([]string(nil), c.flags...)
	if c.script != "" {
		args = append(args, "-e", c.script)
	}
	return args
}

func (c *Command) String() string {
	return c.binary + " " + strings.Join(c.Args(), " ")
}

// Run executes the command.
func (c *Command) Run(ctx context.Context, r Runner, stdout, stderr io.Writer) error {
	if r == nil {
		r = ExecRunner{}
	}
	logger.Debug("running julia", logger.Strings("args", c.Args()))
	return r.Run(ctx, c.binary, c.Args(), stdout, stderr)
}

// PkgCommand is the standard invocation for Pkg operations: the nearest
// project (or the global environment), no startup file, colors and minimal
// compilation.
func PkgCommand(binary, script string, global bool) *Command {
	c := NewCommand(binary, script)
	if !global {
		c.Project("@.")
	}
	return c.NoStartupFile().Color().Compile("min")
}
