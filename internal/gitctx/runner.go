// Package gitctx is ion's facade over the git command line. Every operation
// runs git through a Runner so callers can substitute a recording fake.
package gitctx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
)

// Result is the captured outcome of one git invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes git with args in dir. A nonzero exit status is reported in
// Result.ExitCode, not as an error; errors mean git could not be run at all.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// ExecRunner runs the git binary as a subprocess.
type ExecRunner struct {
	Binary string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}
	logger.Debug("running git", logger.String("dir", dir), logger.Strings("args", args))

	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- fixed git subcommands
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		logger.Trace("git exited", logger.Strings("args", args), logger.Int("code", res.ExitCode), logger.String("stderr", strings.TrimSpace(res.Stderr)))
		return res, nil
	default:
		return res, ionerr.Wrap(ionerr.GitError, err, "run %s", bin)
	}
}

func describe(args []string) string {
	return "git " + strings.Join(args, " ")
}
