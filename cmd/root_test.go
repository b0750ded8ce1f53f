package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/pkg/exitcode"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/release"
)

// execRoot runs a fresh command tree with stdout and stderr captured
// separately.
func execRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ION_HOME", t.TempDir())

	cmd := newRootCommand()
	registerSubcommands(cmd)

	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(append([]string{"--log-level", "error", "--no-color"}, args...))

	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		err = classify(err)
	}
	return outBuf.String(), errBuf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, _, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ion")
	assert.Contains(t, out, "bump")
	assert.Contains(t, out, "summary")
	assert.Contains(t, out, "Release Commands:")
	assert.Contains(t, out, "Project Commands:")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, _, err := execRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ion ")
}

func TestRootCmd_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--invalid-flag"}},
		{"unknown subcommand flag", []string{"bump", "patch", "--bogus"}},
		{"unknown command", []string{"frobnicate"}},
		{"missing argument", []string{"bump"}},
		{"too many arguments", []string{"summary", "a", "b", "c", "d"}},
		{"bad log level", []string{"--log-level", "loud", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execRoot(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitcode.UsageError, ionerr.ExitCode(err), err.Error())
		})
	}
}

func TestRootCmd_MalformedConfig(t *testing.T) {
	_, _, err := execRoot(t, "--config", "/nonexistent/ion.yaml", "version")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.MalformedConfig))
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, ionerr.New(ionerr.WrongBranch, "on feature,\nexpected main"))
	assert.Equal(t, "error: WrongBranch: on feature, expected main\n", buf.String())

	buf.Reset()
	reportError(&buf, &release.StepError{
		Step:     release.StepCommit,
		Recovery: "run `git push`",
		Err:      ionerr.New(ionerr.GitError, "rejected"),
	})
	assert.Contains(t, buf.String(), "error: commit and push failed: GitError: rejected\n")
	assert.Contains(t, buf.String(), "recovery: run `git push`\n")
}
