package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/internal/gitctx/gittest"
	"github.com/fulmenhq/ion/pkg/ionerr"
)

func taggedRepo(t *testing.T) *gittest.Repo {
	t.Helper()
	r := gittest.New(t)
	r.CommitFile("Project.toml", projectTOML("0.1.0"), "initial")
	r.Tag("v0.1.0")
	r.CommitAs("Ada Lovelace", "ada@example.org", "src/a.jl", "a\n", "Add a (#1)")
	r.CommitAs("Alan Turing", "alan@example.org", "src/b.jl", "b\n", "Add b")
	r.CommitAs("Ada Lovelace", "ada@example.org", "src/c.jl", "c\n", "Add c")
	r.Tag("v0.2.0")
	r.Git("remote", "add", "origin", "git@github.com:acme/Example.jl.git")
	return r
}

func TestSummary_Report(t *testing.T) {
	r := taggedRepo(t)

	out, _, err := execRoot(t, "summary", "0.1.0", "0.2.0", r.Dir)
	require.NoError(t, err)

	assert.Contains(t, out, "# Example v0.2.0")
	assert.Contains(t, out, "https://github.com/acme/Example.jl/compare/v0.1.0...v0.2.0")
	for _, s := range []string{"Add a", "Add b", "Add c"} {
		assert.Contains(t, out, s)
	}
	assert.Equal(t, 1, strings.Count(out, "- Ada Lovelace"))
	assert.Equal(t, 1, strings.Count(out, "- Alan Turing"))
}

func TestSummary_AcceptsTagsAndRevisions(t *testing.T) {
	r := taggedRepo(t)
	r.CommitFile("src/d.jl", "d\n", "Add d")

	out, _, err := execRoot(t, "summary", "v0.2.0", "HEAD", r.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Add d")
	assert.NotContains(t, out, "Add c")
}

func TestSummary_UnknownVersion(t *testing.T) {
	r := taggedRepo(t)

	_, _, err := execRoot(t, "summary", "0.1.0", "9.9.9", r.Dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.GitError))
	assert.Contains(t, err.Error(), "v9.9.9")
}
