/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/manifest"
	"github.com/fulmenhq/ion/pkg/report"
)

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <OLD> <NEW> [PATH]",
		Short: "Print release notes between two versions",
		Long: `Summarize the commits, pull requests and contributors between the tags of
two versions as markdown. Versions are looked up as v<version>, then
<version>; any other git revision such as HEAD is accepted as is.`,
		Args: usageArgs(cobra.RangeArgs(2, 3)),
		RunE: runSummary,
	}
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := "."
	if len(args) > 2 {
		path = args[2]
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		return ionerr.Wrap(ionerr.UsageError, err, "resolve %s", path)
	}
	repo := gitctx.Open(dir, gitctx.ExecRunner{Binary: settings(cmd).Git.Binary})

	oldRef, err := resolveRelease(ctx, repo, args[0])
	if err != nil {
		return err
	}
	newRef, err := resolveRelease(ctx, repo, args[1])
	if err != nil {
		return err
	}

	req := report.Request{
		Name:       packageName(ctx, repo, dir),
		OldRef:     oldRef,
		NewRef:     newRef,
		OldVersion: args[0],
		NewVersion: args[1],
	}
	if remote, err := repo.Remote(ctx); err == nil {
		req.RepoURL = remote.URL()
	} else {
		logger.Debug("no GitHub remote; omitting compare link", logger.Err(err))
	}

	rep, err := report.Build(ctx, repo, req)
	if err != nil {
		return err
	}
	md, err := rep.Markdown()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), md)
	return err
}

// resolveRelease maps a version onto its tag, trying v<version> first.
func resolveRelease(ctx context.Context, repo *gitctx.Repo, version string) (string, error) {
	bare := strings.TrimPrefix(version, "v")
	for _, ref := range []string{"v" + bare, bare, version} {
		ok, err := repo.RefExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if ok {
			return ref, nil
		}
	}
	return "", ionerr.New(ionerr.GitError, "no tag v%s or %s in %s", bare, bare, repo.Dir)
}

// packageName prefers the manifest name and falls back to the repository
// directory without its .jl suffix.
func packageName(ctx context.Context, repo *gitctx.Repo, dir string) string {
	if p, err := manifest.RootProject(dir); err == nil && p.Name != "" {
		return p.Name
	}
	if top, err := repo.Toplevel(ctx); err == nil {
		dir = top
	}
	return strings.TrimSuffix(filepath.Base(dir), ".jl")
}
