/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/pkg/prompt"
	"github.com/fulmenhq/ion/pkg/registry"
	"github.com/fulmenhq/ion/pkg/release"
	"github.com/fulmenhq/ion/pkg/versioning"
)

type bumpOptions struct {
	branch     string
	registry   string
	reportFile string
	noPrompt   bool
	noCommit   bool
	noReport   bool
}

// newSubmitter builds the registration channel; tests replace it.
var newSubmitter = func(cmd *cobra.Command) release.Submitter {
	cfg := settings(cmd)
	return registry.NewGitHubSubmitter(cfg.GitHub.APIURL, cfg.GitHub.Token, cfg.GitHub.Timeout)
}

func newBumpCommand() *cobra.Command {
	var opts bumpOptions
	cmd := &cobra.Command{
		Use:   "bump <VERSION> [PATH]",
		Short: "Release a new version of a package",
		Long: `Bump the version in Project.toml, commit and push the change, and ask the
registry bot to register it.

VERSION is major, minor, patch, current, or an explicit version such as 1.2.0.
"current" re-registers the version already in the manifest. PATH defaults to
the current directory; the nearest Project.toml above it is used.

Preconditions: a clean working tree on the release branch, and a target
version strictly greater than both the current version and the latest version
in the registry.`,
		Args: usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBump(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.branch, "branch", "b", "", "Release branch (default: the remote's default branch)")
	f.StringVar(&opts.registry, "registry", "", "Registry to check and register with (default from config, General)")
	f.StringVar(&opts.reportFile, "report-file", "", "Write release notes to this file instead of stdout")
	f.BoolVar(&opts.noPrompt, "no-prompt", false, "Do not ask for confirmation")
	f.BoolVar(&opts.noCommit, "no-commit", false, "Only update Project.toml; no commit, push or registration")
	f.BoolVar(&opts.noReport, "no-report", false, "Do not generate release notes")
	return cmd
}

func runBump(cmd *cobra.Command, args []string, opts bumpOptions) error {
	spec, err := versioning.ParseSpec(args[0])
	if err != nil {
		return err
	}
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	cfg := settings(cmd)

	start, err := release.RootProject(path)
	if err != nil {
		return err
	}
	name := opts.registry
	if name == "" {
		name = cfg.Registry
	}

	p := start.Bump(spec).
		RegistryName(name, cfg.Depot).
		Branch(opts.branch).
		Confirm(!opts.noPrompt).
		Commit(!opts.noCommit).
		Report(!opts.noReport).
		WithGit(gitctx.Open(start.Project().Dir(), gitctx.ExecRunner{Binary: cfg.Git.Binary})).
		WithPrompter(newPrompter(cmd)).
		WithSubmitter(newSubmitter(cmd)).
		WithOutput(cmd.OutOrStdout())
	if opts.reportFile != "" {
		p.ReportFile(opts.reportFile)
	}
	return p.Write(cmd.Context())
}

// newPrompter answers from the command's input. A file input must be a
// terminal; any other reader (such as one set with SetIn) is read as is.
func newPrompter(cmd *cobra.Command) prompt.Prompter {
	in := cmd.InOrStdin()
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return prompt.NewTerminalWith(in, cmd.ErrOrStderr(), interactive).WithContext(cmd.Context())
}
