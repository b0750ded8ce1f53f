/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/pkg/blueprint"
	"github.com/fulmenhq/ion/pkg/ionerr"
)

func newNewCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "new <TEMPLATE> <NAME> [PATH]",
		Short: "Create a package from a template",
		Long: `Generate the package NAME inside PATH (default: the current directory)
from TEMPLATE. Templates in templates_dir (default $ION_HOME/templates) take
precedence over the built-in ones. Use --list to see what is available.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return usageArgs(cobra.NoArgs)(cmd, args)
			}
			return usageArgs(cobra.RangeArgs(2, 3))(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := blueprint.NewLoader(settings(cmd).TemplatesDir)
			if list {
				return listTemplates(cmd, loader)
			}
			return runNew(cmd, loader, args)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List available templates")
	return cmd
}

func runNew(cmd *cobra.Command, loader *blueprint.Loader, args []string) error {
	cfg := settings(cmd)
	t, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	parent := "."
	if len(args) > 2 {
		parent = args[2]
	}
	env := &blueprint.Env{
		Prompter:    newPrompter(cmd),
		Git:         gitctx.ExecRunner{Binary: cfg.Git.Binary},
		JuliaBinary: cfg.Julia.Binary,
		GitHubUser:  cfg.GitHub.User,
	}
	c, err := blueprint.Generate(cmd.Context(), env, t, args[1], parent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s in %s\n", c.Project.Name, c.Project.Dir)
	return err
}

func listTemplates(cmd *cobra.Command, loader *blueprint.Loader) error {
	summaries, err := loader.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return ionerr.New(ionerr.TemplateNotFound, "no templates found")
	}
	width := 0
	for _, s := range summaries {
		width = max(width, runewidth.StringWidth(s.Name))
	}
	out := cmd.OutOrStdout()
	for _, s := range summaries {
		origin := "user"
		if s.BuiltIn {
			origin = "built-in"
		}
		if _, err := fmt.Fprintf(out, "%s  %-8s  %s\n", runewidth.FillRight(s.Name, width), origin, s.Description); err != nil {
			return err
		}
	}
	return nil
}
