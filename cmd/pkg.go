/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fulmenhq/ion/pkg/julia"
)

// juliaRunner starts julia for the pkg commands; tests replace it.
var juliaRunner julia.Runner = julia.ExecRunner{}

func newPkgCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkg",
		Short: "Manage dependencies with Julia's package manager",
		Long: `Run Pkg operations against the nearest project, or the global environment
with -g. Package specs take the form name[@version][#rev][:subdir]; a URL or
path in place of the name is passed as url.`,
	}
	cmd.PersistentFlags().BoolP("global", "g", false, "Use the global environment instead of the nearest project")

	cmd.AddCommand(pkgSubcommand("add <SPEC>...", "Add packages", cobra.MinimumNArgs(1), julia.AddScript))
	cmd.AddCommand(pkgSubcommand("rm <NAME>...", "Remove packages", cobra.MinimumNArgs(1), julia.RemoveScript))
	cmd.AddCommand(pkgSubcommand("update [NAME]...", "Update packages (all when none named)", cobra.ArbitraryArgs, julia.UpdateScript))
	cmd.AddCommand(pkgSubcommand("status", "Show the environment status", cobra.NoArgs, func([]julia.PackageSpec) string {
		return julia.StatusScript()
	}))
	return cmd
}

func pkgSubcommand(use, short string, args cobra.PositionalArgs, script func([]julia.PackageSpec) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(args),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := julia.ParsePackageSpecs(args)
			if err != nil {
				return err
			}
			global, _ := cmd.Flags().GetBool("global")
			c := julia.PkgCommand(settings(cmd).Julia.Binary, script(specs), global)
			return c.Run(cmd.Context(), juliaRunner, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}
