/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/ion/pkg/buildinfo"
	"github.com/fulmenhq/ion/pkg/config"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/release"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ion",
		Short: "Julia package maintenance from the command line",
		Long: `Ion releases, scaffolds and manages Julia packages.

Examples:
   ion bump patch                # Release the next patch version
   ion bump 1.0.0 --no-commit    # Only rewrite Project.toml
   ion new Default MyPkg         # Scaffold MyPkg from the Default template
   ion pkg add Example@0.5       # Add a dependency to the active project
   ion summary 0.1.0 0.2.0       # Release notes between two tags`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initializeLogger(cmd); err != nil {
				return err
			}
			return loadConfig(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Config file (default ./ion.yaml or $ION_HOME/config/ion.yaml)")

	cmd.AddGroup(
		&cobra.Group{ID: groupRelease, Title: "Release Commands:"},
		&cobra.Group{ID: groupProject, Title: "Project Commands:"},
		&cobra.Group{ID: groupSupport, Title: "Support Commands:"},
	)
	cmd.SetHelpCommandGroupID(groupSupport)
	cmd.SetCompletionCommandGroupID(groupSupport)

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("ion {{.Version}}\n")
	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return ionerr.Wrap(ionerr.UsageError, err, "invalid arguments")
	})

	return cmd
}

// Command groups shown in help.
const (
	groupRelease = "release"
	groupProject = "project"
	groupSupport = "support"
)

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	grouped := func(id string, c *cobra.Command) *cobra.Command {
		c.GroupID = id
		return c
	}
	cmd.AddCommand(grouped(groupRelease, newBumpCommand()))
	cmd.AddCommand(grouped(groupRelease, newSummaryCommand()))
	cmd.AddCommand(grouped(groupProject, newNewCommand()))
	cmd.AddCommand(grouped(groupProject, newPkgCommand()))
	cmd.AddCommand(grouped(groupSupport, newVersionCommand()))
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the command tree and exits with the code mapped from the
// returned error. The first SIGINT cancels the command context; a second
// one gets the default handler.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		err = classify(err)
		reportError(os.Stderr, err)
		os.Exit(ionerr.ExitCode(err))
	}
}

func init() {
	// Register all subcommands with the production rootCmd
	registerSubcommands(rootCmd)
}

// classify turns cobra's own usage failures into UsageError.
func classify(err error) error {
	if ionerr.KindOf(err) != "" || errors.Is(err, context.Canceled) {
		return err
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return ionerr.Wrap(ionerr.UsageError, err, "invalid arguments")
	}
	return err
}

// reportError prints err as a single line, followed by the recovery hint of
// a failed release step.
func reportError(w io.Writer, err error) {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	_, _ = fmt.Fprintf(w, "error: %s\n", msg)
	var stepErr *release.StepError
	if errors.As(err, &stepErr) && stepErr.Recovery != "" {
		_, _ = fmt.Fprintf(w, "recovery: %s\n", stepErr.Recovery)
	}
}

// usageArgs classifies positional argument errors as UsageError.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return ionerr.Wrap(ionerr.UsageError, err, "%s", cmd.UseLine())
		}
		return nil
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) error {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel, err := logger.ParseLevel(logLevelStr)
	if err != nil {
		return ionerr.Wrap(ionerr.UsageError, err, "--log-level")
	}

	logConfig := logger.Config{
		Level:     logLevel,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "ion",
	}
	if err := logger.Initialize(logConfig); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

type configKey struct{}

// loadConfig reads the configuration once per command and stores it in the
// command context.
func loadConfig(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		logger.Debug("loaded config", logger.String("file", cfg.File))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

// settings returns the configuration loaded for cmd.
func settings(cmd *cobra.Command) *config.Config {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return cfg
		}
	}
	cfg, err := config.Default()
	if err != nil {
		logger.Warn("using partial default config", logger.Err(err))
	}
	return cfg
}
