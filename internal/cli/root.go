// Package cli defines the cluster command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/app"
	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

// application is rebuilt by the root PersistentPreRun, so repeated Execute
// calls in tests see fresh state.
var application *app.App

var rootCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Seismic arrival clustering workflow",
	Long: `cluster harvests phase picks from seismic event XML, filters them by
epicentral distance, pairs P and S arrivals per station and splits them
into regional and global sets.

The individual subcommands run one stage each; "cluster run" executes a
whole workflow declared in a pipeline file with a worker pool and a
walltime.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		application = app.New(cmd.ErrOrStderr(), app.Options{
			LogLevel:  logLevelFlag,
			LogFormat: logFormatFlag,
		})
	},
}

// Execute runs the command tree. The context carries process signals from
// main.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "Log format: text or json")
}

// commandContext arms the cobra context with the application logger.
func commandContext(cmd *cobra.Command) context.Context {
	return ctxlog.WithLogger(cmd.Context(), application.Logger())
}

// cliEnv is the environment for one-shot stage commands. Paths resolve
// against the current working directory.
func cliEnv() registry.Env {
	return registry.Env{}
}
