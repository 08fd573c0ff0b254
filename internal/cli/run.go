package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/app"
)

var (
	runWorkersFlag  int
	runWalltimeFlag time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.hcl | dir>",
	Short: "Execute a whole workflow from a pipeline file",
	Long: `Loads one pipeline file, or every *.hcl file under a directory, builds
the step dependency graph and drains it with a worker pool. A step
failure cancels the run and skips everything downstream.

Examples:
  cluster run pipeline.hcl
  cluster run pipelines/ --workers 8 --walltime 12h`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runWorkersFlag, "workers", 0, "Concurrent steps, overrides pipeline.workers")
	runCmd.Flags().DurationVar(&runWalltimeFlag, "walltime", 0, "Run deadline, overrides pipeline.walltime")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	return application.RunPipeline(cmd.Context(), app.RunOptions{
		Path:     args[0],
		Workers:  runWorkersFlag,
		Walltime: runWalltimeFlag,
	})
}
