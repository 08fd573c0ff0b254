package cli

import (
	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

var (
	gatherWaveTypesFlag string
	gatherOutputFlag    string
	gatherInventoryFlag string
	gatherTTTablesFlag  string
	gatherModelFlag     string
	gatherWorkersFlag   int
	gatherSkipBadFlag   bool
)

var gatherCmd = &cobra.Command{
	Use:   "gather <dir>",
	Short: "Harvest arrivals from event XML into per-wave CSV files",
	Long: `Recursively scans a directory for *.xml event files and writes one
arrival CSV per requested wave type.

Examples:
  cluster gather events -w "P S"
  cluster gather events -w P -o out/arrivals --inventory stations.yaml
  cluster gather events --tt-tables tt --model ak135 --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runGather,
}

func init() {
	gatherCmd.Flags().StringVarP(&gatherWaveTypesFlag, "wave-types", "w", "P S", "Space separated wave types to harvest (P, S)")
	gatherCmd.Flags().StringVarP(&gatherOutputFlag, "output", "o", "arrivals", "Stem of the output files <stem>_P.csv and <stem>_S.csv")
	gatherCmd.Flags().StringVar(&gatherInventoryFlag, "inventory", "", "Station inventory YAML providing station coordinates")
	gatherCmd.Flags().StringVar(&gatherTTTablesFlag, "tt-tables", "", "Directory of <model>.<phase>.tab travel-time tables")
	gatherCmd.Flags().StringVar(&gatherModelFlag, "model", "ak135", "Travel-time model used for residuals")
	gatherCmd.Flags().IntVar(&gatherWorkersFlag, "workers", 0, "Event files parsed concurrently, 0 means one per CPU")
	gatherCmd.Flags().BoolVar(&gatherSkipBadFlag, "skip-bad", false, "Skip unreadable event files instead of failing")
	rootCmd.AddCommand(gatherCmd)
}

func runGather(cmd *cobra.Command, args []string) error {
	_, err := stage.Gather(commandContext(cmd), cliEnv(), stage.GatherInput{
		Source:    args[0],
		WaveTypes: gatherWaveTypesFlag,
		Inventory: gatherInventoryFlag,
		TTTables:  gatherTTTablesFlag,
		Model:     gatherModelFlag,
		Output:    gatherOutputFlag,
		Workers:   gatherWorkersFlag,
		SkipBad:   gatherSkipBadFlag,
	})
	return err
}
