package cli

import (
	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

var (
	matchPOutputFlag string
	matchSOutputFlag string
)

var matchCmd = &cobra.Command{
	Use:   "match <sorted_P> <sorted_S>",
	Short: "Pair P and S arrivals per event and station",
	Long: `Keeps only (event, network, station) keys present in both inputs and
writes two row-aligned CSVs, one P and one S arrival per key.

Example:
  cluster match p_sorted.csv s_sorted.csv -p p_matched.csv -s s_matched.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchPOutputFlag, "p-output", "p", "", "Matched P output file")
	matchCmd.Flags().StringVarP(&matchSOutputFlag, "s-output", "s", "", "Matched S output file")
	matchCmd.MarkFlagRequired("p-output")
	matchCmd.MarkFlagRequired("s-output")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	_, err := stage.Match(commandContext(cmd), cliEnv(), stage.MatchInput{
		PInput:  args[0],
		SInput:  args[1],
		POutput: matchPOutputFlag,
		SOutput: matchSOutputFlag,
	})
	return err
}
