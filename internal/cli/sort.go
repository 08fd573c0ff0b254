package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

var sortOutputFlag string

var sortCmd = &cobra.Command{
	Use:   "sort <infile> <threshold>",
	Short: "Filter arrivals by distance threshold and sort them",
	Long: `Drops every row whose epicentral distance exceeds the threshold in
degrees, sorts the remainder by event, station and distance, and writes
the result.

Examples:
  cluster sort arrivals_P.csv 5.0 -s p_sorted.csv
  cluster sort arrivals_S.csv 10.0 -s s_sorted.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runSort,
}

func init() {
	sortCmd.Flags().StringVarP(&sortOutputFlag, "sorted", "s", "", "Sorted output file")
	sortCmd.MarkFlagRequired("sorted")
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	threshold, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid threshold %q: %w", args[1], err)
	}
	_, err = stage.Sort(commandContext(cmd), cliEnv(), stage.SortInput{
		Input:     args[0],
		Threshold: threshold,
		Output:    sortOutputFlag,
	})
	return err
}
