package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

var exportCmd = &cobra.Command{
	Use:   "export <config.hcl>",
	Short: "Convert arrival CSVs into GMT plottable ASCII files",
	Long: `Reads an export configuration and writes one LON LAT VALUE text file
per dataset under <output_dir>/gmt_data.

Example:
  cluster export export.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	env := cliEnv()

	inputs, err := stage.LoadExportConfig(env, args[0])
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if _, err := stage.Export(ctx, env, in); err != nil {
			return fmt.Errorf("dataset %q: %w", in.Name, err)
		}
	}
	return nil
}
