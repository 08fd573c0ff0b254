package cli

import (
	"github.com/spf13/cobra"

	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

var (
	zoneBoundsFlag string
	zoneRegionFlag string
	zoneGlobalFlag string
	zoneParamsFlag string
)

var zoneCmd = &cobra.Command{
	Use:   "zone <infile>",
	Short: "Split arrivals into regional and global files",
	Long: `Partitions rows by whether the event origin lies inside the bounding
box: inside goes to the region file, everything else to the global file.
Bounds come from the --bounds literal or from an HCL parameter file,
never both.

Examples:
  cluster zone p_matched.csv -b "-54 100 0 190" -r p_region.csv -g p_global.csv
  cluster zone p_matched.csv --params region.hcl -r p_region.csv -g p_global.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runZone,
}

func init() {
	zoneCmd.Flags().StringVarP(&zoneBoundsFlag, "bounds", "b", "", "Bounding box, \"minlat minlon maxlat maxlon\" in degrees")
	zoneCmd.Flags().StringVar(&zoneParamsFlag, "params", "", "HCL parameter file with a region block")
	zoneCmd.Flags().StringVarP(&zoneRegionFlag, "region", "r", "", "Output file for rows inside the bounds")
	zoneCmd.Flags().StringVarP(&zoneGlobalFlag, "global", "g", "", "Output file for rows outside the bounds")
	zoneCmd.MarkFlagRequired("region")
	zoneCmd.MarkFlagRequired("global")
	rootCmd.AddCommand(zoneCmd)
}

func runZone(cmd *cobra.Command, args []string) error {
	_, err := stage.Zone(commandContext(cmd), cliEnv(), stage.ZoneInput{
		Input:        args[0],
		Bounds:       zoneBoundsFlag,
		Params:       zoneParamsFlag,
		RegionOutput: zoneRegionFlag,
		GlobalOutput: zoneGlobalFlag,
	})
	return err
}
