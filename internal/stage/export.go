package stage

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// Export modes.
const (
	ExportSources  = "sources"
	ExportArrivals = "arrivals"
)

// Export value columns for the arrivals mode.
const (
	ValueResidual = "residual"
	ValueSNR      = "snr"
	ValueQuality  = "quality"
)

// gmtSubdir is where export drops its files, below the output directory.
const gmtSubdir = "gmt_data"

// ExportInput are the arguments of the export stage.
type ExportInput struct {
	Input string `hcl:"input"`
	// Mode selects what each output row is: "sources" writes one row per
	// event (LON LAT MAG), "arrivals" one row per record (LON LAT VALUE).
	Mode string `hcl:"mode"`
	// Value picks the arrivals-mode column: residual, snr or quality.
	Value     string `hcl:"value,optional"`
	OutputDir string `hcl:"output_dir,optional"`
	// Name overrides the output file's base name.
	Name string `hcl:"name,optional"`
}

// ExportResult summarizes one export run.
type ExportResult struct {
	File    string
	Points  int
	Skipped int
}

// Export converts an arrival CSV into a whitespace-delimited ASCII file
// that GMT can plot directly. Rows with undefined coordinates or values
// are skipped and counted.
func Export(ctx context.Context, env registry.Env, in ExportInput) (ExportResult, error) {
	logger := ctxlog.FromContext(ctx)

	if in.Mode != ExportSources && in.Mode != ExportArrivals {
		return ExportResult{}, fmt.Errorf("unknown export mode %q (want %s or %s)", in.Mode, ExportSources, ExportArrivals)
	}
	value := in.Value
	switch in.Mode {
	case ExportSources:
		if value != "" {
			return ExportResult{}, fmt.Errorf("value is only valid with mode %q", ExportArrivals)
		}
	case ExportArrivals:
		if value == "" {
			value = ValueResidual
		}
		if value != ValueResidual && value != ValueSNR && value != ValueQuality {
			return ExportResult{}, fmt.Errorf("unknown value column %q (want %s, %s or %s)",
				value, ValueResidual, ValueSNR, ValueQuality)
		}
	}

	records, err := arrival.ReadFile(env.Resolve(in.Input))
	if err != nil {
		return ExportResult{}, err
	}

	name := in.Name
	if name == "" {
		stem := strings.TrimSuffix(filepath.Base(in.Input), filepath.Ext(in.Input))
		if in.Mode == ExportSources {
			name = stem + "_" + ExportSources
		} else {
			name = stem + "_" + value
		}
	}

	outDir := filepath.Join(env.Resolve(firstNonEmpty(in.OutputDir, ".")), gmtSubdir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return ExportResult{}, err
	}
	outPath := filepath.Join(outDir, name+".txt")

	f, err := os.Create(outPath)
	if err != nil {
		return ExportResult{}, err
	}
	w := bufio.NewWriter(f)

	points, skipped := 0, 0
	writeRow := func(lon, lat, val float64) {
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsNaN(val) {
			skipped++
			return
		}
		fmt.Fprintf(w, "%.6f %.6f %.2f\n", lon, lat, val)
		points++
	}

	if in.Mode == ExportSources {
		seen := make(map[string]bool)
		for _, rec := range records {
			if seen[rec.EventID] {
				continue
			}
			seen[rec.EventID] = true
			writeRow(rec.OriginLon, rec.OriginLat, rec.Magnitude)
		}
	} else {
		for _, rec := range records {
			writeRow(rec.StationLon, rec.StationLat, exportValue(rec, value))
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return ExportResult{}, err
	}
	if err := f.Close(); err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{File: outPath, Points: points, Skipped: skipped}
	logger.Info("Export complete.", "file", res.File, "points", res.Points, "skipped", res.Skipped)
	return res, nil
}

func exportValue(rec arrival.Record, value string) float64 {
	switch value {
	case ValueSNR:
		return rec.SNR
	case ValueQuality:
		return rec.Quality
	default:
		return rec.Residual
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type exportConfigFile struct {
	Export *exportConfigBlock `hcl:"export,block"`
}

type exportConfigBlock struct {
	OutputDir string                `hcl:"output_dir,optional"`
	Datasets  []*exportDatasetBlock `hcl:"dataset,block"`
}

type exportDatasetBlock struct {
	Name  string `hcl:"name,label"`
	Input string `hcl:"input"`
	Mode  string `hcl:"mode"`
	Value string `hcl:"value,optional"`
}

// LoadExportConfig reads an export config file and returns one ExportInput
// per dataset block, in file order. The dataset label becomes the output
// file's base name.
func LoadExportConfig(env registry.Env, path string) ([]ExportInput, error) {
	resolved := env.Resolve(path)

	var file exportConfigFile
	if err := hclsimple.DecodeFile(resolved, nil, &file); err != nil {
		return nil, fmt.Errorf("reading export config: %w", err)
	}
	if file.Export == nil {
		return nil, fmt.Errorf("%s: no export block", path)
	}
	if len(file.Export.Datasets) == 0 {
		return nil, fmt.Errorf("%s: export block has no dataset blocks", path)
	}

	seen := make(map[string]bool, len(file.Export.Datasets))
	inputs := make([]ExportInput, 0, len(file.Export.Datasets))
	for _, ds := range file.Export.Datasets {
		if seen[ds.Name] {
			return nil, fmt.Errorf("%s: duplicate dataset %q", path, ds.Name)
		}
		seen[ds.Name] = true
		inputs = append(inputs, ExportInput{
			Input:     ds.Input,
			Mode:      ds.Mode,
			Value:     ds.Value,
			OutputDir: file.Export.OutputDir,
			Name:      ds.Name,
		})
	}
	return inputs, nil
}

// ExportRunner exposes Export as a pipeline stage.
type ExportRunner struct{}

func (*ExportRunner) Kind() string { return "export" }

func (*ExportRunner) NewInput() any { return &ExportInput{} }

func (*ExportRunner) Outputs() []string {
	return []string{"file", "points", "skipped"}
}

func (*ExportRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	res, err := Export(ctx, env, *input.(*ExportInput))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"file":    cty.StringVal(res.File),
		"points":  cty.NumberIntVal(int64(res.Points)),
		"skipped": cty.NumberIntVal(int64(res.Skipped)),
	}), nil
}
