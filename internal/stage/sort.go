package stage

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// SortInput are the arguments of the sort stage.
type SortInput struct {
	Input string `hcl:"input"`
	// Threshold is the maximum epicentral distance in degrees; records
	// beyond it, or with no usable distance, are dropped.
	Threshold float64 `hcl:"threshold"`
	Output    string  `hcl:"output"`
}

// SortResult summarizes one sort run.
type SortResult struct {
	File    string
	Kept    int
	Dropped int
}

// Sort filters an arrival CSV by epicentral distance and writes it back in
// canonical order: event, network, station, distance, pick time.
func Sort(ctx context.Context, env registry.Env, in SortInput) (SortResult, error) {
	logger := ctxlog.FromContext(ctx)

	if in.Threshold <= 0 {
		return SortResult{}, fmt.Errorf("distance threshold must be positive, got %v", in.Threshold)
	}

	records, err := arrival.ReadFile(env.Resolve(in.Input))
	if err != nil {
		return SortResult{}, err
	}

	kept := records[:0]
	for _, rec := range records {
		if math.IsNaN(rec.DistanceDeg) || rec.DistanceDeg > in.Threshold {
			continue
		}
		kept = append(kept, rec)
	}
	dropped := len(records) - len(kept)

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Network != b.Network {
			return a.Network < b.Network
		}
		if a.Station != b.Station {
			return a.Station < b.Station
		}
		if a.DistanceDeg != b.DistanceDeg {
			return a.DistanceDeg < b.DistanceDeg
		}
		return a.PickTime.Before(b.PickTime)
	})

	outPath := env.Resolve(in.Output)
	if err := arrival.WriteFile(outPath, kept); err != nil {
		return SortResult{}, err
	}

	logger.Info("Sort complete.", "kept", len(kept), "dropped", dropped, "threshold_deg", in.Threshold)
	return SortResult{File: outPath, Kept: len(kept), Dropped: dropped}, nil
}

// SortRunner exposes Sort as a pipeline stage.
type SortRunner struct{}

func (*SortRunner) Kind() string { return "sort" }

func (*SortRunner) NewInput() any { return &SortInput{} }

func (*SortRunner) Outputs() []string {
	return []string{"file", "kept", "dropped"}
}

func (*SortRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	res, err := Sort(ctx, env, *input.(*SortInput))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"file":    cty.StringVal(res.File),
		"kept":    cty.NumberIntVal(int64(res.Kept)),
		"dropped": cty.NumberIntVal(int64(res.Dropped)),
	}), nil
}
