package stage

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/geo"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// ZoneInput are the arguments of the zone stage. Exactly one of Bounds and
// Params selects the region of interest.
type ZoneInput struct {
	Input string `hcl:"input"`
	// Bounds is an inline "minLat minLon maxLat maxLon" string.
	Bounds string `hcl:"bounds,optional"`
	// Params is an HCL file carrying a region block with the same four
	// values.
	Params       string `hcl:"params,optional"`
	RegionOutput string `hcl:"region_output"`
	GlobalOutput string `hcl:"global_output"`
}

// ZoneResult summarizes one zone run.
type ZoneResult struct {
	RegionFile  string
	GlobalFile  string
	RegionCount int
	GlobalCount int
}

type zoneParamsFile struct {
	Region *zoneRegion `hcl:"region,block"`
}

type zoneRegion struct {
	MinLat float64 `hcl:"min_lat"`
	MinLon float64 `hcl:"min_lon"`
	MaxLat float64 `hcl:"max_lat"`
	MaxLon float64 `hcl:"max_lon"`
}

// Zone splits an arrival CSV into records whose event origin lies inside
// the region of interest and the rest. Records with unknown origin
// coordinates go to the global file.
func Zone(ctx context.Context, env registry.Env, in ZoneInput) (ZoneResult, error) {
	logger := ctxlog.FromContext(ctx)

	box, err := zoneBounds(env, in)
	if err != nil {
		return ZoneResult{}, err
	}

	records, err := arrival.ReadFile(env.Resolve(in.Input))
	if err != nil {
		return ZoneResult{}, err
	}

	var region, global []arrival.Record
	for _, rec := range records {
		if box.Contains(rec.OriginLat, rec.OriginLon) {
			region = append(region, rec)
		} else {
			global = append(global, rec)
		}
	}

	regionPath := env.Resolve(in.RegionOutput)
	if err := arrival.WriteFile(regionPath, region); err != nil {
		return ZoneResult{}, err
	}
	globalPath := env.Resolve(in.GlobalOutput)
	if err := arrival.WriteFile(globalPath, global); err != nil {
		return ZoneResult{}, err
	}

	res := ZoneResult{
		RegionFile:  regionPath,
		GlobalFile:  globalPath,
		RegionCount: len(region),
		GlobalCount: len(global),
	}
	logger.Info("Zone complete.", "region", res.RegionCount, "global", res.GlobalCount)
	return res, nil
}

// zoneBounds resolves the region of interest from whichever of the two
// argument forms was given.
func zoneBounds(env registry.Env, in ZoneInput) (geo.BoundingBox, error) {
	switch {
	case in.Bounds != "" && in.Params != "":
		return geo.BoundingBox{}, fmt.Errorf("bounds and params are mutually exclusive")
	case in.Bounds != "":
		return geo.ParseBounds(in.Bounds)
	case in.Params != "":
		var file zoneParamsFile
		if err := hclsimple.DecodeFile(env.Resolve(in.Params), nil, &file); err != nil {
			return geo.BoundingBox{}, fmt.Errorf("reading region parameters: %w", err)
		}
		if file.Region == nil {
			return geo.BoundingBox{}, fmt.Errorf("%s: no region block", in.Params)
		}
		box := geo.BoundingBox{
			MinLat: file.Region.MinLat,
			MinLon: file.Region.MinLon,
			MaxLat: file.Region.MaxLat,
			MaxLon: file.Region.MaxLon,
		}
		if err := box.Validate(); err != nil {
			return geo.BoundingBox{}, fmt.Errorf("%s: %w", in.Params, err)
		}
		return box, nil
	default:
		return geo.BoundingBox{}, fmt.Errorf("either bounds or params is required")
	}
}

// ZoneRunner exposes Zone as a pipeline stage.
type ZoneRunner struct{}

func (*ZoneRunner) Kind() string { return "zone" }

func (*ZoneRunner) NewInput() any { return &ZoneInput{} }

func (*ZoneRunner) Outputs() []string {
	return []string{"region_file", "global_file", "region_count", "global_count"}
}

func (*ZoneRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	res, err := Zone(ctx, env, *input.(*ZoneInput))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"region_file":  cty.StringVal(res.RegionFile),
		"global_file":  cty.StringVal(res.GlobalFile),
		"region_count": cty.NumberIntVal(int64(res.RegionCount)),
		"global_count": cty.NumberIntVal(int64(res.GlobalCount)),
	}), nil
}
