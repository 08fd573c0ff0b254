package stage

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
	"github.com/Kaustubhraj123/hiperseis/internal/catalog"
	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/fsutil"
	"github.com/Kaustubhraj123/hiperseis/internal/geo"
	"github.com/Kaustubhraj123/hiperseis/internal/inventory"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
	"github.com/Kaustubhraj123/hiperseis/internal/traveltime"
)

const (
	defaultWaveTypes  = "P S"
	defaultModel      = "ak135"
	defaultOutputStem = "arrivals"
)

// GatherInput are the arguments of the gather stage.
type GatherInput struct {
	// Source is a directory scanned recursively for *.xml event files, or
	// a single event file.
	Source string `hcl:"source"`
	// WaveTypes selects the harvested wave classes, e.g. "P S".
	WaveTypes string `hcl:"wave_types,optional"`
	// Inventory is an optional station YAML used for station coordinates.
	Inventory string `hcl:"inventory,optional"`
	// TTTables is an optional directory of <model>.<phase>.tab files used
	// to compute travel-time residuals.
	TTTables string `hcl:"tt_tables,optional"`
	// Model selects the travel-time model within TTTables.
	Model string `hcl:"model,optional"`
	// Output is the stem of the per-wave CSVs: <stem>_P.csv, <stem>_S.csv.
	Output string `hcl:"output,optional"`
	// Workers bounds the number of files parsed concurrently.
	Workers int `hcl:"workers,optional"`
	// SkipBad logs and skips unreadable event files instead of failing.
	SkipBad bool `hcl:"skip_bad,optional"`
}

// GatherResult summarizes one gather run.
type GatherResult struct {
	// Files maps each requested wave class to the CSV written for it.
	Files map[arrival.Wave]string
	// Counts maps each requested wave class to its record count.
	Counts map[arrival.Wave]int
	// Sources is the number of event files scanned.
	Sources int
	// BadSources counts files skipped because they could not be parsed.
	BadSources int
	// Dropped counts arrivals discarded from parsed files, for example
	// dangling pick references.
	Dropped int
}

// Gather walks the source tree for event XML files, harvests classified
// arrivals from each event's preferred origin and writes one CSV per
// requested wave class.
func Gather(ctx context.Context, env registry.Env, in GatherInput) (GatherResult, error) {
	logger := ctxlog.FromContext(ctx)

	waveTypes := in.WaveTypes
	if waveTypes == "" {
		waveTypes = defaultWaveTypes
	}
	waves, err := arrival.ParseWaveSet(waveTypes)
	if err != nil {
		return GatherResult{}, err
	}
	wanted := make(map[arrival.Wave]bool, len(waves))
	for _, w := range waves {
		wanted[w] = true
	}

	var inv *inventory.Inventory
	if in.Inventory != "" {
		if inv, err = inventory.LoadFile(env.Resolve(in.Inventory)); err != nil {
			return GatherResult{}, err
		}
		logger.Debug("Inventory loaded.", "stations", inv.Len())
	}

	model := in.Model
	if model == "" {
		model = defaultModel
	}
	var tables *traveltime.Set
	if in.TTTables != "" {
		if tables, err = traveltime.LoadDir(env.Resolve(in.TTTables)); err != nil {
			return GatherResult{}, err
		}
		if _, ok := tables.Lookup(model, string(arrival.WaveP)); !ok {
			return GatherResult{}, fmt.Errorf("travel-time tables have no model %q", model)
		}
		logger.Debug("Travel-time tables loaded.", "models", tables.Models())
	}

	files, err := fsutil.FindFilesByExtension(env.Resolve(in.Source), ".xml")
	if err != nil {
		return GatherResult{}, fmt.Errorf("scanning %s: %w", in.Source, err)
	}
	logger.Debug("Event files located.", "count", len(files))

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	opts := harvestOptions{wanted: wanted, inv: inv, tables: tables, model: model}

	type fileResult struct {
		records []arrival.Record
		dropped int
		bad     bool
	}
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := catalog.ParseFile(path)
			if err != nil {
				if in.SkipBad {
					logger.Warn("Skipping unreadable event file.", "path", path, "error", err)
					results[i].bad = true
					return nil
				}
				return err
			}
			records, dropped := harvest(doc, opts)
			results[i] = fileResult{records: records, dropped: dropped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GatherResult{}, err
	}

	// Concatenate in file order so repeated runs produce identical output.
	byWave := make(map[arrival.Wave][]arrival.Record)
	res := GatherResult{
		Files:   make(map[arrival.Wave]string, len(waves)),
		Counts:  make(map[arrival.Wave]int, len(waves)),
		Sources: len(files),
	}
	for _, fr := range results {
		if fr.bad {
			res.BadSources++
			continue
		}
		res.Dropped += fr.dropped
		for _, rec := range fr.records {
			w, _ := arrival.ClassifyPhase(rec.Phase)
			byWave[w] = append(byWave[w], rec)
		}
	}

	stem := in.Output
	if stem == "" {
		stem = defaultOutputStem
	}
	stem = env.Resolve(stem)
	for _, w := range waves {
		path := fmt.Sprintf("%s_%s.csv", stem, w)
		if err := arrival.WriteFile(path, byWave[w]); err != nil {
			return GatherResult{}, err
		}
		res.Files[w] = path
		res.Counts[w] = len(byWave[w])
	}

	logger.Info("Harvest complete.",
		"sources", res.Sources,
		"bad_sources", res.BadSources,
		"p_count", res.Counts[arrival.WaveP],
		"s_count", res.Counts[arrival.WaveS],
		"dropped", res.Dropped)
	return res, nil
}

type harvestOptions struct {
	wanted map[arrival.Wave]bool
	inv    *inventory.Inventory
	tables *traveltime.Set
	model  string
}

// harvest extracts arrival records from every event's preferred origin.
// Arrivals whose phase is outside the wanted wave classes are ignored;
// arrivals that cannot be tied to a usable pick count as dropped.
func harvest(doc *catalog.Document, opts harvestOptions) ([]arrival.Record, int) {
	var records []arrival.Record
	dropped := 0

	for ei := range doc.Events {
		ev := &doc.Events[ei]
		origin := ev.PreferredOrigin()
		if origin == nil {
			continue
		}

		magnitude := math.NaN()
		if mag := ev.PreferredMagnitude(); mag != nil {
			magnitude = mag.Value
		}

		for _, arr := range origin.Arrivals {
			wave, ok := arrival.ClassifyPhase(arr.Phase)
			if !ok || !opts.wanted[wave] {
				continue
			}

			pick := ev.Pick(arr.PickID)
			if pick == nil || pick.Network == "" || pick.Station == "" {
				dropped++
				continue
			}

			rec := arrival.Record{
				EventID:       ev.PublicID,
				OriginTime:    origin.Time,
				Magnitude:     magnitude,
				OriginLon:     origin.Longitude,
				OriginLat:     origin.Latitude,
				OriginDepthKm: origin.DepthKm,
				Network:       pick.Network,
				Station:       pick.Station,
				Channel:       pick.Channel,
				PickTime:      pick.Time,
				Phase:         arr.Phase,
				StationLon:    math.NaN(),
				StationLat:    math.NaN(),
				Azimuth:       math.NaN(),
				BackAzimuth:   math.NaN(),
				DistanceDeg:   math.NaN(),
				Residual:      math.NaN(),
				SNR:           math.NaN(),
				Quality:       math.NaN(),
			}

			if opts.inv != nil {
				if sta, ok := opts.inv.Lookup(pick.Network, pick.Station); ok {
					rec.StationLat = sta.Latitude
					rec.StationLon = sta.Longitude
					rec.DistanceDeg = geo.Delta(origin.Latitude, origin.Longitude, sta.Latitude, sta.Longitude)
					rec.Azimuth = geo.Azimuth(origin.Latitude, origin.Longitude, sta.Latitude, sta.Longitude)
					rec.BackAzimuth = geo.BackAzimuth(origin.Latitude, origin.Longitude, sta.Latitude, sta.Longitude)
				}
			}

			// The locator's own values stand in where the inventory
			// cannot place the station.
			if math.IsNaN(rec.DistanceDeg) && arr.Distance != nil {
				rec.DistanceDeg = *arr.Distance
			}
			if math.IsNaN(rec.Azimuth) && arr.Azimuth != nil {
				rec.Azimuth = *arr.Azimuth
			}

			if opts.tables != nil && !math.IsNaN(rec.DistanceDeg) && !math.IsNaN(origin.DepthKm) {
				if predicted, ok := opts.tables.Time(opts.model, string(wave), rec.DistanceDeg, origin.DepthKm); ok {
					observed := pick.Time.Sub(origin.Time).Seconds()
					rec.Residual = observed - predicted
				}
			}
			if math.IsNaN(rec.Residual) && arr.TimeResidual != nil {
				rec.Residual = *arr.TimeResidual
			}

			if pick.SNR != nil {
				rec.SNR = *pick.SNR
			}
			if pick.Quality != nil {
				rec.Quality = *pick.Quality
			}

			records = append(records, rec)
		}
	}
	return records, dropped
}

// GatherRunner exposes Gather as a pipeline stage.
type GatherRunner struct{}

func (*GatherRunner) Kind() string { return "gather" }

func (*GatherRunner) NewInput() any { return &GatherInput{} }

func (*GatherRunner) Outputs() []string {
	return []string{"p_file", "s_file", "p_count", "s_count", "sources", "bad_sources", "dropped"}
}

func (*GatherRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	res, err := Gather(ctx, env, *input.(*GatherInput))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"p_file":      cty.StringVal(res.Files[arrival.WaveP]),
		"s_file":      cty.StringVal(res.Files[arrival.WaveS]),
		"p_count":     cty.NumberIntVal(int64(res.Counts[arrival.WaveP])),
		"s_count":     cty.NumberIntVal(int64(res.Counts[arrival.WaveS])),
		"sources":     cty.NumberIntVal(int64(res.Sources)),
		"bad_sources": cty.NumberIntVal(int64(res.BadSources)),
		"dropped":     cty.NumberIntVal(int64(res.Dropped)),
	}), nil
}
