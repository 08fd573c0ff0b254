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

// MatchInput are the arguments of the match stage.
type MatchInput struct {
	PInput  string `hcl:"p_input"`
	SInput  string `hcl:"s_input"`
	POutput string `hcl:"p_output"`
	SOutput string `hcl:"s_output"`
}

// MatchResult summarizes one match run. The two outputs are aligned: row i
// of the P file and row i of the S file belong to the same event and
// station.
type MatchResult struct {
	PFile      string
	SFile      string
	Pairs      int
	UnmatchedP int
	UnmatchedS int
}

// Match pairs P and S arrivals that share an event and station. When a key
// has several candidate rows the one with the highest SNR wins; rows
// without SNR lose to rows with one, and remaining ties go to the earliest
// pick.
func Match(ctx context.Context, env registry.Env, in MatchInput) (MatchResult, error) {
	logger := ctxlog.FromContext(ctx)

	pRecords, err := readWaveFile(env.Resolve(in.PInput), arrival.WaveP)
	if err != nil {
		return MatchResult{}, err
	}
	sRecords, err := readWaveFile(env.Resolve(in.SInput), arrival.WaveS)
	if err != nil {
		return MatchResult{}, err
	}

	pBest := bestByKey(pRecords)
	sBest := bestByKey(sRecords)

	var keys []arrival.Key
	for key := range pBest {
		if _, ok := sBest[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Network != b.Network {
			return a.Network < b.Network
		}
		return a.Station < b.Station
	})

	pOut := make([]arrival.Record, 0, len(keys))
	sOut := make([]arrival.Record, 0, len(keys))
	for _, key := range keys {
		pOut = append(pOut, pBest[key])
		sOut = append(sOut, sBest[key])
	}

	pPath := env.Resolve(in.POutput)
	if err := arrival.WriteFile(pPath, pOut); err != nil {
		return MatchResult{}, err
	}
	sPath := env.Resolve(in.SOutput)
	if err := arrival.WriteFile(sPath, sOut); err != nil {
		return MatchResult{}, err
	}

	res := MatchResult{
		PFile:      pPath,
		SFile:      sPath,
		Pairs:      len(keys),
		UnmatchedP: len(pBest) - len(keys),
		UnmatchedS: len(sBest) - len(keys),
	}
	logger.Info("Match complete.",
		"pairs", res.Pairs,
		"unmatched_p", res.UnmatchedP,
		"unmatched_s", res.UnmatchedS)
	return res, nil
}

// readWaveFile loads an arrival CSV and verifies every record belongs to
// the expected wave class.
func readWaveFile(path string, want arrival.Wave) ([]arrival.Record, error) {
	records, err := arrival.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		got, ok := arrival.ClassifyPhase(rec.Phase)
		if !ok || got != want {
			return nil, fmt.Errorf("%s: record %d has phase %q, want a %s phase",
				path, i+1, rec.Phase, want)
		}
	}
	return records, nil
}

// bestByKey reduces records to one row per (event, station) key.
func bestByKey(records []arrival.Record) map[arrival.Key]arrival.Record {
	best := make(map[arrival.Key]arrival.Record)
	for _, rec := range records {
		key := rec.Key()
		cur, exists := best[key]
		if !exists || better(rec, cur) {
			best[key] = rec
		}
	}
	return best
}

// better reports whether a should replace b as its key's representative.
func better(a, b arrival.Record) bool {
	aNaN, bNaN := math.IsNaN(a.SNR), math.IsNaN(b.SNR)
	switch {
	case aNaN && bNaN:
		return a.PickTime.Before(b.PickTime)
	case aNaN:
		return false
	case bNaN:
		return true
	case a.SNR != b.SNR:
		return a.SNR > b.SNR
	default:
		return a.PickTime.Before(b.PickTime)
	}
}

// MatchRunner exposes Match as a pipeline stage.
type MatchRunner struct{}

func (*MatchRunner) Kind() string { return "match" }

func (*MatchRunner) NewInput() any { return &MatchInput{} }

func (*MatchRunner) Outputs() []string {
	return []string{"p_file", "s_file", "pairs", "unmatched_p", "unmatched_s"}
}

func (*MatchRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	res, err := Match(ctx, env, *input.(*MatchInput))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"p_file":      cty.StringVal(res.PFile),
		"s_file":      cty.StringVal(res.SFile),
		"pairs":       cty.NumberIntVal(int64(res.Pairs)),
		"unmatched_p": cty.NumberIntVal(int64(res.UnmatchedP)),
		"unmatched_s": cty.NumberIntVal(int64(res.UnmatchedS)),
	}), nil
}
