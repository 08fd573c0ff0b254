package stage

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaustubhraj123/hiperseis/internal/arrival"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

func TestGather(t *testing.T) {
	ws := gatherFixture(t)
	env := registry.Env{Workspace: ws}

	res, err := Gather(context.Background(), env, GatherInput{
		Source:    "events",
		Inventory: "stations.yaml",
		TTTables:  "tt",
		Output:    "out/picks",
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sources)
	assert.Equal(t, 0, res.BadSources)
	assert.Equal(t, 1, res.Dropped, "dangling pick reference should be dropped")
	assert.Equal(t, 2, res.Counts[arrival.WaveP])
	assert.Equal(t, 1, res.Counts[arrival.WaveS])
	assert.Equal(t, filepath.Join(ws, "out/picks_P.csv"), res.Files[arrival.WaveP])

	pRecs, err := arrival.ReadFile(res.Files[arrival.WaveP])
	require.NoError(t, err)
	require.Len(t, pRecs, 2)

	t.Run("inventory-placed record", func(t *testing.T) {
		rec := pRecs[0]
		assert.Equal(t, "smi:local/event/1", rec.EventID)
		assert.Equal(t, "AU", rec.Network)
		assert.Equal(t, "STKA", rec.Station)
		assert.Equal(t, "BHZ", rec.Channel)
		assert.Equal(t, "P", rec.Phase)
		assert.Equal(t, 5.0, rec.Magnitude)
		assert.InDelta(t, 10.0, rec.OriginDepthKm, 1e-9)
		assert.Equal(t, -21.0, rec.StationLat)
		assert.Equal(t, 134.0, rec.StationLon)
		assert.InDelta(t, 1.0, rec.DistanceDeg, 1e-6)
		assert.InDelta(t, 180.0, rec.Azimuth, 1e-6)
		assert.InDelta(t, 0.0, rec.BackAzimuth, 1e-6)
		// Observed 120.5 s against the tabulated 111 s.
		assert.InDelta(t, 9.5, rec.Residual, 1e-6)
		assert.Equal(t, 10.0, rec.SNR)
		assert.Equal(t, 0.9, rec.Quality)
	})

	t.Run("locator-fallback record", func(t *testing.T) {
		rec := pRecs[1]
		assert.Equal(t, "smi:local/event/2", rec.EventID)
		assert.Equal(t, "Pn", rec.Phase)
		assert.True(t, math.IsNaN(rec.Magnitude))
		assert.True(t, math.IsNaN(rec.OriginDepthKm))
		assert.True(t, math.IsNaN(rec.StationLat), "unknown station has no coordinates")
		assert.Equal(t, 12.5, rec.DistanceDeg)
		assert.Equal(t, 45.0, rec.Azimuth)
		assert.True(t, math.IsNaN(rec.BackAzimuth))
		// No depth, so the locator residual is used as-is.
		assert.Equal(t, -0.75, rec.Residual)
		assert.True(t, math.IsNaN(rec.SNR))
	})

	t.Run("s records computed against the s table", func(t *testing.T) {
		sRecs, err := arrival.ReadFile(res.Files[arrival.WaveS])
		require.NoError(t, err)
		require.Len(t, sRecs, 1)
		assert.Equal(t, "Sg", sRecs[0].Phase)
		assert.InDelta(t, 19.5, sRecs[0].Residual, 1e-6)
	})
}

func TestGatherWaveSelection(t *testing.T) {
	ws := gatherFixture(t)
	env := registry.Env{Workspace: ws}

	res, err := Gather(context.Background(), env, GatherInput{
		Source:    "events",
		WaveTypes: "P",
		Output:    "p_only",
	})
	require.NoError(t, err)

	assert.Contains(t, res.Files, arrival.WaveP)
	assert.NotContains(t, res.Files, arrival.WaveS)
	assert.Equal(t, 2, res.Counts[arrival.WaveP])

	// Without inventory or tables the harvest leans on the locator values.
	recs, err := arrival.ReadFile(res.Files[arrival.WaveP])
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, math.IsNaN(recs[0].DistanceDeg), "no inventory and no locator distance")
	assert.Equal(t, 12.5, recs[1].DistanceDeg)
}

func TestGatherSkipBad(t *testing.T) {
	ws := gatherFixture(t)
	broken := filepath.Join(ws, "events", "broken.xml")
	require.NoError(t, os.WriteFile(broken, []byte("<eventParameters><event"), 0o644))
	env := registry.Env{Workspace: ws}

	t.Run("fails by default", func(t *testing.T) {
		_, err := Gather(context.Background(), env, GatherInput{Source: "events", Output: "strict"})
		assert.Error(t, err)
	})

	t.Run("skips when asked", func(t *testing.T) {
		res, err := Gather(context.Background(), env, GatherInput{
			Source:  "events",
			Output:  "lenient",
			SkipBad: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Sources)
		assert.Equal(t, 1, res.BadSources)
		assert.Equal(t, 2, res.Counts[arrival.WaveP])
	})
}

func TestGatherValidation(t *testing.T) {
	ws := gatherFixture(t)
	env := registry.Env{Workspace: ws}

	t.Run("unknown wave type", func(t *testing.T) {
		_, err := Gather(context.Background(), env, GatherInput{Source: "events", WaveTypes: "P X"})
		assert.ErrorContains(t, err, "unsupported wave type")
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := Gather(context.Background(), env, GatherInput{
			Source:   "events",
			TTTables: "tt",
			Model:    "jb",
		})
		assert.ErrorContains(t, err, `no model "jb"`)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := Gather(context.Background(), env, GatherInput{Source: "no-such-dir"})
		assert.Error(t, err)
	})

	t.Run("empty source writes header-only files", func(t *testing.T) {
		empty := t.TempDir()
		res, err := Gather(context.Background(), registry.Env{Workspace: empty}, GatherInput{
			Source: ".",
			Output: "none",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Sources)

		recs, err := arrival.ReadFile(res.Files[arrival.WaveP])
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestGatherRunner(t *testing.T) {
	ws := gatherFixture(t)
	env := registry.Env{Workspace: ws}

	runner := &GatherRunner{}
	assert.Equal(t, "gather", runner.Kind())

	input, ok := runner.NewInput().(*GatherInput)
	require.True(t, ok)
	input.Source = "events"
	input.Inventory = "stations.yaml"
	input.Output = "runner/picks"

	out, err := runner.Run(context.Background(), env, input)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws, "runner/picks_P.csv"), out.GetAttr("p_file").AsString())
	pCount, _ := out.GetAttr("p_count").AsBigFloat().Int64()
	assert.Equal(t, int64(2), pCount)
}
