// Package traveltime reads iLoc-style travel-time tables and interpolates
// predicted phase travel times over (distance, depth). One table file holds
// the samples for a single model and phase, for example ak135.P.tab.
package traveltime

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// FillValue is returned by the original tooling for queries that fall
// outside the tabulated surface. Kept for parity with files that embed it.
const FillValue = float64(math.MaxInt32)

// missingValue marks holes in the tabulated matrices.
const missingValue = -999.0

// Section markers, compared against whitespace-normalized lines.
const (
	markerDelta = "# delta samples"
	markerDepth = "# depth samples"
	markerTimes = "# travel times (rows - delta, columns - depth)"
	markerDTDD  = "# dtdd (rows - delta, columns - depth)"
	markerDTDH  = "# dtdh (rows - delta, columns - depth)"
)

// Table is one parsed travel-time surface. Matrices are indexed
// [distance][depth]; missing samples are NaN.
type Table struct {
	Model string
	Phase string

	dists  []float64 // great-circle distance samples, degrees
	depths []float64 // depth samples, km

	times [][]float64 // travel time, seconds
	dtdd  [][]float64 // d(time)/d(distance), s/deg
	dtdh  [][]float64 // d(time)/d(depth), s/km
}

// ParseTableFile reads the table at path. Model and Phase are left empty;
// LoadDir fills them from the file name.
func ParseTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, err := parseTable(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

func parseTable(data string) (*Table, error) {
	lines := strings.Split(data, "\n")

	// Locate the section markers. The line layout mirrors the iLoc table
	// dumps: matrix data starts two lines after its header, and the line
	// immediately preceding each subsequent header is padding, as are the
	// last three lines of the file.
	markerAt := make(map[string]int, 5)
	for i, line := range lines {
		normalized := strings.Join(strings.Fields(line), " ")
		switch normalized {
		case markerDelta, markerDepth, markerTimes, markerDTDD, markerDTDH:
			if _, dup := markerAt[normalized]; dup {
				return nil, fmt.Errorf("duplicate section %q", normalized)
			}
			markerAt[normalized] = i
		}
	}
	for _, m := range []string{markerDelta, markerDepth, markerTimes, markerDTDD, markerDTDH} {
		if _, ok := markerAt[m]; !ok {
			return nil, fmt.Errorf("missing section %q", m)
		}
	}

	var (
		distsRange  = lineRange{markerAt[markerDelta] + 1, markerAt[markerDepth] - 1}
		depthsRange = lineRange{markerAt[markerDepth] + 1, markerAt[markerTimes] - 2}
		timesRange  = lineRange{markerAt[markerTimes] + 2, markerAt[markerDTDD] - 2}
		dtddRange   = lineRange{markerAt[markerDTDD] + 2, markerAt[markerDTDH] - 2}
		dtdhRange   = lineRange{markerAt[markerDTDH] + 2, len(lines) - 4}
	)

	t := &Table{}
	var err error
	if t.dists, err = parseSamples(lines, distsRange); err != nil {
		return nil, fmt.Errorf("delta samples: %w", err)
	}
	if t.depths, err = parseSamples(lines, depthsRange); err != nil {
		return nil, fmt.Errorf("depth samples: %w", err)
	}
	if len(t.dists) == 0 || len(t.depths) == 0 {
		return nil, fmt.Errorf("empty sample axes (%d distances, %d depths)", len(t.dists), len(t.depths))
	}
	if !sort.Float64sAreSorted(t.dists) || !sort.Float64sAreSorted(t.depths) {
		return nil, fmt.Errorf("sample axes must be ascending")
	}

	if t.times, err = parseMatrix(lines, timesRange, len(t.dists), len(t.depths)); err != nil {
		return nil, fmt.Errorf("travel times: %w", err)
	}
	if t.dtdd, err = parseMatrix(lines, dtddRange, len(t.dists), len(t.depths)); err != nil {
		return nil, fmt.Errorf("dtdd: %w", err)
	}
	if t.dtdh, err = parseMatrix(lines, dtdhRange, len(t.dists), len(t.depths)); err != nil {
		return nil, fmt.Errorf("dtdh: %w", err)
	}

	// The gradients must be missing exactly where the times are.
	for i := range t.times {
		for j := range t.times[i] {
			tNaN := math.IsNaN(t.times[i][j])
			if tNaN != math.IsNaN(t.dtdd[i][j]) || tNaN != math.IsNaN(t.dtdh[i][j]) {
				return nil, fmt.Errorf("inconsistent missing-value mask at distance %v depth %v",
					t.dists[i], t.depths[j])
			}
		}
	}

	return t, nil
}

type lineRange struct{ start, end int }

// parseSamples flattens every token in the range into one ascending axis.
func parseSamples(lines []string, r lineRange) ([]float64, error) {
	var out []float64
	for i := r.start; i <= r.end && i < len(lines); i++ {
		for _, tok := range strings.Fields(lines[i]) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// parseMatrix reads one matrix row per line. Blank lines inside the range
// are skipped; every data line must carry exactly cols values.
func parseMatrix(lines []string, r lineRange, rows, cols int) ([][]float64, error) {
	out := make([][]float64, 0, rows)
	for i := r.start; i <= r.end && i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if len(fields) != cols {
			return nil, fmt.Errorf("line %d: %d values, want %d", i+1, len(fields), cols)
		}

		row := make([]float64, cols)
		for j, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			if v == missingValue {
				v = math.NaN()
			}
			row[j] = v
		}
		out = append(out, row)
	}

	if len(out) != rows {
		return nil, fmt.Errorf("%d rows, want %d", len(out), rows)
	}
	return out, nil
}

// Time interpolates the travel time in seconds at the given great-circle
// distance (degrees) and depth (km). ok is false when the query falls
// outside the table or lands on missing samples.
func (t *Table) Time(distDeg, depthKm float64) (float64, bool) {
	return t.at(t.times, distDeg, depthKm)
}

// DistanceGradient interpolates dtdd (s/deg) at the given point.
func (t *Table) DistanceGradient(distDeg, depthKm float64) (float64, bool) {
	return t.at(t.dtdd, distDeg, depthKm)
}

// DepthGradient interpolates dtdh (s/km) at the given point.
func (t *Table) DepthGradient(distDeg, depthKm float64) (float64, bool) {
	return t.at(t.dtdh, distDeg, depthKm)
}

// at performs bilinear interpolation with NaN-aware corner handling: a NaN
// corner only rejects the query when its weight is non-zero.
func (t *Table) at(grid [][]float64, distDeg, depthKm float64) (float64, bool) {
	i1, i2, u, ok := gridIndex(t.dists, distDeg)
	if !ok {
		return 0, false
	}
	j1, j2, v, ok := gridIndex(t.depths, depthKm)
	if !ok {
		return 0, false
	}

	corners := [4]float64{grid[i1][j1], grid[i2][j1], grid[i1][j2], grid[i2][j2]}
	weights := [4]float64{(1 - u) * (1 - v), u * (1 - v), (1 - u) * v, u * v}

	var val float64
	for k := 0; k < 4; k++ {
		if weights[k] == 0 {
			continue
		}
		if math.IsNaN(corners[k]) {
			return 0, false
		}
		val += weights[k] * corners[k]
	}
	return val, true
}

// gridIndex locates v on the sample axis. For an exact hit both indices
// point at the sample and the fraction is zero.
func gridIndex(samples []float64, v float64) (lo, hi int, frac float64, ok bool) {
	n := len(samples)
	if n == 0 || math.IsNaN(v) || v < samples[0] || v > samples[n-1] {
		return 0, 0, 0, false
	}

	j := sort.SearchFloat64s(samples, v)
	if j < n && samples[j] == v {
		return j, j, 0, true
	}
	lo, hi = j-1, j
	frac = (v - samples[lo]) / (samples[hi] - samples[lo])
	return lo, hi, frac, true
}
