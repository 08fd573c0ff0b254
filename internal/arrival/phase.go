package arrival

import (
	"fmt"
	"strings"
)

// Wave is the broad class of a seismic phase, determined by its leading
// body-wave letter.
type Wave string

const (
	WaveP Wave = "P"
	WaveS Wave = "S"
)

// ParseWaveSet parses a whitespace-separated list of wave classes such as
// "P S". Duplicates collapse; order is preserved.
func ParseWaveSet(s string) ([]Wave, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("wave set %q contains no wave types", s)
	}

	seen := make(map[Wave]bool, len(fields))
	var waves []Wave
	for _, f := range fields {
		var w Wave
		switch f {
		case "P":
			w = WaveP
		case "S":
			w = WaveS
		default:
			return nil, fmt.Errorf("unsupported wave type %q (want P or S)", f)
		}
		if !seen[w] {
			seen[w] = true
			waves = append(waves, w)
		}
	}
	return waves, nil
}

// ClassifyPhase maps a phase name to its wave class using the leading
// letter: Pg, Pn and PKP are all P, Sg and SKS are S. Names that start with
// a lowercase letter are depth phases (pP, sS) and are not classified, nor
// is anything that does not start with P or S.
func ClassifyPhase(phase string) (Wave, bool) {
	if phase == "" {
		return "", false
	}
	switch phase[0] {
	case 'P':
		return WaveP, true
	case 'S':
		return WaveS, true
	}
	return "", false
}
