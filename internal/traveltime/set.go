package traveltime

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Kaustubhraj123/hiperseis/internal/fsutil"
)

// Set holds every table found in a directory, keyed by model then phase.
type Set struct {
	models map[string]map[string]*Table
}

// LoadDir reads all *.tab files below dir. File names must follow the
// <model>.<phase>.tab convention.
func LoadDir(dir string) (*Set, error) {
	files, err := fsutil.FindFilesByExtension(dir, ".tab")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .tab files found under %s", dir)
	}

	set := &Set{models: make(map[string]map[string]*Table)}
	for _, path := range files {
		parts := strings.Split(filepath.Base(path), ".")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("travel-time file name %q: want <model>.<phase>.tab", filepath.Base(path))
		}
		model, phase := parts[0], parts[1]

		table, err := ParseTableFile(path)
		if err != nil {
			return nil, err
		}
		table.Model = model
		table.Phase = phase

		if set.models[model] == nil {
			set.models[model] = make(map[string]*Table)
		}
		set.models[model][phase] = table
	}
	return set, nil
}

// Lookup returns the table for a model and phase.
func (s *Set) Lookup(model, phase string) (*Table, bool) {
	t, ok := s.models[model][phase]
	return t, ok
}

// Time interpolates a travel time; ok is false when the model or phase is
// unknown or the query misses the table.
func (s *Set) Time(model, phase string, distDeg, depthKm float64) (float64, bool) {
	t, ok := s.Lookup(model, phase)
	if !ok {
		return 0, false
	}
	return t.Time(distDeg, depthKm)
}

// Models lists the loaded model names, sorted.
func (s *Set) Models() []string {
	names := make([]string, 0, len(s.models))
	for m := range s.models {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Phases lists the phases loaded for a model, sorted.
func (s *Set) Phases(model string) []string {
	names := make([]string, 0, len(s.models[model]))
	for p := range s.models[model] {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}
