// Package registry holds the catalog of stage runners the engine can
// execute. Runners are compiled in; pipeline files refer to them by kind.
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Env carries run-scoped settings into stage handlers.
type Env struct {
	// Workspace is the base directory that relative paths in stage
	// arguments resolve against.
	Workspace string
}

// Resolve maps a stage argument path onto the workspace. Absolute paths and
// empty strings pass through untouched.
func (e Env) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || e.Workspace == "" {
		return path
	}
	return filepath.Join(e.Workspace, path)
}

// Runner is one executable stage kind. NewInput returns a pointer to a
// fresh hcl-tagged arguments struct for each invocation; Run receives that
// struct back after decoding and returns the stage's output object.
type Runner interface {
	Kind() string
	NewInput() any
	Outputs() []string
	Run(ctx context.Context, env Env, input any) (cty.Value, error)
}

// Registry maps stage kinds to their runners for a single application
// instance.
type Registry struct {
	runners map[string]Runner
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds a runner. Registering the same kind twice is a programmer
// error and panics.
func (r *Registry) Register(rn Runner) {
	kind := rn.Kind()
	if _, exists := r.runners[kind]; exists {
		panic(fmt.Sprintf("stage runner %q already registered", kind))
	}
	r.runners[kind] = rn
}

// Lookup returns the runner for a kind.
func (r *Registry) Lookup(kind string) (Runner, bool) {
	rn, ok := r.runners[kind]
	return rn, ok
}

// Kinds lists the registered stage kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.runners))
	for k := range r.runners {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// HasOutput reports whether the runner for kind declares the named output.
func (r *Registry) HasOutput(kind, name string) bool {
	rn, ok := r.runners[kind]
	if !ok {
		return false
	}
	for _, out := range rn.Outputs() {
		if out == name {
			return true
		}
	}
	return false
}
