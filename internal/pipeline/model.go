// Package pipeline loads workflow files into a format-agnostic model. A
// pipeline is one optional settings block plus any number of step blocks,
// possibly spread across several files in a directory.
package pipeline

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Settings are the run-wide knobs from the pipeline block.
type Settings struct {
	Name      string
	Workspace string
	Workers   int
	// Walltime caps the whole run; zero means no deadline.
	Walltime time.Duration
}

// Step is one step block. Arguments stay unevaluated so the graph builder
// can resolve references against upstream outputs, and the executor can
// defer evaluation until those outputs exist.
type Step struct {
	Kind string
	Name string
	// Args holds each argument's expression, for dependency discovery.
	Args map[string]hcl.Expression
	// Body is the raw arguments block, decoded into the runner's input
	// struct at execution time. Never nil.
	Body      hcl.Body
	DependsOn []string
	// File is the path the step was parsed from, for error messages.
	File string
}

// ID returns the step's "kind.name" handle.
func (s *Step) ID() string {
	return s.Kind + "." + s.Name
}

// Model is the merged view of every parsed pipeline file.
type Model struct {
	Settings Settings
	Steps    []*Step
}
