// Package dag builds and validates the dependency graph of a pipeline run.
// Each step block becomes one node; edges come from explicit depends_on
// entries and from step.<kind>.<name> references inside argument
// expressions.
package dag

import (
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/pipeline"
)

// Graph is the validated dependency graph, keyed by node ID.
type Graph struct {
	Nodes map[string]*Node
}

// Node is a single vertex in the execution graph.
type Node struct {
	// ID is the canonical node identifier, "step.<kind>.<name>".
	ID   string
	Step *pipeline.Step

	// Deps are this node's predecessors; Dependents its successors.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// Error and Output are written by the executing worker and read once
	// the run has completed.
	Error  error
	Output cty.Value

	// depCount is the number of unmet dependencies, used by the scheduler.
	depCount atomic.Int32
	// state is the node's execution state, managed atomically.
	state atomic.Int32
	// skipOnce ensures a node is marked skipped and accounted exactly once.
	skipOnce sync.Once
}

// State is the execution state of a node.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies.
	Pending State = iota
	// Running indicates a worker is currently executing the node.
	Running
	// Done indicates the node completed successfully.
	Done
	// Failed indicates the node failed or was skipped.
	Failed
)

// SetInitialCounters primes the dependency counter from the linked graph.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DepCount returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount decrements the dependency counter and returns the new
// value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// State atomically retrieves the node's execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Skip marks the node failed with the given error and releases its slot in
// the WaitGroup. The sync.Once guarantees this happens at most once; the
// return value reports whether this call was the one that did it.
func (n *Node) Skip(err error, wg *sync.WaitGroup) bool {
	var skipped bool
	n.skipOnce.Do(func() {
		n.SetState(Failed)
		n.Error = err
		wg.Done()
		skipped = true
	})
	return skipped
}
