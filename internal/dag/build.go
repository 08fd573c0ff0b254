package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/pipeline"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// Build constructs a complete, validated dependency graph from a pipeline
// model. Unknown step kinds, references to missing steps or undeclared
// outputs, and cycles are all reported here, before anything executes.
func Build(ctx context.Context, model *pipeline.Model, reg *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes. The loader already guarantees unique
	// (kind, name) pairs.
	for _, step := range model.Steps {
		if _, ok := reg.Lookup(step.Kind); !ok {
			return nil, fmt.Errorf("%s: unknown step kind %q (have: %s)",
				step.File, step.Kind, strings.Join(reg.Kinds(), ", "))
		}
		id := "step." + step.ID()
		graph.Nodes[id] = &Node{
			ID:         id,
			Step:       step,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	logger.Debug("Graph nodes created.", "count", len(graph.Nodes))

	// Second pass: link dependencies.
	if err := linkNodes(ctx, graph, reg); err != nil {
		return nil, err
	}
	logger.Debug("Graph linking complete.")

	// Third pass: prime the scheduler counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("validating dependency graph: %w", err)
	}
	logger.Debug("Graph construction successful.")

	return graph, nil
}

// detectCycles checks for circular dependencies using depth-first search.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return fmt.Errorf("cycle detected involving %q", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
