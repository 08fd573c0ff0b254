package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// linkNodes performs the second pass, establishing dependency links.
func linkNodes(ctx context.Context, graph *Graph, reg *registry.Registry) error {
	for _, node := range graph.Nodes {
		if err := linkExplicitDeps(ctx, node, graph); err != nil {
			return err
		}
		for _, expr := range node.Step.Args {
			if err := linkImplicitDeps(ctx, node, expr, graph, reg); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkExplicitDeps resolves depends_on entries. Both "step.kind.name" and
// the shorthand "kind.name" address the same node.
func linkExplicitDeps(ctx context.Context, node *Node, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, depAddr := range node.Step.DependsOn {
		depID := "step." + strings.TrimPrefix(depAddr, "step.")
		depNode, ok := graph.Nodes[depID]
		if !ok {
			return fmt.Errorf("step %q depends on unknown step %q", node.Step.ID(), depAddr)
		}

		if _, exists := node.Deps[depID]; !exists {
			logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depID)
			node.Deps[depID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// linkImplicitDeps walks an argument expression's variable traversals and
// links every step.<kind>.<name> reference it finds.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "step" {
			continue
		}
		ref := formatTraversal(traversal)
		if len(traversal) < 3 {
			return fmt.Errorf("step %q: incomplete step reference %q, want step.<kind>.<name>", node.Step.ID(), ref)
		}
		kindAttr, kindOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !kindOk || !nameOk {
			return fmt.Errorf("step %q: invalid step reference %q", node.Step.ID(), ref)
		}

		depID := fmt.Sprintf("step.%s.%s", kindAttr.Name, nameAttr.Name)
		depNode, ok := graph.Nodes[depID]
		if !ok {
			return fmt.Errorf("step %q references unknown step %q", node.Step.ID(), ref)
		}

		if err := validateOutputReference(traversal, depNode, reg); err != nil {
			return err
		}

		if _, exists := node.Deps[depID]; !exists {
			logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
			node.Deps[depID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// validateOutputReference checks a step.<kind>.<name>.<output> reference
// against the runner's declared outputs. Shorter references address the
// whole output object and are always valid.
func validateOutputReference(traversal hcl.Traversal, depNode *Node, reg *registry.Registry) error {
	if len(traversal) < 4 {
		return nil
	}
	outputAttr, ok := traversal[3].(hcl.TraverseAttr)
	if !ok {
		// Index syntax and other shapes surface as evaluation errors.
		return nil
	}
	if !reg.HasOutput(depNode.Step.Kind, outputAttr.Name) {
		return fmt.Errorf("reference to undeclared output %q on step %q", outputAttr.Name, depNode.ID)
	}
	return nil
}

// formatTraversal renders a traversal for error and log messages.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for _, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			sb.WriteString(".")
			sb.WriteString(p.Name)
		default:
			sb.WriteString("[...]")
		}
	}
	return sb.String()
}
