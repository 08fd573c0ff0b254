package executor

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/dag"
)

// runStep decodes a node's arguments against its dependencies' outputs and
// dispatches to the registered runner.
func (e *Executor) runStep(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("step", node.Step.ID())
	logger.Info("▶️ Starting step.")

	runner, ok := e.registry.Lookup(node.Step.Kind)
	if !ok {
		// Build validates kinds, so this only fires on a programming error.
		return fmt.Errorf("unknown step kind %q", node.Step.Kind)
	}

	input := runner.NewInput()
	evalCtx := e.buildEvalContext(node)
	if diags := gohcl.DecodeBody(node.Step.Body, evalCtx, input); diags.HasErrors() {
		return fmt.Errorf("decoding arguments for step %q: %w", node.Step.ID(), diags)
	}

	output, err := runner.Run(ctx, e.env, input)
	if err != nil {
		return err
	}
	node.Output = output

	logger.Info("✅ Finished step.")
	return nil
}

// buildEvalContext exposes the outputs of a node's dependencies as
// step.<kind>.<name> objects for argument evaluation.
func (e *Executor) buildEvalContext(node *dag.Node) *hcl.EvalContext {
	byKind := make(map[string]map[string]cty.Value)
	for _, dep := range node.Deps {
		if dep.State() != dag.Done || dep.Output.IsNull() {
			continue
		}
		kind := dep.Step.Kind
		if _, ok := byKind[kind]; !ok {
			byKind[kind] = make(map[string]cty.Value)
		}
		byKind[kind][dep.Step.Name] = dep.Output
	}

	kinds := make(map[string]cty.Value, len(byKind))
	for kind, names := range byKind {
		kinds[kind] = cty.ObjectVal(names)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{
		"step": cty.ObjectVal(kinds),
	}}
}
