package dag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/Kaustubhraj123/hiperseis/internal/pipeline"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

type stubRunner struct {
	kind    string
	outputs []string
}

func (r *stubRunner) Kind() string      { return r.kind }
func (r *stubRunner) NewInput() any     { return &struct{}{} }
func (r *stubRunner) Outputs() []string { return r.outputs }

func (r *stubRunner) Run(ctx context.Context, env registry.Env, input any) (cty.Value, error) {
	return cty.EmptyObjectVal, nil
}

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(&stubRunner{kind: "gather", outputs: []string{"p_file", "s_file"}})
	reg.Register(&stubRunner{kind: "sort", outputs: []string{"file", "kept"}})
	reg.Register(&stubRunner{kind: "match", outputs: []string{"p_file", "s_file"}})
	return reg
}

// testStep builds a pipeline step whose argument values are parsed from raw
// HCL expression source.
func testStep(t *testing.T, kind, name string, args map[string]string, dependsOn ...string) *pipeline.Step {
	t.Helper()
	step := &pipeline.Step{
		Kind:      kind,
		Name:      name,
		Body:      hcl.EmptyBody(),
		DependsOn: dependsOn,
		File:      "test.hcl",
	}
	if len(args) > 0 {
		step.Args = make(map[string]hcl.Expression, len(args))
		for attr, src := range args {
			expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
			require.False(t, diags.HasErrors(), "parsing %q: %s", src, diags.Error())
			step.Args[attr] = expr
		}
	}
	return step
}

func TestBuildLinksImplicitDeps(t *testing.T) {
	model := &pipeline.Model{Steps: []*pipeline.Step{
		testStep(t, "gather", "arrivals", nil),
		testStep(t, "sort", "p", map[string]string{
			"input":     "step.gather.arrivals.p_file",
			"threshold": "5.0",
		}),
	}}

	graph, err := Build(context.Background(), model, testRegistry())
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2)

	gather := graph.Nodes["step.gather.arrivals"]
	sorted := graph.Nodes["step.sort.p"]
	require.NotNil(t, gather)
	require.NotNil(t, sorted)

	assert.Contains(t, sorted.Deps, gather.ID)
	assert.Contains(t, gather.Dependents, sorted.ID)
	assert.Equal(t, int32(0), gather.DepCount())
	assert.Equal(t, int32(1), sorted.DepCount())
}

func TestBuildLinksExplicitDeps(t *testing.T) {
	t.Run("full address", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "gather", "arrivals", nil),
			testStep(t, "sort", "p", nil, "step.gather.arrivals"),
		}}
		graph, err := Build(context.Background(), model, testRegistry())
		require.NoError(t, err)
		assert.Contains(t, graph.Nodes["step.sort.p"].Deps, "step.gather.arrivals")
	})

	t.Run("shorthand address", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "gather", "arrivals", nil),
			testStep(t, "sort", "p", nil, "gather.arrivals"),
		}}
		graph, err := Build(context.Background(), model, testRegistry())
		require.NoError(t, err)
		assert.Contains(t, graph.Nodes["step.sort.p"].Deps, "step.gather.arrivals")
	})
}

func TestBuildDeduplicatesLinks(t *testing.T) {
	// The same dependency declared both ways must still count once.
	model := &pipeline.Model{Steps: []*pipeline.Step{
		testStep(t, "gather", "arrivals", nil),
		testStep(t, "sort", "p", map[string]string{
			"input": "step.gather.arrivals.p_file",
		}, "step.gather.arrivals"),
	}}

	graph, err := Build(context.Background(), model, testRegistry())
	require.NoError(t, err)

	sorted := graph.Nodes["step.sort.p"]
	assert.Len(t, sorted.Deps, 1)
	assert.Equal(t, int32(1), sorted.DepCount())
}

func TestBuildWholeObjectReference(t *testing.T) {
	// Referencing the step itself, without an output attribute, is valid.
	model := &pipeline.Model{Steps: []*pipeline.Step{
		testStep(t, "gather", "arrivals", nil),
		testStep(t, "sort", "p", map[string]string{
			"input": "step.gather.arrivals",
		}),
	}}

	graph, err := Build(context.Background(), model, testRegistry())
	require.NoError(t, err)
	assert.Contains(t, graph.Nodes["step.sort.p"].Deps, "step.gather.arrivals")
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown step kind", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "transmogrify", "x", nil),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, `unknown step kind "transmogrify"`)
	})

	t.Run("implicit reference to unknown step", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "sort", "p", map[string]string{
				"input": "step.gather.arrivals.p_file",
			}),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, `references unknown step "step.gather.arrivals.p_file"`)
	})

	t.Run("depends_on unknown step", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "sort", "p", nil, "gather.arrivals"),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, `depends on unknown step "gather.arrivals"`)
	})

	t.Run("undeclared output", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "gather", "arrivals", nil),
			testStep(t, "sort", "p", map[string]string{
				"input": "step.gather.arrivals.records",
			}),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, `undeclared output "records" on step "step.gather.arrivals"`)
	})

	t.Run("incomplete step reference", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "gather", "arrivals", nil),
			testStep(t, "sort", "p", map[string]string{
				"input": "step.gather",
			}),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, "incomplete step reference")
	})

	t.Run("cycle between two steps", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "sort", "a", nil, "sort.b"),
			testStep(t, "sort", "b", nil, "sort.a"),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, "cycle detected")
	})

	t.Run("self reference", func(t *testing.T) {
		model := &pipeline.Model{Steps: []*pipeline.Step{
			testStep(t, "sort", "a", map[string]string{
				"input": "step.sort.a.file",
			}),
		}}
		_, err := Build(context.Background(), model, testRegistry())
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestBuildEmptyModel(t *testing.T) {
	graph, err := Build(context.Background(), &pipeline.Model{}, testRegistry())
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
}

func TestNodeSkipRunsOnce(t *testing.T) {
	n := &Node{ID: "step.sort.p"}
	var wg sync.WaitGroup
	wg.Add(1)

	assert.True(t, n.Skip(errors.New("boom"), &wg))
	assert.False(t, n.Skip(errors.New("other"), &wg))
	assert.Equal(t, Failed, n.State())
	assert.ErrorContains(t, n.Error, "boom")

	// Done was called exactly once, so this returns immediately.
	wg.Wait()
}
