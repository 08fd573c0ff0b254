// Package executor drains a pipeline graph with a bounded worker pool.
// Nodes become ready when their last dependency finishes; a failure cancels
// the run, skips everything downstream, and surfaces the root cause.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/dag"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// Executor runs one pipeline graph to completion.
type Executor struct {
	graph    *dag.Graph
	registry *registry.Registry
	env      registry.Env
	workers  int
	wg       sync.WaitGroup
}

// New creates an executor. A non-positive workers value selects one worker
// per CPU.
func New(graph *dag.Graph, reg *registry.Registry, env registry.Env, workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		graph:    graph,
		registry: reg,
		env:      env,
		workers:  workers,
	}
}

// Run executes the whole graph and blocks until every node is accounted
// for. The returned error wraps the root cause of the first real failure;
// skip symptoms and cancellation fallout never mask it.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.DepCount() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Executor initialized.", "nodes", len(e.graph.Nodes), "roots", rootCount, "workers", e.workers)

	e.wg.Add(len(e.graph.Nodes))
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCause error
	for _, node := range e.graph.Nodes {
		if node.State() != dag.Failed {
			continue
		}
		logger.Error("Node failed.", "node_id", node.ID, "error", node.Error)
		// A "skipped" error is a symptom, not a cause, and cancellation
		// fallout belongs to whatever triggered it.
		if node.Error != nil && !strings.HasPrefix(node.Error.Error(), "skipped") && !errors.Is(node.Error, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCause == nil {
				rootCause = node.Error
			}
		}
	}

	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCause)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execution interrupted: %w", err)
	}
	return nil
}

// worker is the processing loop of a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		workerLogger := logger.With("worker_id", workerID, "node_id", node.ID)

		if ctx.Err() != nil {
			if node.Skip(ctx.Err(), &e.wg) {
				workerLogger.Warn("Context canceled, skipping node.")
				e.skipDependents(ctx, node)
			}
			continue
		}

		workerLogger.Debug("Worker picked up node.")
		node.SetState(dag.Running)

		if err := e.runStep(ctx, node); err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.SetState(dag.Failed)
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		node.SetState(dag.Done)
		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependent_id", dependent.ID)
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// skipDependents marks everything downstream of a dead node as skipped.
// Skipped nodes are never enqueued, so their subtrees must be released
// here or the WaitGroup would never drain.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		err := fmt.Errorf("skipped due to upstream failure of %q", node.ID)
		if dependent.Skip(err, &e.wg) {
			logger.Warn("Skipping dependent due to upstream failure.", "node_id", dependent.ID, "dependency", node.ID)
			e.skipDependents(ctx, dependent)
		}
	}
}
