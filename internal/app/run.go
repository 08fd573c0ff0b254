package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/dag"
	"github.com/Kaustubhraj123/hiperseis/internal/executor"
	"github.com/Kaustubhraj123/hiperseis/internal/pipeline"
	"github.com/Kaustubhraj123/hiperseis/internal/registry"
)

// RunOptions parameterizes one pipeline run. Zero values defer to the
// pipeline file.
type RunOptions struct {
	// Path is a pipeline .hcl file or a directory of them.
	Path string
	// Workers overrides pipeline.workers when positive.
	Workers int
	// Walltime overrides pipeline.walltime when positive.
	Walltime time.Duration
}

// RunPipeline loads a pipeline, builds its dependency graph and drains it
// with the executor. Every log record of the run carries a fresh run_id.
func (a *App) RunPipeline(ctx context.Context, opts RunOptions) error {
	logger := a.logger.With("run_id", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)

	model, err := pipeline.Load(ctx, opts.Path)
	if err != nil {
		return fmt.Errorf("loading pipeline: %w", err)
	}

	settings := model.Settings
	if opts.Workers > 0 {
		settings.Workers = opts.Workers
	}
	if opts.Walltime > 0 {
		settings.Walltime = opts.Walltime
	}

	if settings.Workspace != "" {
		if err := os.MkdirAll(settings.Workspace, 0o755); err != nil {
			return fmt.Errorf("creating workspace: %w", err)
		}
	}

	// The walltime covers the whole run, graph construction included,
	// like the scheduler limit it replaces.
	if settings.Walltime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Walltime)
		defer cancel()
	}

	graph, err := dag.Build(ctx, model, a.registry)
	if err != nil {
		return fmt.Errorf("building dependency graph: %w", err)
	}
	if len(graph.Nodes) == 0 {
		logger.Warn("Pipeline has no steps, nothing to run.")
		return nil
	}

	logger.Info("🚀 Starting pipeline run.",
		"pipeline", settings.Name,
		"steps", len(graph.Nodes),
		"workspace", settings.Workspace)
	exec := executor.New(graph, a.registry, registry.Env{Workspace: settings.Workspace}, settings.Workers)
	if err := exec.Run(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("walltime %s exceeded: %w", settings.Walltime, err)
		}
		return err
	}
	logger.Info("🏁 Pipeline run finished.")
	return nil
}
