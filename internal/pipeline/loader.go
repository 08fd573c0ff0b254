package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/Kaustubhraj123/hiperseis/internal/ctxlog"
	"github.com/Kaustubhraj123/hiperseis/internal/fsutil"
)

// hclPipelineFile is the top-level structure of one workflow file.
type hclPipelineFile struct {
	Pipeline *hclPipeline `hcl:"pipeline,block"`
	Steps    []*hclStep   `hcl:"step,block"`
}

type hclPipeline struct {
	Name      string `hcl:"name,optional"`
	Workspace string `hcl:"workspace,optional"`
	Workers   int    `hcl:"workers,optional"`
	Walltime  string `hcl:"walltime,optional"`
}

type hclStep struct {
	Kind      string       `hcl:"kind,label"`
	Name      string       `hcl:"name,label"`
	Arguments *hclStepArgs `hcl:"arguments,block"`
	DependsOn []string     `hcl:"depends_on,optional"`
}

// hclStepArgs keeps the arguments block's body raw, so attribute values can
// reference other steps' outputs without being evaluated at load time.
type hclStepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses a workflow file, or every .hcl file under a directory, into a
// single merged Model. At most one pipeline block may appear across all
// files, and step (kind, name) pairs must be unique.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("scanning pipeline directory: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no .hcl pipeline files found under %s", path)
		}
	}
	logger.Debug("Loading pipeline.", "path", path, "files", len(files))

	model := &Model{}
	parser := hclparse.NewParser()
	settingsFile := ""
	seen := make(map[string]string)

	for _, file := range files {
		parsed, err := parseFile(parser, file)
		if err != nil {
			return nil, err
		}

		if parsed.Pipeline != nil {
			if settingsFile != "" {
				return nil, fmt.Errorf("%s: duplicate pipeline block (already defined in %s)", file, settingsFile)
			}
			settingsFile = file
			model.Settings, err = translateSettings(parsed.Pipeline)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}

		for _, raw := range parsed.Steps {
			step, err := translateStep(raw, file)
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[step.ID()]; dup {
				return nil, fmt.Errorf("%s: duplicate step %q (already defined in %s)", file, step.ID(), prev)
			}
			seen[step.ID()] = file
			model.Steps = append(model.Steps, step)
		}
	}

	return model, nil
}

func parseFile(parser *hclparse.Parser, path string) (*hclPipelineFile, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var parsed hclPipelineFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}
	return &parsed, nil
}

func translateSettings(raw *hclPipeline) (Settings, error) {
	settings := Settings{
		Name:      raw.Name,
		Workspace: raw.Workspace,
		Workers:   raw.Workers,
	}
	if raw.Workers < 0 {
		return Settings{}, fmt.Errorf("workers must not be negative, got %d", raw.Workers)
	}
	if raw.Walltime != "" {
		d, err := time.ParseDuration(raw.Walltime)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid walltime %q: %w", raw.Walltime, err)
		}
		if d <= 0 {
			return Settings{}, fmt.Errorf("walltime %q must be positive", raw.Walltime)
		}
		settings.Walltime = d
	}
	return settings, nil
}

func translateStep(raw *hclStep, file string) (*Step, error) {
	step := &Step{
		Kind:      raw.Kind,
		Name:      raw.Name,
		Body:      hcl.EmptyBody(),
		DependsOn: raw.DependsOn,
		File:      file,
	}

	if raw.Arguments != nil && raw.Arguments.Body != nil {
		attrs, diags := raw.Arguments.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: step %q arguments: %w", file, step.ID(), diags)
		}
		step.Body = raw.Arguments.Body
		step.Args = make(map[string]hcl.Expression, len(attrs))
		for name, attr := range attrs {
			step.Args[name] = attr.Expr
		}
	}
	return step, nil
}
