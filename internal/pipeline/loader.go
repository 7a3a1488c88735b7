package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/fsutil"
)

// fileModel is the gohcl decode target for one pipeline file.
type fileModel struct {
	Services []*Service `hcl:"service,block"`
	Steps    []*Step    `hcl:"step,block"`
}

// Loader parses pipeline files into the unified model.
type Loader struct{}

// NewLoader returns a pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .hcl file at path (a file or a directory walked
// recursively), evaluates expressions against evalCtx, merges the blocks
// in file order, and validates the result.
func (l *Loader) Load(ctx context.Context, path string, evalCtx *hcl.EvalContext) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("searching for pipeline files: %w", err)
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found at %q", path)
	}
	logger.Debug("Found pipeline files to load.", "files", filePaths)

	parser := hclparse.NewParser()
	merged := &Pipeline{}
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", filePath, diags)
		}

		var model fileModel
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &model); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", filePath, diags)
		}

		merged.Services = append(merged.Services, model.Services...)
		merged.Steps = append(merged.Steps, model.Steps...)
		logger.Debug("Loaded pipeline file.", "file", filePath)
	}

	if err := validate(merged); err != nil {
		return nil, err
	}
	logger.Info("Pipeline loaded.", "services", len(merged.Services), "steps", len(merged.Steps))
	return merged, nil
}

// validate enforces the structural rules gohcl cannot express.
func validate(p *Pipeline) error {
	serviceNames := make(map[string]struct{}, len(p.Services))
	for _, svc := range p.Services {
		if _, dup := serviceNames[svc.Name]; dup {
			return fmt.Errorf("duplicate service %q", svc.Name)
		}
		serviceNames[svc.Name] = struct{}{}
		if svc.Image == "" {
			return fmt.Errorf("service %q has an empty image", svc.Name)
		}
	}

	stepNames := make(map[string]struct{}, len(p.Steps))
	for _, step := range p.Steps {
		if _, dup := stepNames[step.Name]; dup {
			return fmt.Errorf("duplicate step %q", step.Name)
		}
		stepNames[step.Name] = struct{}{}
		if step.Runner == "" {
			return fmt.Errorf("step %q does not name a runner", step.Name)
		}
		if step.Retries != nil && *step.Retries < 0 {
			return fmt.Errorf("step %q has a negative retry budget", step.Name)
		}
		if step.DelaySeconds != nil && *step.DelaySeconds < 0 {
			return fmt.Errorf("step %q has a negative retry delay", step.Name)
		}
	}
	return nil
}
