package report

import (
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

// BuilderConfig carries run metadata the runner summary does not know.
type BuilderConfig struct {
	OutputDir string // report directory, used to relativize artifact paths
	Device    Device
	App       App
	Threshold int
	Backend   string
}

// Build converts a runner summary into the run document written to disk.
func Build(summary *runner.Summary, cfg BuilderConfig) *Run {
	run := &Run{
		Version:   Version,
		RunID:     summary.RunID,
		Device:    cfg.Device,
		App:       cfg.App,
		Threshold: cfg.Threshold,
		Backend:   cfg.Backend,
		StartTime: summary.StartTime,
		Duration:  summary.Duration.Milliseconds(),
		Summary: Summary{
			Total:  summary.Total,
			Passed: summary.Passed,
			Failed: summary.Failed,
			Errors: summary.Errors,
		},
		Tests: make([]Test, len(summary.Results)),
	}

	for i, res := range summary.Results {
		test := Test{
			Name:        res.Name,
			Description: res.Description,
			Status:      res.Status,
			ErrorKind:   string(res.Kind),
			Screenshot:  relativize(cfg.OutputDir, res.Screenshot),
			Reference:   res.Reference,
			Message:     res.Message,
			Error:       res.Error,
			StartTime:   res.StartTime,
			Duration:    res.Duration.Milliseconds(),
		}
		if res.Comparison != nil {
			pd := res.Comparison.PixelDiff
			test.PixelDiff = &pd
			test.DiffImage = relativize(cfg.OutputDir, res.Comparison.DiffImage)
		}
		run.Tests[i] = test
	}
	return run
}

// relativize rewrites path relative to dir when it points inside it.
// Reference images live outside the output directory and stay as given.
func relativize(dir, path string) string {
	if dir == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
