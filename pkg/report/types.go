// Package report persists run artifacts: a machine-readable run.json, a
// self-contained report.html rendering, directory comparison documents,
// and an optional Allure export.
//
// Layout under the output directory:
//   - run.json: run document (summary plus per-test outcomes)
//   - report.html: single-file HTML rendering of run.json
//   - screenshots/: captured screens, written by the runner
//   - diffs/: difference visualizations, written by the comparator
//   - allure-results/: Allure-compatible export, written on request
package report

import (
	"time"

	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

// Version is the run document schema version.
const Version = "1.0.0"

// Run is the on-disk run.json document.
type Run struct {
	Version   string    `json:"version"`
	RunID     string    `json:"runId"`
	Device    Device    `json:"device"`
	App       App       `json:"app"`
	Threshold int       `json:"threshold"`
	Backend   string    `json:"backend,omitempty"`
	StartTime time.Time `json:"startTime"`
	Duration  int64     `json:"duration"` // milliseconds
	Summary   Summary   `json:"summary"`
	Tests     []Test    `json:"tests"`
}

// Device identifies the device a run used.
type Device struct {
	Serial string `json:"serial,omitempty"`
	Model  string `json:"model,omitempty"`
}

// App identifies the application under test.
type App struct {
	Package  string `json:"package"`
	Activity string `json:"activity,omitempty"`
}

// Summary contains aggregated counts. Total counts scheduled tests and can
// exceed len(Tests) when a run stopped early.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// Test is one per-test entry. Artifact paths are stored relative to the
// report directory when the artifact lives inside it, so a moved or
// archived output directory keeps working.
type Test struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      runner.Status `json:"status"`
	ErrorKind   string        `json:"errorKind,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
	Reference   string        `json:"reference,omitempty"`
	DiffImage   string        `json:"diffImage,omitempty"`
	PixelDiff   *int          `json:"pixelDiff,omitempty"` // nil when no comparison ran
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartTime   time.Time     `json:"startTime"`
	Duration    int64         `json:"duration"` // milliseconds
}
