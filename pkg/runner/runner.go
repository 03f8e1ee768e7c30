// Package runner executes visual regression test cases on a device and
// compares captured screenshots against reference images.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/pixelrunner/pkg/imagediff"
	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

// Defaults applied by New when the config leaves them zero.
const (
	DefaultOutputDir     = "test_output"
	DefaultLaunchSettle  = 2 * time.Second
	DefaultCaptureSettle = 500 * time.Millisecond
)

// DeviceController abstracts the device bridge the runner drives.
type DeviceController interface {
	CheckConnection() bool
	LaunchApp(settle time.Duration) error
	StopApp() error
	ExecuteAction(a scenario.Action) error
	CaptureScreenshot(localPath string) error
}

// Config configures a test run.
type Config struct {
	OutputDir     string        // Artifact root for screenshots and diffs
	Threshold     int           // Max differing pixels that still pass (0 = exact)
	StopOnFailure bool          // Stop the run on the first failure or error
	Backend       string        // Image comparison backend ("" = auto)
	LaunchSettle  time.Duration // Wait after launching the app
	CaptureSettle time.Duration // Wait after the last action before capturing

	// Live progress callbacks. Index is 1-based.
	OnTestStart  func(index, total int, tc *scenario.TestCase)
	OnTestResult func(index, total int, res Result)
}

// Runner executes test cases sequentially on a single device.
type Runner struct {
	config Config
	device DeviceController
	log    logrus.FieldLogger
}

// New creates a Runner, filling unset config fields with defaults.
func New(device DeviceController, cfg Config, log logrus.FieldLogger) *Runner {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.LaunchSettle <= 0 {
		cfg.LaunchSettle = DefaultLaunchSettle
	}
	if cfg.CaptureSettle <= 0 {
		cfg.CaptureSettle = DefaultCaptureSettle
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		config: cfg,
		device: device,
		log:    log.WithField("component", "runner"),
	}
}

// RunAll executes tests in order after verifying the device is reachable.
// When no device responds it returns the summary with Total zero along
// with ErrNoDevice: nothing was scheduled, nothing was attempted.
func (r *Runner) RunAll(tests []*scenario.TestCase) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}

	if !r.device.CheckConnection() {
		return summary, ErrNoDevice
	}
	summary.Total = len(tests)

	r.log.WithFields(logrus.Fields{
		"tests":     len(tests),
		"output":    r.config.OutputDir,
		"threshold": r.config.Threshold,
	}).Info("starting test run")

	for i, tc := range tests {
		if r.config.OnTestStart != nil {
			r.config.OnTestStart(i+1, len(tests), tc)
		}

		res := r.Run(tc)
		summary.Results = append(summary.Results, res)

		if r.config.OnTestResult != nil {
			r.config.OnTestResult(i+1, len(tests), res)
		}

		if r.config.StopOnFailure && res.Status != StatusPassed {
			r.log.WithField("test", tc.Name).Warn("stopping run on first failure")
			break
		}
	}

	summary.ComputeCounts()
	summary.Duration = time.Since(summary.StartTime)
	return summary, nil
}

// Run executes a single test case. Failures never surface as Go errors:
// every outcome is folded into the result status so a run can continue
// past a broken test.
func (r *Runner) Run(tc *scenario.TestCase) Result {
	start := time.Now()
	res := r.runTest(tc)
	res.StartTime = start
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) runTest(tc *scenario.TestCase) Result {
	res := Result{
		Test:        tc,
		Name:        tc.Name,
		Description: tc.Description,
		Reference:   tc.ReferenceImage,
	}

	if err := r.device.LaunchApp(r.config.LaunchSettle); err != nil {
		return r.errorResult(res, ErrLaunchFailed.WithCause(err))
	}

	for _, action := range tc.Actions {
		if err := r.device.ExecuteAction(action); err != nil {
			wrapped := ErrActionFailed.WithMessage("failed to execute action " + action.Describe()).WithCause(err)
			return r.errorResult(res, wrapped)
		}
	}

	// Give the final frame time to render before capturing.
	time.Sleep(r.config.CaptureSettle)

	res.Screenshot = filepath.Join(r.config.OutputDir, "screenshots", tc.Name+".actual.png")
	if err := r.device.CaptureScreenshot(res.Screenshot); err != nil {
		res.Screenshot = ""
		return r.errorResult(res, ErrCaptureFailed.WithCause(err))
	}

	if !referenceExists(tc.ReferenceImage) {
		res.Status = StatusPassed
		res.Message = "no reference image, treating capture as new baseline"
		r.log.WithFields(logrus.Fields{
			"test":       tc.Name,
			"screenshot": res.Screenshot,
		}).Warn("no reference image, passing by default")
		return res
	}

	diffPath := filepath.Join(r.config.OutputDir, "diffs", tc.Name+".diff.png")
	cmp, err := imagediff.Compare(res.Screenshot, tc.ReferenceImage, imagediff.Options{
		Threshold:  r.config.Threshold,
		DiffOutput: diffPath,
		Backend:    r.config.Backend,
	})
	if err != nil {
		return r.errorResult(res, ErrCompareFailed.WithCause(err))
	}

	res.Comparison = cmp
	if cmp.IsMatch {
		res.Status = StatusPassed
		return res
	}
	res.Status = StatusFailed
	res.Message = fmt.Sprintf("%d pixels differ from reference", cmp.PixelDiff)
	return res
}

// Cleanup force-stops the app. Errors are logged, not returned: cleanup
// runs after every run and must not mask the run outcome.
func (r *Runner) Cleanup() {
	if err := r.device.StopApp(); err != nil {
		r.log.WithError(err).Warn("failed to stop app during cleanup")
	}
}

// errorResult folds a structured error into the result.
func (r *Runner) errorResult(res Result, runErr *RunError) Result {
	res.Status = StatusError
	res.Kind = runErr.Kind
	res.Error = runErr.Error()
	r.log.WithField("test", res.Name).WithError(runErr).Error("test errored")
	return res
}

// referenceExists reports whether the test has a reference image on disk.
// A configured path whose file is missing counts as absent so new tests
// pass on their first capture.
func referenceExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
