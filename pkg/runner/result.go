package runner

import (
	"time"

	"github.com/devicelab-dev/pixelrunner/pkg/imagediff"
	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

// Result captures the complete outcome of executing a single test case.
type Result struct {
	// Identity
	Test        *scenario.TestCase `json:"-"` // Reference to the case definition
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`

	// Status
	Status Status    `json:"status"`
	Kind   ErrorKind `json:"errorKind,omitempty"` // Set only for error results

	// Artifacts
	Screenshot string `json:"screenshot,omitempty"` // Captured screen, relative to the output dir layout
	Reference  string `json:"reference,omitempty"`  // Expected image the capture was compared against

	// Comparison outcome, nil when no reference image exists on disk
	Comparison *imagediff.Result `json:"comparison,omitempty"`

	// Output
	Message string `json:"message,omitempty"` // Human-readable explanation
	Error   string `json:"error,omitempty"`   // Technical error message

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// Summary captures the complete outcome of a test run.
type Summary struct {
	// Identity
	RunID string `json:"runId"` // Unique execution ID

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Summary counts. Total is the number of scheduled tests and can
	// exceed len(Results) when the run stops early.
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`

	// Results
	Results []Result `json:"results"`
}

// ComputeCounts recalculates pass/fail/error tallies from the Results slice.
func (s *Summary) ComputeCounts() {
	s.Passed = 0
	s.Failed = 0
	s.Errors = 0

	for _, r := range s.Results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusError:
			s.Errors++
		}
	}
}

// SuccessRate returns the fraction of scheduled tests that passed, 0.0 to 1.0.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0.0
	}
	return float64(s.Passed) / float64(s.Total)
}

// Success returns true if the run had no failures and no errors.
func (s *Summary) Success() bool {
	return s.Failed == 0 && s.Errors == 0
}
