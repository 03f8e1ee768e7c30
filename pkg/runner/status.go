package runner

// Status is the final outcome of a single test case.
type Status string

// Status values.
const (
	// StatusPassed means the screenshot matched the reference, or no
	// reference exists yet.
	StatusPassed Status = "passed"
	// StatusFailed means the screenshot differed from the reference by
	// more than the configured threshold.
	StatusFailed Status = "failed"
	// StatusError means the test could not run to a comparison: launch,
	// input, capture or the comparison itself broke.
	StatusError Status = "error"
)

// Label returns the uppercase form used in terminal output.
func (s Status) Label() string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
