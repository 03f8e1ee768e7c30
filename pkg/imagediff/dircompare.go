package imagediff

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Directory comparison statuses.
const (
	StatusIdentical = "identical"
	StatusDifferent = "different"
	StatusMissing   = "missing"
	StatusNew       = "new"
	StatusError     = "error"
)

// DirEntry is the outcome for one screenshot name in a directory comparison.
type DirEntry struct {
	Test        string  `json:"test"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	PixelDiff   int     `json:"pixelDiff,omitempty"`
	DiffPercent float64 `json:"diffPercent,omitempty"`
	DiffImage   string  `json:"diffImage,omitempty"` // relative to DirOptions.OutputDir
}

// DirSummary aggregates a baseline-vs-current directory comparison.
type DirSummary struct {
	Baseline  string     `json:"baseline"`
	Current   string     `json:"current"`
	Total     int        `json:"total"`
	Identical int        `json:"identical"`
	Different int        `json:"different"`
	Missing   int        `json:"missing"`
	New       int        `json:"new"`
	Errors    int        `json:"errors"`
	Results   []DirEntry `json:"results"`
}

// Clean reports whether the comparison found no regressions. Only
// differences and missing screenshots count against a run; new files and
// unreadable pairs are surfaced in the summary without failing it.
func (s *DirSummary) Clean() bool {
	return s.Different == 0 && s.Missing == 0
}

// DirOptions control CompareDirs.
type DirOptions struct {
	// OutputDir receives diff visualizations under a diffs subdirectory.
	OutputDir string
	// Threshold is the per-pair differing-pixel count that still matches,
	// 0 for exact.
	Threshold int
	// Backend picks the pairwise comparison implementation.
	Backend string
}

// CompareDirs compares every *.png in baselineDir against the file of the
// same name in currentDir. Names present on only one side are reported as
// missing or new rather than compared.
func CompareDirs(baselineDir, currentDir string, opts DirOptions) (*DirSummary, error) {
	if _, err := os.Stat(baselineDir); err != nil {
		return nil, fmt.Errorf("baseline directory not found: %s", baselineDir)
	}
	if _, err := os.Stat(currentDir); err != nil {
		return nil, fmt.Errorf("current directory not found: %s", currentDir)
	}

	baseline, err := listPNGs(baselineDir)
	if err != nil {
		return nil, err
	}
	current, err := listPNGs(currentDir)
	if err != nil {
		return nil, err
	}

	sum := &DirSummary{Baseline: baselineDir, Current: currentDir}

	for _, name := range onlyIn(baseline, current) {
		sum.Results = append(sum.Results, DirEntry{
			Test:    testID(name),
			Status:  StatusMissing,
			Message: "screenshot missing in current run",
		})
	}
	for _, name := range onlyIn(current, baseline) {
		sum.Results = append(sum.Results, DirEntry{
			Test:    testID(name),
			Status:  StatusNew,
			Message: "new screenshot in current run",
		})
	}
	for _, name := range common(baseline, current) {
		sum.Results = append(sum.Results, comparePair(baselineDir, currentDir, name, opts))
	}

	for _, r := range sum.Results {
		switch r.Status {
		case StatusIdentical:
			sum.Identical++
		case StatusDifferent:
			sum.Different++
		case StatusMissing:
			sum.Missing++
		case StatusNew:
			sum.New++
		case StatusError:
			sum.Errors++
		}
	}
	sum.Total = len(sum.Results)
	return sum, nil
}

// comparePair runs one pairwise comparison. Dimension mismatches count as
// a difference, not an error: the screens genuinely do not match.
func comparePair(baselineDir, currentDir, name string, opts DirOptions) DirEntry {
	entry := DirEntry{Test: testID(name)}
	baselinePath := filepath.Join(baselineDir, name)
	currentPath := filepath.Join(currentDir, name)
	diffRel := filepath.Join("diffs", entry.Test+"_diff.png")

	res, err := Compare(currentPath, baselinePath, Options{
		Threshold:  opts.Threshold,
		DiffOutput: filepath.Join(opts.OutputDir, diffRel),
		SideBySide: true,
		Backend:    opts.Backend,
	})
	if err != nil {
		var dim *DimensionMismatchError
		if errors.As(err, &dim) {
			entry.Status = StatusDifferent
			entry.Message = dim.Error()
			return entry
		}
		entry.Status = StatusError
		entry.Message = fmt.Sprintf("comparison failed: %v", err)
		return entry
	}

	entry.PixelDiff = res.PixelDiff
	if res.PixelDiff == 0 {
		entry.Status = StatusIdentical
		entry.Message = "screenshots are identical"
		return entry
	}

	if w, h := pngSize(currentPath); w > 0 && h > 0 {
		entry.DiffPercent = float64(res.PixelDiff) / float64(w*h) * 100
	}
	if res.DiffImage != "" {
		entry.DiffImage = diffRel
	}
	if res.IsMatch {
		entry.Status = StatusIdentical
		entry.Message = fmt.Sprintf("%d differing pixels within threshold", res.PixelDiff)
		return entry
	}
	entry.Status = StatusDifferent
	entry.Message = fmt.Sprintf("%.2f%% of pixels differ (%d pixels)", entry.DiffPercent, res.PixelDiff)
	return entry
}

// listPNGs returns the base names of all *.png files in dir, sorted.
func listPNGs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names, nil
}

// onlyIn returns the names from a that are absent from b, keeping order.
func onlyIn(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, n := range b {
		inB[n] = true
	}
	var out []string
	for _, n := range a {
		if !inB[n] {
			out = append(out, n)
		}
	}
	return out
}

// common returns the names present in both a and b, keeping a's order.
func common(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, n := range b {
		inB[n] = true
	}
	var out []string
	for _, n := range a {
		if inB[n] {
			out = append(out, n)
		}
	}
	return out
}

func testID(name string) string {
	return strings.TrimSuffix(name, ".png")
}
