package imagediff

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const magickCompareBinary = "compare"

// compareExecutor runs the compare binary; tests stub it out.
type compareExecutor interface {
	execute(args ...string) (stderr string, exitCode int, err error)
}

type magickExecutor struct{}

func (magickExecutor) execute(args ...string) (string, int, error) {
	cmd := exec.Command(magickCompareBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stderr.String(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stderr.String(), exitErr.ExitCode(), nil
	}
	return stderr.String(), -1, err
}

// Magick shells out to ImageMagick's compare. The AE metric goes to stderr;
// exit 0 means identical, 1 means different, 2 means the tool failed.
type Magick struct {
	exec compareExecutor
}

// NewMagick creates the ImageMagick-backed comparator.
func NewMagick() *Magick {
	return &Magick{exec: magickExecutor{}}
}

// Name returns the backend name.
func (m *Magick) Name() string { return BackendMagick }

// Available reports whether the compare binary responds.
func (m *Magick) Available() bool {
	_, code, err := m.exec.execute("-version")
	return err == nil && code == 0
}

// Compare runs compare -metric AE. Without SideBySide the mismatch
// visualization is ImageMagick's own; with it the panels are rendered
// natively from the pair after counting.
func (m *Magick) Compare(actual, expected string, opts Options) (*Result, error) {
	diffTarget := "null:"
	ownDiff := opts.DiffOutput != "" && !opts.SideBySide
	if ownDiff {
		if dir := filepath.Dir(opts.DiffOutput); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create diff directory: %w", err)
			}
		}
		diffTarget = opts.DiffOutput
	}

	stderr, code, err := m.exec.execute("-metric", "AE", actual, expected, diffTarget)
	if err != nil {
		return nil, fmt.Errorf("imagemagick compare failed to run: %w", err)
	}
	if code < 0 || code >= 2 {
		if strings.Contains(stderr, "widths or heights differ") {
			return nil, dimensionMismatchFromFiles(actual, expected)
		}
		return nil, fmt.Errorf("imagemagick compare failed: %s", strings.TrimSpace(stderr))
	}

	pixelDiff, err := parseAECount(stderr)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PixelDiff: pixelDiff,
		IsMatch:   pixelDiff <= opts.Threshold,
	}

	if opts.DiffOutput != "" && pixelDiff > 0 {
		if opts.SideBySide {
			if err := renderVisualization(actual, expected, opts); err != nil {
				return nil, err
			}
		}
		res.DiffImage = opts.DiffOutput
	}
	if ownDiff && pixelDiff == 0 {
		// compare writes a visualization even for identical images
		_ = os.Remove(opts.DiffOutput)
	}

	return res, nil
}

// parseAECount reads the pixel count from compare's stderr. HDRI builds
// print scientific notation for large counts.
func parseAECount(s string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, fmt.Errorf("failed to parse diff count from compare output: %q", s)
	}
	raw := fields[0]
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("failed to parse diff count from compare output: %q", s)
}

// dimensionMismatchFromFiles recovers both image sizes for the error after
// compare already refused the pair.
func dimensionMismatchFromFiles(actual, expected string) error {
	aw, ah := pngSize(actual)
	ew, eh := pngSize(expected)
	return &DimensionMismatchError{
		ActualWidth:    aw,
		ActualHeight:   ah,
		ExpectedWidth:  ew,
		ExpectedHeight: eh,
	}
}

func pngSize(path string) (int, int) {
	f, err := os.Open(path) //#nosec G304 -- path comes from test configuration
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
