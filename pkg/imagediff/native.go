package imagediff

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
)

// diffGain is the per-channel amplification applied to diff visualizations
// so single-value deltas become visible.
const diffGain = 10

// Native compares images with a pure-Go pixel scan. The count matches the
// AE metric: a pixel differs when any of R, G or B differs; alpha is
// excluded like ImageMagick's default channel set.
type Native struct{}

// Name returns the backend name.
func (n *Native) Name() string { return BackendNative }

// Compare decodes both images and counts differing pixels.
func (n *Native) Compare(actual, expected string, opts Options) (*Result, error) {
	actualImg, err := loadRGBA(actual)
	if err != nil {
		return nil, err
	}
	expectedImg, err := loadRGBA(expected)
	if err != nil {
		return nil, err
	}

	ab := actualImg.Bounds()
	eb := expectedImg.Bounds()
	if ab.Dx() != eb.Dx() || ab.Dy() != eb.Dy() {
		return nil, &DimensionMismatchError{
			ActualWidth:    ab.Dx(),
			ActualHeight:   ab.Dy(),
			ExpectedWidth:  eb.Dx(),
			ExpectedHeight: eb.Dy(),
		}
	}

	pixelDiff := countDifferingPixels(actualImg, expectedImg)

	res := &Result{
		PixelDiff: pixelDiff,
		IsMatch:   pixelDiff <= opts.Threshold,
	}

	if opts.DiffOutput != "" && pixelDiff > 0 {
		if err := renderDiff(expectedImg, actualImg, opts); err != nil {
			return nil, err
		}
		res.DiffImage = opts.DiffOutput
	}

	return res, nil
}

// loadRGBA decodes a PNG and normalizes it into RGBA with a zero origin.
func loadRGBA(path string) (*image.RGBA, error) {
	f, err := os.Open(path) //#nosec G304 -- path comes from test configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst, nil
}

func countDifferingPixels(a, b *image.RGBA) int {
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()

	count := 0
	for y := 0; y < h; y++ {
		ao := y * a.Stride
		bo := y * b.Stride
		for x := 0; x < w; x++ {
			ai := ao + x*4
			bi := bo + x*4
			if a.Pix[ai] != b.Pix[bi] || a.Pix[ai+1] != b.Pix[bi+1] || a.Pix[ai+2] != b.Pix[bi+2] {
				count++
			}
		}
	}
	return count
}

// renderDiff writes the visualization for a mismatch: the amplified diff
// alone, or the three-panel composite when SideBySide is set.
func renderDiff(reference, actual *image.RGBA, opts Options) error {
	diff := amplifiedDiff(actual, reference)
	if opts.SideBySide {
		return writeSideBySide(reference, actual, diff, opts.DiffOutput)
	}
	return savePNG(diff, opts.DiffOutput)
}

// renderVisualization re-reads the image pair from disk; used when the
// count came from another backend.
func renderVisualization(actual, expected string, opts Options) error {
	actualImg, err := loadRGBA(actual)
	if err != nil {
		return err
	}
	expectedImg, err := loadRGBA(expected)
	if err != nil {
		return err
	}
	return renderDiff(expectedImg, actualImg, opts)
}

// amplifiedDiff renders per-channel absolute differences scaled by diffGain
// and clipped to 255. Matching regions stay black.
func amplifiedDiff(a, b *image.RGBA) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	for i := 0; i < len(a.Pix); i += 4 {
		out.Pix[i] = amplify(a.Pix[i], b.Pix[i])
		out.Pix[i+1] = amplify(a.Pix[i+1], b.Pix[i+1])
		out.Pix[i+2] = amplify(a.Pix[i+2], b.Pix[i+2])
		out.Pix[i+3] = 255
	}
	return out
}

func amplify(x, y uint8) uint8 {
	d := int(x) - int(y)
	if d < 0 {
		d = -d
	}
	d *= diffGain
	if d > 255 {
		d = 255
	}
	return uint8(d)
}

func savePNG(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create diff directory: %w", err)
		}
	}

	f, err := os.Create(path) //#nosec G304 -- path comes from test configuration
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
