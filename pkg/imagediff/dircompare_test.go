package imagediff

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func nativeDirOptions(out string) DirOptions {
	return DirOptions{OutputDir: out, Backend: BackendNative}
}

func TestCompareDirs_MixedStatuses(t *testing.T) {
	baseline := t.TempDir()
	current := t.TempDir()
	out := t.TempDir()

	writeTestPNG(t, filepath.Join(baseline, "a.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(current, "a.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(baseline, "b.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(current, "b.png"), 8, 8, func(img *image.RGBA) {
		setPixel(img, 0, 0, 255, 0, 0, 255)
		setPixel(img, 1, 0, 255, 0, 0, 255)
		setPixel(img, 2, 0, 255, 0, 0, 255)
	})
	writeTestPNG(t, filepath.Join(baseline, "c.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(current, "d.png"), 8, 8, nil)

	sum, err := CompareDirs(baseline, current, nativeDirOptions(out))
	if err != nil {
		t.Fatalf("CompareDirs() error = %v", err)
	}

	if sum.Total != 4 || sum.Identical != 1 || sum.Different != 1 || sum.Missing != 1 || sum.New != 1 {
		t.Fatalf("counts = %+v, want total 4, one of each status", sum)
	}
	if sum.Clean() {
		t.Error("Clean() = true with a difference and a missing screenshot")
	}

	var order []string
	for _, r := range sum.Results {
		order = append(order, r.Test+":"+r.Status)
	}
	want := []string{"c:missing", "d:new", "a:identical", "b:different"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("results order = %v, want %v", order, want)
		}
	}

	diff := sum.Results[3]
	if diff.PixelDiff != 3 {
		t.Errorf("PixelDiff = %d, want 3", diff.PixelDiff)
	}
	if diff.DiffPercent != 4.6875 {
		t.Errorf("DiffPercent = %v, want 4.6875", diff.DiffPercent)
	}
	if diff.Message != "4.69% of pixels differ (3 pixels)" {
		t.Errorf("Message = %q", diff.Message)
	}
	if diff.DiffImage != filepath.Join("diffs", "b_diff.png") {
		t.Errorf("DiffImage = %q", diff.DiffImage)
	}
	if _, err := os.Stat(filepath.Join(out, diff.DiffImage)); err != nil {
		t.Errorf("diff visualization not written: %v", err)
	}
}

func TestCompareDirs_AllIdentical(t *testing.T) {
	baseline := t.TempDir()
	current := t.TempDir()

	for _, name := range []string{"x.png", "y.png"} {
		writeTestPNG(t, filepath.Join(baseline, name), 6, 6, nil)
		writeTestPNG(t, filepath.Join(current, name), 6, 6, nil)
	}

	sum, err := CompareDirs(baseline, current, nativeDirOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("CompareDirs() error = %v", err)
	}
	if sum.Identical != 2 || sum.Total != 2 {
		t.Errorf("counts = %+v, want 2 identical", sum)
	}
	if !sum.Clean() {
		t.Error("Clean() = false for identical directories")
	}
	for _, r := range sum.Results {
		if r.Message != "screenshots are identical" {
			t.Errorf("Message = %q", r.Message)
		}
	}
}

func TestCompareDirs_WithinThreshold(t *testing.T) {
	baseline := t.TempDir()
	current := t.TempDir()

	writeTestPNG(t, filepath.Join(baseline, "a.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(current, "a.png"), 8, 8, func(img *image.RGBA) {
		setPixel(img, 0, 0, 255, 0, 0, 255)
	})

	opts := nativeDirOptions(t.TempDir())
	opts.Threshold = 5
	sum, err := CompareDirs(baseline, current, opts)
	if err != nil {
		t.Fatalf("CompareDirs() error = %v", err)
	}
	if sum.Identical != 1 || sum.Different != 0 {
		t.Fatalf("counts = %+v, want identical within threshold", sum)
	}
	if got := sum.Results[0].Message; got != "1 differing pixels within threshold" {
		t.Errorf("Message = %q", got)
	}
	if !sum.Clean() {
		t.Error("Clean() = false for a within-threshold match")
	}
}

func TestCompareDirs_DimensionMismatch(t *testing.T) {
	baseline := t.TempDir()
	current := t.TempDir()

	writeTestPNG(t, filepath.Join(baseline, "a.png"), 8, 8, nil)
	writeTestPNG(t, filepath.Join(current, "a.png"), 8, 10, nil)

	sum, err := CompareDirs(baseline, current, nativeDirOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("CompareDirs() error = %v", err)
	}
	if sum.Different != 1 {
		t.Fatalf("counts = %+v, want 1 different", sum)
	}
	if msg := sum.Results[0].Message; !strings.Contains(msg, "dimensions don't match") {
		t.Errorf("Message = %q, want a dimension mismatch", msg)
	}
	if sum.Clean() {
		t.Error("Clean() = true for a dimension mismatch")
	}
}

func TestCompareDirs_UnreadablePair(t *testing.T) {
	baseline := t.TempDir()
	current := t.TempDir()

	if err := os.WriteFile(filepath.Join(baseline, "a.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(current, "a.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := CompareDirs(baseline, current, nativeDirOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("CompareDirs() error = %v", err)
	}
	if sum.Errors != 1 {
		t.Fatalf("counts = %+v, want 1 error", sum)
	}
	if msg := sum.Results[0].Message; !strings.HasPrefix(msg, "comparison failed:") {
		t.Errorf("Message = %q", msg)
	}
	if !sum.Clean() {
		t.Error("Clean() = false: unreadable pairs are surfaced, not failed")
	}
}

func TestCompareDirs_MissingDirectories(t *testing.T) {
	dir := t.TempDir()

	if _, err := CompareDirs(filepath.Join(dir, "nope"), dir, DirOptions{}); err == nil {
		t.Error("expected error for missing baseline directory")
	}
	if _, err := CompareDirs(dir, filepath.Join(dir, "nope"), DirOptions{}); err == nil {
		t.Error("expected error for missing current directory")
	}
}
