package imagediff

import (
	"image"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// labelFontPaths are tried in order for panel labels. When none load, gg's
// built-in bitmap face still renders small but legible text.
var labelFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

const labelFontSize = 20

// writeSideBySide composes reference, actual and amplified-diff panels left
// to right with red labels, and writes the result to out.
func writeSideBySide(reference, actual, diff image.Image, out string) error {
	w := reference.Bounds().Dx()
	h := reference.Bounds().Dy()

	dc := gg.NewContext(3*w, h)
	dc.SetRGB255(0, 0, 0)
	dc.Clear()
	dc.DrawImage(reference, 0, 0)
	dc.DrawImage(actual, w, 0)
	dc.DrawImage(diff, 2*w, 0)

	loadLabelFont(dc)
	dc.SetRGB255(255, 0, 0)
	dc.DrawString("Baseline", 10, 30)
	dc.DrawString("Current", float64(w)+10, 30)
	dc.DrawString("Difference (10x)", float64(2*w)+10, 30)

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return dc.SavePNG(out)
}

func loadLabelFont(dc *gg.Context) {
	for _, path := range labelFontPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := dc.LoadFontFace(path, labelFontSize); err == nil {
			return
		}
	}
}
