package slamnav

import (
	"fmt"
	"io"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// WriteMapImagePGM writes a rasterized map image as binary PGM (P5), the
// format most occupancy grid tooling reads directly.
func WriteMapImagePGM(w io.Writer, img types.MapImageData) error {
	if img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("map image has zero dimension %dx%d", img.Width, img.Height)
	}
	want := int(img.Width) * int(img.Height)
	if len(img.Image) != want {
		return fmt.Errorf("map image has %d bytes, want %d for %dx%d",
			len(img.Image), want, img.Width, img.Height)
	}
	maxGray := img.MaxGrayValue
	if maxGray == 0 || maxGray > 255 {
		maxGray = 255
	}

	if _, err := fmt.Fprintf(w, "P5\n%d %d\n%d\n", img.Width, img.Height, maxGray); err != nil {
		return fmt.Errorf("write pgm header: %w", err)
	}
	if _, err := w.Write(img.Image); err != nil {
		return fmt.Errorf("write pgm pixels: %w", err)
	}
	return nil
}
