// Package sheet loads card sheet images and draws grid previews.
//
// Supported inputs are PNG, JPEG, BMP, GIF, TIFF and WebP. JPEG and TIFF
// files are rotated according to their EXIF orientation so the grid is
// applied to the image the way it is displayed.
package sheet

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
)

// Sheet is a decoded sheet image.
type Sheet struct {
	Path   string      `json:"path,omitempty"`
	Format string      `json:"format"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Image  image.Image `json:"-"`
}

// Load decodes the image at path.
func Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, sserrors.New(sserrors.ErrCodeFileNotFound, "sheet not found: %s", path)
	}
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "read sheet %s", path)
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	s.Path = path
	return s, nil
}

// Decode reads a sheet from r.
func Decode(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidInput, err, "read sheet")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "unrecognized image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "decode %s", format)
	}
	b := img.Bounds()
	return &Sheet{Format: format, Width: b.Dx(), Height: b.Dy(), Image: img}, nil
}

// Layout computes the grid of the sheet.
func (s *Sheet) Layout(spec grid.Spec) (grid.Layout, error) {
	return grid.NewLayout(s.Width, s.Height, spec)
}

// LineColor is the color of preview grid lines.
var LineColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Preview returns a copy of the sheet scaled to at most maxWidth pixels
// wide, with the grid cut lines drawn one pixel thick. A maxWidth of 0
// keeps the original size.
func (s *Sheet) Preview(spec grid.Spec, maxWidth int) (*image.NRGBA, error) {
	xs, ys, err := grid.Lines(s.Width, s.Height, spec)
	if err != nil {
		return nil, err
	}

	img := imaging.Clone(s.Image)
	scale := 1.0
	if maxWidth > 0 && s.Width > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
		scale = float64(maxWidth) / float64(s.Width)
	}

	b := img.Bounds()
	for _, x := range xs {
		px := int(float64(x) * scale)
		for y := 0; y < b.Dy(); y++ {
			img.SetNRGBA(px, y, LineColor)
		}
	}
	for _, y := range ys {
		py := int(float64(y) * scale)
		for x := 0; x < b.Dx(); x++ {
			img.SetNRGBA(x, py, LineColor)
		}
	}
	return img, nil
}
