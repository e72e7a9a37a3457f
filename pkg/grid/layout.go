package grid

import "image"

// Layout is a computed grid for one image. It is a value: recompute it with
// NewLayout whenever the image or the spec changes.
type Layout struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Spec   Spec   `json:"spec"`
	Tiles  []Tile `json:"tiles"`
}

// NewLayout computes the tiles of a width×height image.
func NewLayout(width, height int, spec Spec) (Layout, error) {
	tiles, err := ComputeTiles(width, height, spec)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Width: width, Height: height, Spec: spec, Tiles: tiles}, nil
}

// ForImage computes the layout of img using its bounds.
func ForImage(img image.Image, spec Spec) (Layout, error) {
	b := img.Bounds()
	return NewLayout(b.Dx(), b.Dy(), spec)
}

// Count returns the number of tiles.
func (l Layout) Count() int { return len(l.Tiles) }

// At returns the tile at idx.
func (l Layout) At(idx Index) (Tile, bool) {
	if !l.Spec.Contains(idx) || len(l.Tiles) == 0 {
		return Tile{}, false
	}
	return l.Tiles[idx.Linear(l.Spec.Columns)], true
}

// Hit returns the tile under pt.
func (l Layout) Hit(pt image.Point) (Index, bool) {
	return TileAt(l.Width, l.Height, l.Spec, pt)
}
