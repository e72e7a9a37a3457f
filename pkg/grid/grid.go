// Package grid maps a sheet image and a column/row count to tile rectangles.
//
// The mapping is pure and deterministic. Tile width is floor(width/columns),
// tile height is floor(height/rows); the last column and the last row absorb
// the pixel remainder, so the tiles always cover the whole image:
//
//	tiles, err := grid.ComputeTiles(1024, 700, grid.Spec{Columns: 10, Rows: 7})
//	// tiles[0].Rect  == {0, 0, 102, 100}
//	// tiles[9].Rect  == {918, 0, 106, 100}
//
// Tiles are ordered row-major (row 0 left to right, then row 1, ...). Name
// storage and export index tiles by this same order.
package grid

import (
	"fmt"
	"image"

	"github.com/matzehuels/sheetslicer/pkg/errors"
)

// Spec is the number of columns and rows a sheet is cut into.
type Spec struct {
	Columns int `json:"columns" toml:"columns"`
	Rows    int `json:"rows" toml:"rows"`
}

// Count returns the number of tiles the spec produces.
func (s Spec) Count() int { return s.Columns * s.Rows }

// Validate checks that both dimensions are at least 1.
func (s Spec) Validate() error {
	if s.Columns < 1 {
		return errors.InvalidGrid("columns must be >= 1, got %d", s.Columns)
	}
	if s.Rows < 1 {
		return errors.InvalidGrid("rows must be >= 1, got %d", s.Rows)
	}
	return nil
}

// Contains reports whether idx addresses a tile of this spec.
func (s Spec) Contains(idx Index) bool {
	return idx.Row >= 0 && idx.Col >= 0 && idx.Row < s.Rows && idx.Col < s.Columns
}

// String formats the spec as "COLSxROWS".
func (s Spec) String() string { return fmt.Sprintf("%dx%d", s.Columns, s.Rows) }

// Index addresses a tile by zero-based row and column.
type Index struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Linear returns the row-major position of idx in a grid with the given column count.
func (i Index) Linear(columns int) int { return i.Row*columns + i.Col }

// IndexOf converts a row-major position back into an Index.
func IndexOf(linear, columns int) Index {
	return Index{Row: linear / columns, Col: linear % columns}
}

// Less orders indices row-major.
func (i Index) Less(o Index) bool {
	if i.Row != o.Row {
		return i.Row < o.Row
	}
	return i.Col < o.Col
}

func (i Index) String() string { return fmt.Sprintf("r%dc%d", i.Row, i.Col) }

// Rect is a tile rectangle in source-image pixel coordinates, relative to
// the image origin.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns W*H.
func (r Rect) Area() int { return r.W * r.H }

// Contains reports whether pt lies inside the rectangle.
func (r Rect) Contains(pt image.Point) bool {
	return pt.X >= r.X && pt.X < r.X+r.W && pt.Y >= r.Y && pt.Y < r.Y+r.H
}

// Image converts r to an image.Rectangle offset by origin (the Min point of
// the source image bounds).
func (r Rect) Image(origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H).Add(origin)
}

// Tile is one cell of the sliced grid.
type Tile struct {
	Index Index `json:"index"`
	Rect  Rect  `json:"rect"`
}

// ComputeTiles cuts a width×height image into spec.Columns×spec.Rows tiles.
//
// It fails with an INVALID_GRID error when a dimension is below 1 or when
// the image is smaller than the grid (a tile dimension would be 0).
func ComputeTiles(width, height int, spec Spec) ([]Tile, error) {
	tw, th, err := tileSize(width, height, spec)
	if err != nil {
		return nil, err
	}

	tiles := make([]Tile, 0, spec.Count())
	for row := 0; row < spec.Rows; row++ {
		y, h := span(row, spec.Rows, th, height)
		for col := 0; col < spec.Columns; col++ {
			x, w := span(col, spec.Columns, tw, width)
			tiles = append(tiles, Tile{
				Index: Index{Row: row, Col: col},
				Rect:  Rect{X: x, Y: y, W: w, H: h},
			})
		}
	}
	return tiles, nil
}

// TileAt returns the tile containing pt, or false if pt is outside the image
// or the grid is invalid.
func TileAt(width, height int, spec Spec, pt image.Point) (Index, bool) {
	tw, th, err := tileSize(width, height, spec)
	if err != nil || pt.X < 0 || pt.Y < 0 || pt.X >= width || pt.Y >= height {
		return Index{}, false
	}
	return Index{
		Row: min(pt.Y/th, spec.Rows-1),
		Col: min(pt.X/tw, spec.Columns-1),
	}, true
}

// Lines returns the interior cut positions of the grid: x offsets of the
// vertical cuts and y offsets of the horizontal cuts. A preview overlay
// draws exactly these lines.
func Lines(width, height int, spec Spec) (xs, ys []int, err error) {
	tw, th, err := tileSize(width, height, spec)
	if err != nil {
		return nil, nil, err
	}
	for col := 1; col < spec.Columns; col++ {
		xs = append(xs, col*tw)
	}
	for row := 1; row < spec.Rows; row++ {
		ys = append(ys, row*th)
	}
	return xs, ys, nil
}

func tileSize(width, height int, spec Spec) (int, int, error) {
	if err := spec.Validate(); err != nil {
		return 0, 0, err
	}
	tw, th := width/spec.Columns, height/spec.Rows
	if tw == 0 || th == 0 {
		return 0, 0, errors.InvalidGrid("image %dx%d is too small for a %s grid", width, height, spec)
	}
	return tw, th, nil
}

// span returns the offset and length of cell i out of n cells of size unit
// along an axis of the given total length. The last cell takes the remainder.
func span(i, n, unit, total int) (int, int) {
	off := i * unit
	if i == n-1 {
		return off, total - off
	}
	return off, unit
}
