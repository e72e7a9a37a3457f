package grid

import (
	"image"
	"testing"

	"github.com/matzehuels/sheetslicer/pkg/errors"
)

func TestComputeTiles_DeckSheet(t *testing.T) {
	tiles, err := ComputeTiles(1024, 700, Spec{Columns: 10, Rows: 7})
	if err != nil {
		t.Fatalf("ComputeTiles() failed: %v", err)
	}
	if len(tiles) != 70 {
		t.Fatalf("got %d tiles, want 70", len(tiles))
	}

	for _, tile := range tiles {
		wantW := 102
		if tile.Index.Col == 9 {
			wantW = 1024 - 9*102
		}
		if tile.Rect.W != wantW {
			t.Errorf("tile %v width = %d, want %d", tile.Index, tile.Rect.W, wantW)
		}
		if tile.Rect.H != 100 {
			t.Errorf("tile %v height = %d, want 100", tile.Index, tile.Rect.H)
		}
	}

	last := tiles[9]
	if last.Rect != (Rect{X: 918, Y: 0, W: 106, H: 100}) {
		t.Errorf("last tile of first row = %+v", last.Rect)
	}
}

func TestComputeTiles_Properties(t *testing.T) {
	tests := []struct {
		w, h int
		spec Spec
	}{
		{1024, 700, Spec{10, 7}},
		{1, 1, Spec{1, 1}},
		{99, 51, Spec{7, 5}},
		{640, 480, Spec{3, 3}},
		{4096, 4096, Spec{50, 50}},
		{13, 200, Spec{13, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.spec.String(), func(t *testing.T) {
			tiles, err := ComputeTiles(tt.w, tt.h, tt.spec)
			if err != nil {
				t.Fatalf("ComputeTiles() failed: %v", err)
			}
			if len(tiles) != tt.spec.Count() {
				t.Fatalf("got %d tiles, want %d", len(tiles), tt.spec.Count())
			}

			covered := make([]int, tt.w*tt.h)
			area := 0
			for i, tile := range tiles {
				if want := IndexOf(i, tt.spec.Columns); tile.Index != want {
					t.Fatalf("tile %d index = %v, want %v (row-major)", i, tile.Index, want)
				}
				area += tile.Rect.Area()
				for y := tile.Rect.Y; y < tile.Rect.Y+tile.Rect.H; y++ {
					for x := tile.Rect.X; x < tile.Rect.X+tile.Rect.W; x++ {
						covered[y*tt.w+x]++
					}
				}
			}
			if area != tt.w*tt.h {
				t.Errorf("total area = %d, want %d", area, tt.w*tt.h)
			}
			for i, n := range covered {
				if n != 1 {
					t.Fatalf("pixel (%d,%d) covered %d times", i%tt.w, i/tt.w, n)
				}
			}
		})
	}
}

func TestComputeTiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		spec Spec
	}{
		{"zero columns", 100, 100, Spec{0, 1}},
		{"zero rows", 100, 100, Spec{1, 0}},
		{"negative", 100, 100, Spec{-2, 3}},
		{"too narrow", 9, 100, Spec{10, 1}},
		{"too short", 100, 6, Spec{1, 7}},
		{"empty image", 0, 0, Spec{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTiles(tt.w, tt.h, tt.spec)
			if !errors.Is(err, errors.ErrCodeInvalidGrid) {
				t.Errorf("got %v, want INVALID_GRID", err)
			}
		})
	}
}

func TestTileAt(t *testing.T) {
	spec := Spec{Columns: 10, Rows: 7}
	tests := []struct {
		pt     image.Point
		want   Index
		wantOK bool
	}{
		{image.Pt(0, 0), Index{0, 0}, true},
		{image.Pt(101, 99), Index{0, 0}, true},
		{image.Pt(102, 100), Index{1, 1}, true},
		{image.Pt(1023, 699), Index{6, 9}, true},
		{image.Pt(1020, 50), Index{0, 9}, true},
		{image.Pt(1024, 0), Index{}, false},
		{image.Pt(-1, 5), Index{}, false},
	}

	for _, tt := range tests {
		got, ok := TileAt(1024, 700, spec, tt.pt)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("TileAt(%v) = %v, %v; want %v, %v", tt.pt, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTileAt_AgreesWithTiles(t *testing.T) {
	spec := Spec{Columns: 7, Rows: 5}
	tiles, err := ComputeTiles(99, 51, spec)
	if err != nil {
		t.Fatal(err)
	}
	for _, tile := range tiles {
		corners := []image.Point{
			{tile.Rect.X, tile.Rect.Y},
			{tile.Rect.X + tile.Rect.W - 1, tile.Rect.Y + tile.Rect.H - 1},
		}
		for _, pt := range corners {
			if got, ok := TileAt(99, 51, spec, pt); !ok || got != tile.Index {
				t.Errorf("TileAt(%v) = %v, %v; want %v", pt, got, ok, tile.Index)
			}
		}
	}
}

func TestLines(t *testing.T) {
	xs, ys, err := Lines(1024, 700, Spec{Columns: 4, Rows: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(xs) != 3 || xs[0] != 256 || xs[2] != 768 {
		t.Errorf("xs = %v", xs)
	}
	if len(ys) != 1 || ys[0] != 350 {
		t.Errorf("ys = %v", ys)
	}
}

func TestLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 110, 60))
	l, err := ForImage(img, Spec{Columns: 2, Rows: 2})
	if err != nil {
		t.Fatal(err)
	}
	if l.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", l.Count())
	}
	tile, ok := l.At(Index{Row: 1, Col: 1})
	if !ok || tile.Rect != (Rect{X: 50, Y: 25, W: 50, H: 25}) {
		t.Errorf("At(1,1) = %+v, %v", tile, ok)
	}
	if r := tile.Rect.Image(img.Bounds().Min); r != image.Rect(60, 35, 110, 60) {
		t.Errorf("Image() = %v", r)
	}
	if _, ok := l.At(Index{Row: 2, Col: 0}); ok {
		t.Error("At() out of range should fail")
	}
	if idx, ok := l.Hit(image.Pt(75, 10)); !ok || idx != (Index{Row: 0, Col: 1}) {
		t.Errorf("Hit() = %v, %v", idx, ok)
	}
}
