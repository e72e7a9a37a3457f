package metadata

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"golang.org/x/image/tiff"

	"github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := range 12 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 20), 90, 255})
		}
	}
	return img
}

func encode(t *testing.T, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	img := testImage()
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: 85})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func decode(format string, data []byte) error {
	r := bytes.NewReader(data)
	var err error
	switch format {
	case "jpeg":
		_, err = jpeg.Decode(r)
	case "png":
		_, err = png.Decode(r)
	case "gif":
		_, err = gif.Decode(r)
	case "tiff":
		_, err = tiff.Decode(r)
	case "webp":
		_, err = webp.Decode(r)
	}
	return err
}

var roland = &arkhamdb.Card{
	Code:    "01001",
	Name:    "Roland Banks",
	SetName: "Core Set",
	Faction: "Guardian",
}

func TestFieldsFor(t *testing.T) {
	got := FieldsFor("ignored", "", roland)
	want := Fields{
		Description: "Card: Roland Banks | Code: 01001 | Set: Core Set",
		Creator:     "Core Set",
		Faction:     "Guardian",
		Code:        "01001",
	}
	if got != want {
		t.Errorf("FieldsFor(card) = %+v, want %+v", got, want)
	}

	got = FieldsFor("Dark Hollow", "02999", nil)
	if got != (Fields{Description: "Dark Hollow", Code: "02999"}) {
		t.Errorf("FieldsFor(nil) = %+v", got)
	}

	if !FieldsFor("", "", nil).IsZero() {
		t.Error("FieldsFor with nothing should be zero")
	}
}

func TestEmbed_RoundTrip(t *testing.T) {
	fields := FieldsFor("", "", roland)

	tests := []struct {
		format string
		want   Fields
	}{
		{"jpeg", fields},
		{"png", fields},
		{"tiff", fields},
		{"webp", fields},
		{"gif", Fields{Description: fields.Description}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			src := encode(t, tt.format)
			out, err := For(tt.format).Embed(src, fields)
			if err != nil {
				t.Fatalf("Embed() failed: %v", err)
			}
			if err := decode(tt.format, out); err != nil {
				t.Fatalf("embedded file no longer decodes: %v", err)
			}
			got, err := For(tt.format).Extract(out)
			if err != nil {
				t.Fatalf("Extract() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEmbed_ShortAndEmptyValues(t *testing.T) {
	// Values of up to three characters fit inline in the IFD entry.
	fields := Fields{Description: "Ab", Code: "01001"}
	for _, format := range []string{"jpeg", "tiff"} {
		t.Run(format, func(t *testing.T) {
			out, err := For(format).Embed(encode(t, format), fields)
			if err != nil {
				t.Fatal(err)
			}
			got, err := For(format).Extract(out)
			if err != nil {
				t.Fatal(err)
			}
			if got != fields {
				t.Errorf("Extract() = %+v, want %+v", got, fields)
			}
		})
	}
}

func TestEmbed_NoFieldsIsNoop(t *testing.T) {
	for _, format := range []string{"jpeg", "png", "gif", "webp"} {
		src := encode(t, format)
		out, err := For(format).Embed(src, Fields{})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !bytes.Equal(out, src) {
			t.Errorf("%s: Embed with no fields changed the file", format)
		}
	}
}

func TestEmbed_BMPUnchanged(t *testing.T) {
	src := []byte("BM not really a bitmap")
	out, err := For("bmp").Embed(src, FieldsFor("", "", roland))
	if err != nil || !bytes.Equal(out, src) {
		t.Errorf("bmp Embed() = %q, %v", out, err)
	}
	if For("unknown") != (None{}) {
		t.Error("unknown formats should get None")
	}
}

func TestPNG_NonLatin1UsesITXt(t *testing.T) {
	fields := Fields{Description: "Card: 狂気 | Set: Père", Creator: "Père Ladeaux"}
	out, err := PNG{}.Embed(encode(t, "png"), fields)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("iTXtDescription")) {
		t.Error("non-Latin-1 description should be written as iTXt")
	}
	if !bytes.Contains(out, []byte("tEXtAuthor")) {
		t.Error("Latin-1 author should be written as tEXt")
	}
	if err := decode("png", out); err != nil {
		t.Fatal(err)
	}
	got, err := PNG{}.Extract(out)
	if err != nil {
		t.Fatal(err)
	}
	if got != fields {
		t.Errorf("Extract() = %+v, want %+v", got, fields)
	}
}

func TestGIF_LongComment(t *testing.T) {
	long := strings.Repeat("abcdefghij", 60)
	out, err := GIF{}.Embed(encode(t, "gif"), Fields{Description: long})
	if err != nil {
		t.Fatal(err)
	}
	if err := decode("gif", out); err != nil {
		t.Fatal(err)
	}
	got, err := GIF{}.Extract(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != long {
		t.Errorf("comment length = %d, want %d", len(got.Description), len(long))
	}
}

func TestEmbed_OversizedFieldsTruncated(t *testing.T) {
	huge := strings.Repeat("x", 100_000)
	out, err := JPEG{}.Embed(encode(t, "jpeg"), Fields{Description: huge, Creator: huge, Faction: huge, Code: huge})
	if err != nil {
		t.Fatal(err)
	}
	if err := decode("jpeg", out); err != nil {
		t.Fatal(err)
	}
	got, err := JPEG{}.Extract(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Description) != maxFieldLen {
		t.Errorf("description length = %d, want %d", len(got.Description), maxFieldLen)
	}
}

func TestEmbed_Malformed(t *testing.T) {
	fields := Fields{Description: "x"}
	for _, format := range []string{"jpeg", "png", "gif", "tiff"} {
		_, err := For(format).Embed([]byte("garbage"), fields)
		if !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("%s: got %v, want INVALID_FORMAT", format, err)
		}
	}
}
