package export

import (
	"strings"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
)

// Format is an output image format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
	BMP  Format = "bmp"
	GIF  Format = "gif"
	TIFF Format = "tiff"
)

// Formats lists every supported output format.
var Formats = []Format{JPEG, PNG, WebP, BMP, GIF, TIFF}

var extensions = map[Format]string{
	JPEG: ".jpg",
	PNG:  ".png",
	WebP: ".webp",
	BMP:  ".bmp",
	GIF:  ".gif",
	TIFF: ".tiff",
}

// Ext returns the file extension, including the dot.
func (f Format) Ext() string { return extensions[f] }

// Opaque reports whether the format has no alpha channel, so tiles are
// flattened onto the background color before encoding.
func (f Format) Opaque() bool { return f == JPEG || f == BMP }

func (f Format) String() string { return string(f) }

// ParseFormat accepts a format name or extension in any case, with or
// without a leading dot: "jpg", ".JPEG", "tif", "webp".
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	case "bmp":
		return BMP, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", sserrors.New(sserrors.ErrCodeInvalidFormat, "unsupported output format %q (must be one of: jpg, png, webp, bmp, gif, tiff)", s)
}
