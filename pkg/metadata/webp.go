package metadata

import (
	"bytes"

	"github.com/chai2010/webp"
)

// WebP stores fields in the EXIF chunk of an extended (VP8X) container.
type WebP struct{}

// Embed sets the EXIF chunk, replacing any existing one.
func (WebP) Embed(encoded []byte, f Fields) ([]byte, error) {
	tags := exifTags(f.clean())
	if len(tags) == 0 {
		return encoded, nil
	}
	out, err := webp.SetMetadata(encoded, buildTIFF(tags), "EXIF")
	if err != nil {
		return nil, malformed("webp", err.Error())
	}
	return out, nil
}

// Extract reads the EXIF chunk. Some writers prefix it with "Exif\0\0".
func (WebP) Extract(encoded []byte) (Fields, error) {
	raw, err := webp.GetMetadata(encoded, "EXIF")
	if err != nil || len(raw) == 0 {
		return Fields{}, nil
	}
	raw = bytes.TrimPrefix(raw, exifPrefix)
	tags, ok := parseTIFF(raw)
	if !ok {
		return Fields{}, malformed("webp", "bad EXIF chunk")
	}
	return fieldsFromTags(tags), nil
}
