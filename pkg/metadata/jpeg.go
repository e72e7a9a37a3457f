package metadata

import (
	"bytes"
	"encoding/binary"
)

var exifPrefix = []byte("Exif\x00\x00")

// JPEG stores fields as an EXIF APP1 segment.
type JPEG struct{}

// Embed inserts an APP1 segment after SOI, or after a leading APP0 (JFIF).
func (JPEG) Embed(encoded []byte, f Fields) ([]byte, error) {
	if len(encoded) < 4 || encoded[0] != 0xFF || encoded[1] != 0xD8 {
		return nil, malformed("jpeg", "missing SOI marker")
	}
	tags := exifTags(f.clean())
	if len(tags) == 0 {
		return encoded, nil
	}

	payload := append(bytes.Clone(exifPrefix), buildTIFF(tags)...)
	seg := make([]byte, 4, 4+len(payload))
	seg[0], seg[1] = 0xFF, 0xE1
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	at := 2
	if encoded[2] == 0xFF && encoded[3] == 0xE0 && len(encoded) >= 6 {
		at = 4 + int(binary.BigEndian.Uint16(encoded[4:]))
		if at > len(encoded) {
			return nil, malformed("jpeg", "truncated APP0 segment")
		}
	}

	out := make([]byte, 0, len(encoded)+len(seg))
	out = append(out, encoded[:at]...)
	out = append(out, seg...)
	return append(out, encoded[at:]...), nil
}

// Extract reads the first EXIF APP1 segment before the scan data.
func (JPEG) Extract(encoded []byte) (Fields, error) {
	if len(encoded) < 2 || encoded[0] != 0xFF || encoded[1] != 0xD8 {
		return Fields{}, malformed("jpeg", "missing SOI marker")
	}
	for i := 2; i+4 <= len(encoded) && encoded[i] == 0xFF; {
		marker := encoded[i+1]
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		n := int(binary.BigEndian.Uint16(encoded[i+2:]))
		end := i + 2 + n
		if n < 2 || end > len(encoded) {
			return Fields{}, malformed("jpeg", "truncated segment")
		}
		body := encoded[i+4 : end]
		if marker == 0xE1 && bytes.HasPrefix(body, exifPrefix) {
			if tags, ok := parseTIFF(body[len(exifPrefix):]); ok {
				return fieldsFromTags(tags), nil
			}
		}
		i = end
	}
	return Fields{}, nil
}
