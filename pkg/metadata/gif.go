package metadata

import (
	"bytes"
)

// GIF stores the description in a comment extension. The other fields have
// no slot and are dropped.
type GIF struct{}

// Embed inserts a comment extension before the first block and upgrades a
// GIF87a header to GIF89a.
func (GIF) Embed(encoded []byte, f Fields) ([]byte, error) {
	at, ok := gifBlocksStart(encoded)
	if !ok {
		return nil, malformed("gif", "bad header")
	}
	desc := f.clean().Description
	if desc == "" {
		return encoded, nil
	}

	ext := []byte{0x21, 0xFE}
	for s := []byte(desc); len(s) > 0; {
		n := min(len(s), 255)
		ext = append(ext, byte(n))
		ext = append(ext, s[:n]...)
		s = s[n:]
	}
	ext = append(ext, 0)

	out := make([]byte, 0, len(encoded)+len(ext))
	out = append(out, encoded[:at]...)
	copy(out[3:6], "89a")
	out = append(out, ext...)
	return append(out, encoded[at:]...), nil
}

// Extract returns the first comment extension as the description.
func (GIF) Extract(encoded []byte) (Fields, error) {
	i, ok := gifBlocksStart(encoded)
	if !ok {
		return Fields{}, malformed("gif", "bad header")
	}
	for i < len(encoded) {
		switch encoded[i] {
		case 0x21:
			if i+2 > len(encoded) {
				return Fields{}, malformed("gif", "truncated extension")
			}
			data, next, ok := gifSubBlocks(encoded, i+2)
			if !ok {
				return Fields{}, malformed("gif", "truncated extension")
			}
			if encoded[i+1] == 0xFE {
				return Fields{Description: string(data)}, nil
			}
			i = next
		case 0x2C:
			if i+10 > len(encoded) {
				return Fields{}, malformed("gif", "truncated image descriptor")
			}
			packed := encoded[i+9]
			i += 10
			if packed&0x80 != 0 {
				i += 3 << ((packed & 0x07) + 1)
			}
			i++ // LZW minimum code size
			_, next, ok := gifSubBlocks(encoded, i)
			if !ok {
				return Fields{}, malformed("gif", "truncated image data")
			}
			i = next
		default:
			return Fields{}, nil
		}
	}
	return Fields{}, nil
}

// gifBlocksStart returns the offset just past the header, the logical
// screen descriptor and the global color table.
func gifBlocksStart(b []byte) (int, bool) {
	if len(b) < 13 || !(bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a"))) {
		return 0, false
	}
	at := 13
	if packed := b[10]; packed&0x80 != 0 {
		at += 3 << ((packed & 0x07) + 1)
	}
	if at > len(b) {
		return 0, false
	}
	return at, true
}

// gifSubBlocks concatenates the data sub-blocks starting at i and returns
// the offset after the terminator.
func gifSubBlocks(b []byte, i int) ([]byte, int, bool) {
	var data []byte
	for i < len(b) {
		n := int(b[i])
		i++
		if n == 0 {
			return data, i, true
		}
		if i+n > len(b) {
			return nil, 0, false
		}
		data = append(data, b[i:i+n]...)
		i += n
	}
	return nil, 0, false
}
