package metadata

// TIFF stores fields as ASCII tags in IFD0.
type TIFF struct{}

// Embed appends a rewritten IFD0 that carries the original entries plus
// the field tags, and points the header at it.
func (TIFF) Embed(encoded []byte, f Fields) ([]byte, error) {
	tags := exifTags(f.clean())
	if len(tags) == 0 {
		if _, _, ok := tiffHeader(encoded); !ok {
			return nil, malformed("tiff", "bad header")
		}
		return encoded, nil
	}
	out, ok := appendIFD0(encoded, tags)
	if !ok {
		return nil, malformed("tiff", "bad header or IFD0")
	}
	return out, nil
}

// Extract reads the field tags of IFD0.
func (TIFF) Extract(encoded []byte) (Fields, error) {
	tags, ok := parseTIFF(encoded)
	if !ok {
		return Fields{}, malformed("tiff", "bad header or IFD0")
	}
	return fieldsFromTags(tags), nil
}
