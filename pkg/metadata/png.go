package metadata

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PNG keywords for each field.
const (
	pngDescription = "Description"
	pngAuthor      = "Author"
	pngSource      = "Source"
	pngComment     = "Comment"
)

// PNG stores fields as text chunks right after IHDR. Latin-1 text goes into
// tEXt; anything else into uncompressed iTXt.
type PNG struct{}

// Embed inserts one text chunk per non-empty field.
func (PNG) Embed(encoded []byte, f Fields) ([]byte, error) {
	if !bytes.HasPrefix(encoded, pngSignature) || len(encoded) < len(pngSignature)+8 {
		return nil, malformed("png", "missing signature")
	}
	f = f.clean()

	var chunks []byte
	for _, kv := range [][2]string{
		{pngDescription, f.Description},
		{pngAuthor, f.Creator},
		{pngSource, f.Faction},
		{pngComment, f.Code},
	} {
		if kv[1] != "" {
			chunks = append(chunks, textChunk(kv[0], kv[1])...)
		}
	}
	if len(chunks) == 0 {
		return encoded, nil
	}

	ihdrLen := int(binary.BigEndian.Uint32(encoded[8:]))
	at := len(pngSignature) + 12 + ihdrLen
	if string(encoded[12:16]) != "IHDR" || at > len(encoded) {
		return nil, malformed("png", "missing IHDR")
	}

	out := make([]byte, 0, len(encoded)+len(chunks))
	out = append(out, encoded[:at]...)
	out = append(out, chunks...)
	return append(out, encoded[at:]...), nil
}

// Extract reads tEXt and iTXt chunks with the known keywords.
func (PNG) Extract(encoded []byte) (Fields, error) {
	if !bytes.HasPrefix(encoded, pngSignature) {
		return Fields{}, malformed("png", "missing signature")
	}
	text := make(map[string]string)
	for i := len(pngSignature); i+12 <= len(encoded); {
		n := int(binary.BigEndian.Uint32(encoded[i:]))
		typ := string(encoded[i+4 : i+8])
		end := i + 12 + n
		if n < 0 || end > len(encoded) {
			return Fields{}, malformed("png", "truncated chunk")
		}
		data := encoded[i+8 : i+8+n]
		switch typ {
		case "tEXt":
			if k, v, ok := bytes.Cut(data, []byte{0}); ok {
				text[string(k)] = fromLatin1(v)
			}
		case "iTXt":
			if k, v, ok := parseITXt(data); ok {
				text[k] = v
			}
		case "IEND":
			i = len(encoded)
			continue
		}
		i = end
	}
	return Fields{
		Description: text[pngDescription],
		Creator:     text[pngAuthor],
		Faction:     text[pngSource],
		Code:        text[pngComment],
	}, nil
}

func textChunk(keyword, value string) []byte {
	var data []byte
	typ := "tEXt"
	if latin1, ok := toLatin1(value); ok {
		data = append([]byte(keyword), 0)
		data = append(data, latin1...)
	} else {
		typ = "iTXt"
		data = append([]byte(keyword), 0, 0, 0, 0, 0)
		data = append(data, value...)
	}

	chunk := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	copy(chunk[4:], typ)
	chunk = append(chunk, data...)
	return binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))
}

// parseITXt decodes an uncompressed iTXt chunk.
func parseITXt(data []byte) (string, string, bool) {
	k, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 2 || rest[0] != 0 {
		return "", "", false
	}
	rest = rest[2:]
	if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
		return "", "", false
	}
	if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
		return "", "", false
	}
	return string(k), string(rest), true
}

func toLatin1(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

func fromLatin1(b []byte) string {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
