package metadata

import (
	"bytes"
	"encoding/binary"
	"slices"
)

// TIFF tags used for the four fields.
const (
	tagImageDescription = 0x010E
	tagMake             = 0x010F
	tagModel            = 0x0110
	tagArtist           = 0x013B
)

const (
	typeASCII    = 2
	ifdEntrySize = 12
)

type asciiTag struct {
	tag   uint16
	value string
}

// exifTags maps fields to TIFF tags in ascending tag order.
func exifTags(f Fields) []asciiTag {
	var tags []asciiTag
	for _, t := range []asciiTag{
		{tagImageDescription, f.Description},
		{tagMake, f.Faction},
		{tagModel, f.Code},
		{tagArtist, f.Creator},
	} {
		if t.value != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func fieldsFromTags(tags map[uint16]string) Fields {
	return Fields{
		Description: tags[tagImageDescription],
		Faction:     tags[tagMake],
		Code:        tags[tagModel],
		Creator:     tags[tagArtist],
	}
}

// buildTIFF returns a big-endian TIFF structure whose single IFD holds tags.
func buildTIFF(tags []asciiTag) []byte {
	bo := binary.BigEndian
	const ifdOff = 8
	dataOff := ifdOff + 2 + ifdEntrySize*len(tags) + 4

	buf := make([]byte, dataOff)
	copy(buf, "MM")
	bo.PutUint16(buf[2:], 42)
	bo.PutUint32(buf[4:], ifdOff)
	bo.PutUint16(buf[ifdOff:], uint16(len(tags)))

	var data []byte
	for i, t := range tags {
		e := buf[ifdOff+2+ifdEntrySize*i:]
		data = putASCII(bo, e, t, dataOff, data)
	}
	return append(buf, data...)
}

// putASCII writes one ASCII entry into e. Values longer than four bytes go
// to data, which starts at file offset base; the grown data is returned.
func putASCII(bo binary.ByteOrder, e []byte, t asciiTag, base int, data []byte) []byte {
	val := append([]byte(t.value), 0)
	bo.PutUint16(e[0:], t.tag)
	bo.PutUint16(e[2:], typeASCII)
	bo.PutUint32(e[4:], uint32(len(val)))
	if len(val) <= 4 {
		clear(e[8:12])
		copy(e[8:12], val)
		return data
	}
	bo.PutUint32(e[8:], uint32(base+len(data)))
	data = append(data, val...)
	if len(data)%2 == 1 {
		data = append(data, 0)
	}
	return data
}

// tiffHeader validates a TIFF header and returns its byte order and the
// offset of IFD0.
func tiffHeader(b []byte) (binary.ByteOrder, uint32, bool) {
	if len(b) < 8 {
		return nil, 0, false
	}
	var bo binary.ByteOrder
	switch {
	case bytes.HasPrefix(b, []byte("II")):
		bo = binary.LittleEndian
	case bytes.HasPrefix(b, []byte("MM")):
		bo = binary.BigEndian
	default:
		return nil, 0, false
	}
	if bo.Uint16(b[2:]) != 42 {
		return nil, 0, false
	}
	return bo, bo.Uint32(b[4:]), true
}

// readIFD returns the raw entries of the IFD at off and the next-IFD offset.
func readIFD(b []byte, bo binary.ByteOrder, off uint32) ([][]byte, uint32, bool) {
	if uint64(off)+2 > uint64(len(b)) {
		return nil, 0, false
	}
	n := int(bo.Uint16(b[off:]))
	end := int(off) + 2 + n*ifdEntrySize
	if end+4 > len(b) {
		return nil, 0, false
	}
	entries := make([][]byte, n)
	for i := range n {
		start := int(off) + 2 + i*ifdEntrySize
		entries[i] = b[start : start+ifdEntrySize]
	}
	return entries, bo.Uint32(b[end:]), true
}

// parseTIFF reads the ASCII tags of IFD0.
func parseTIFF(b []byte) (map[uint16]string, bool) {
	bo, off, ok := tiffHeader(b)
	if !ok {
		return nil, false
	}
	entries, _, ok := readIFD(b, bo, off)
	if !ok {
		return nil, false
	}
	tags := make(map[uint16]string)
	for _, e := range entries {
		if bo.Uint16(e[2:]) != typeASCII {
			continue
		}
		count := bo.Uint32(e[4:])
		var raw []byte
		if count <= 4 {
			raw = e[8 : 8+count]
		} else {
			at := bo.Uint32(e[8:])
			if uint64(at)+uint64(count) > uint64(len(b)) {
				continue
			}
			raw = b[at : at+count]
		}
		tags[bo.Uint16(e[0:])] = string(bytes.TrimRight(raw, "\x00"))
	}
	return tags, true
}

// appendIFD0 rewrites IFD0 of a complete TIFF file with tags added. The new
// IFD and its string data are appended to the file and the header is
// pointed at it; the old IFD stays in place, unreferenced. Existing entries
// with the same tags are replaced.
func appendIFD0(b []byte, tags []asciiTag) ([]byte, bool) {
	bo, off, ok := tiffHeader(b)
	if !ok {
		return nil, false
	}
	old, next, ok := readIFD(b, bo, off)
	if !ok {
		return nil, false
	}

	type entry struct {
		tag uint16
		raw []byte
		set *asciiTag
	}
	var merged []entry
	replaced := make(map[uint16]bool, len(tags))
	for i := range tags {
		replaced[tags[i].tag] = true
		merged = append(merged, entry{tag: tags[i].tag, set: &tags[i]})
	}
	for _, e := range old {
		if t := bo.Uint16(e[0:]); !replaced[t] {
			merged = append(merged, entry{tag: t, raw: e})
		}
	}
	slices.SortFunc(merged, func(a, b entry) int { return int(a.tag) - int(b.tag) })

	out := slices.Clone(b)
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	ifdOff := len(out)
	dataOff := ifdOff + 2 + ifdEntrySize*len(merged) + 4

	ifd := make([]byte, dataOff-ifdOff)
	bo.PutUint16(ifd, uint16(len(merged)))
	var data []byte
	for i, m := range merged {
		e := ifd[2+ifdEntrySize*i:]
		if m.set != nil {
			data = putASCII(bo, e, *m.set, dataOff, data)
		} else {
			copy(e, m.raw)
		}
	}
	bo.PutUint32(ifd[len(ifd)-4:], next)

	out = append(out, ifd...)
	out = append(out, data...)
	bo.PutUint32(out[4:], uint32(ifdOff))
	return out, true
}
