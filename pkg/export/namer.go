package export

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

// maxStemBytes keeps names well below the 255-byte limit common to
// filesystems, leaving room for suffix, collision counter and extension.
const maxStemBytes = 200

// ResolveName returns the display name of a tile: the attached card's name,
// else the trimmed manual text, else "tile{row}-{col}" counting from 01.
func ResolveName(e names.Entry, idx grid.Index) string {
	if e.Card != nil && strings.TrimSpace(e.Card.Name) != "" {
		return strings.TrimSpace(e.Card.Name)
	}
	if text := strings.TrimSpace(e.Text); text != "" {
		return text
	}
	return PositionalName(idx)
}

// PositionalName is the fallback name of an unnamed tile.
func PositionalName(idx grid.Index) string {
	return fmt.Sprintf("tile%02d-%02d", idx.Row+1, idx.Col+1)
}

// cardCode returns the code of the attached card, else the manual code.
func cardCode(e names.Entry) string {
	if e.Card != nil && e.Card.Code != "" {
		return e.Card.Code
	}
	return strings.TrimSpace(e.CardCode)
}

// Stem builds the file name of a tile without extension or collision
// counter.
func Stem(e names.Entry, idx grid.Index, side names.Side, opts Options) string {
	name := ResolveName(e, idx)
	if code := cardCode(e); opts.IncludeCardCode && code != "" {
		name = code + " " + name
	}
	stem := Sanitize(name)
	if stem == "" {
		stem = PositionalName(idx)
	}
	return stem + Sanitize(opts.suffix(side))
}

// Sanitize makes s safe as part of a file name on Windows, macOS and Linux.
// Reserved characters become "_", control characters are dropped, trailing
// dots and spaces are trimmed and device names such as "CON" are prefixed.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxStemBytes {
		out = out[:maxStemBytes]
		for !utf8.ValidString(out) {
			out = out[:len(out)-1]
		}
	}
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return ""
	}
	if sserrors.ValidateFilename(out) != nil {
		out = "_" + out
	}
	return out
}

// Namer hands out unique file names within one export run. Names compare
// case-insensitively; a repeated name gets "-2", "-3", ... in the order it
// is requested, so the first tile keeps the plain name.
type Namer struct {
	used map[string]int
}

// NewNamer returns a namer with no names taken.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]int)}
}

// Unique returns stem+ext, or the first free stem-N+ext.
func (n *Namer) Unique(stem, ext string) string {
	name := stem + ext
	key := strings.ToLower(name)
	last, taken := n.used[key]
	if !taken {
		n.used[key] = 1
		return name
	}
	for i := max(last, 1) + 1; ; i++ {
		cand := fmt.Sprintf("%s-%d%s", stem, i, ext)
		ck := strings.ToLower(cand)
		if _, ok := n.used[ck]; !ok {
			n.used[key] = i
			n.used[ck] = 1
			return cand
		}
	}
}
