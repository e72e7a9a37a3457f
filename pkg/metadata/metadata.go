// Package metadata writes descriptive fields into encoded image files.
//
// Four logical fields travel with every exported tile: a description, a
// creator, a faction tag and a code tag. Each image format stores them in
// its own native slot:
//
//	format  description        creator        faction        code
//	JPEG    EXIF Description   EXIF Artist    EXIF Make      EXIF Model
//	TIFF    same tags in IFD0
//	WebP    EXIF chunk with the same tags
//	PNG     tEXt Description   tEXt Author    tEXt Source    tEXt Comment
//	GIF     comment extension  -              -              -
//	BMP     -                  -              -              -
//
// A slot the format lacks is dropped; the write itself never fails for that
// reason. Empty fields are omitted.
package metadata

import (
	"fmt"
	"strings"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
)

// maxFieldLen caps each field so an EXIF segment always fits one JPEG APP1.
const maxFieldLen = 2048

// Fields are the four logical metadata values of one tile.
type Fields struct {
	Description string `json:"description,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Faction     string `json:"faction,omitempty"`
	Code        string `json:"code,omitempty"`
}

// FieldsFor composes the fields of a tile. With a card attached the
// description reads "Card: {name} | Code: {code} | Set: {set}", the creator
// is the set name and the faction and code tags come from the card.
// Without a card the description is the resolved name and the code tag is
// the manually entered code, if any.
func FieldsFor(name, code string, card *arkhamdb.Card) Fields {
	if card == nil {
		return Fields{Description: name, Code: code}
	}
	return Fields{
		Description: fmt.Sprintf("Card: %s | Code: %s | Set: %s", card.Name, card.Code, card.SetName),
		Creator:     card.SetName,
		Faction:     card.Faction,
		Code:        card.Code,
	}
}

// IsZero reports whether no field is set.
func (f Fields) IsZero() bool { return f == Fields{} }

func (f Fields) clean() Fields {
	c := func(s string) string {
		s = strings.ReplaceAll(s, "\x00", "")
		if len(s) > maxFieldLen {
			s = strings.ToValidUTF8(s[:maxFieldLen], "")
		}
		return s
	}
	return Fields{Description: c(f.Description), Creator: c(f.Creator), Faction: c(f.Faction), Code: c(f.Code)}
}

// Embedder stores and reads [Fields] for one encoded format.
type Embedder interface {
	// Embed returns encoded with f added. Slots the format lacks are skipped.
	Embed(encoded []byte, f Fields) ([]byte, error)

	// Extract reads back the fields present in encoded.
	Extract(encoded []byte) (Fields, error)
}

var embedders = map[string]Embedder{
	"jpeg": JPEG{},
	"jpg":  JPEG{},
	"png":  PNG{},
	"webp": WebP{},
	"gif":  GIF{},
	"tiff": TIFF{},
	"tif":  TIFF{},
	"bmp":  None{},
}

// For returns the embedder of a format name such as "jpeg" or "png".
// Unknown formats get [None].
func For(format string) Embedder {
	if e, ok := embedders[strings.ToLower(format)]; ok {
		return e
	}
	return None{}
}

// None is the embedder of formats without any metadata slot.
type None struct{}

// Embed returns encoded unchanged.
func (None) Embed(encoded []byte, _ Fields) ([]byte, error) { return encoded, nil }

// Extract returns no fields.
func (None) Extract([]byte) (Fields, error) { return Fields{}, nil }

func malformed(format string, what string) error {
	return sserrors.New(sserrors.ErrCodeInvalidFormat, "%s: %s", format, what)
}
