package names

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
)

// TemplateVersion is the current template file format.
const TemplateVersion = 1

// Template is a saved grid size plus every tile name, reusable across images.
//
// Entries are addressed by row-major tile position, so a template keeps the
// order of its names when loaded onto a grid of a different shape.
type Template struct {
	Version int             `json:"version"`
	Name    string          `json:"name,omitempty"`
	Grid    grid.Spec       `json:"grid"`
	Entries []TemplateEntry `json:"entries"`
}

// TemplateEntry is one saved tile name.
type TemplateEntry struct {
	Tile     int            `json:"tile"`
	Side     Side           `json:"side"`
	Text     string         `json:"text,omitempty"`
	CardCode string         `json:"card_code,omitempty"`
	Card     *arkhamdb.Card `json:"card,omitempty"`
}

// SaveTemplate captures the names of spec's tiles.
func (s *Store) SaveTemplate(spec grid.Spec) Template {
	t := Template{Version: TemplateVersion, Grid: spec}
	for i := range spec.Count() {
		idx := grid.IndexOf(i, spec.Columns)
		for _, side := range Sides {
			if e, ok := s.names[side][idx]; ok {
				t.Entries = append(t.Entries, TemplateEntry{
					Tile: i, Side: side, Text: e.Text, CardCode: e.CardCode, Card: e.Card,
				})
			}
		}
	}
	return t
}

// LoadReport summarizes a template load.
type LoadReport struct {
	Applied int `json:"applied"`
	Removed int `json:"removed"`
	Dropped int `json:"dropped"`
}

// LoadTemplate replaces the names of the live grid spec with those of t.
// Every change is a recorded edit, so a load can be undone.
//
// When t has more tiles than spec, the entries beyond spec are dropped and
// the returned error is a *errors.TemplateMismatchWarning. The rest of the
// template has been applied in that case; treat the warning as a notice.
func (s *Store) LoadTemplate(t Template, spec grid.Spec) (LoadReport, error) {
	var report LoadReport
	if err := spec.Validate(); err != nil {
		return report, err
	}
	if err := t.Grid.Validate(); err != nil {
		return report, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "template grid")
	}

	want := [2]map[grid.Index]Entry{{}, {}}
	for _, te := range t.Entries {
		if te.Tile < 0 || te.Tile >= spec.Count() || (te.Side != Front && te.Side != Back) {
			report.Dropped++
			continue
		}
		idx := grid.IndexOf(te.Tile, spec.Columns)
		want[te.Side][idx] = Entry{Text: te.Text, CardCode: te.CardCode, Card: te.Card}
	}

	for _, side := range Sides {
		for _, named := range s.Entries(side) {
			if _, keep := want[side][named.Index]; !keep && s.Set(named.Index, side, Entry{}) {
				report.Removed++
			}
		}
		for i := range spec.Count() {
			idx := grid.IndexOf(i, spec.Columns)
			if e, ok := want[side][idx]; ok && s.Set(idx, side, e) {
				report.Applied++
			}
		}
	}

	if t.Grid.Count() > spec.Count() {
		return report, &sserrors.TemplateMismatchWarning{
			TemplateTiles: t.Grid.Count(),
			GridTiles:     spec.Count(),
			Dropped:       report.Dropped,
		}
	}
	return report, nil
}

// WriteTemplate encodes t as indented JSON.
func WriteTemplate(t Template, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ReadTemplate decodes a template written by [WriteTemplate].
func ReadTemplate(r io.Reader) (Template, error) {
	var t Template
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Template{}, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "decode template")
	}
	if t.Version > TemplateVersion {
		return Template{}, sserrors.New(sserrors.ErrCodeUnsupported, "template version %d is newer than %d", t.Version, TemplateVersion)
	}
	if err := t.Grid.Validate(); err != nil {
		return Template{}, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "template grid")
	}
	return t, nil
}

// ExportTemplate writes t to path.
func ExportTemplate(t Template, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	if err := WriteTemplate(t, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ImportTemplate reads a template from path.
func ImportTemplate(path string) (Template, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Template{}, sserrors.Wrap(sserrors.ErrCodeFileNotFound, err, "template %s", path)
	}
	if err != nil {
		return Template{}, err
	}
	defer f.Close()
	return ReadTemplate(f)
}
