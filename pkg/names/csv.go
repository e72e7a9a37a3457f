package names

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
)

// CSV column names.
const (
	ColTileIndex = "tileIndex"
	ColSide      = "side"
	ColText      = "text"
	ColCardCode  = "cardCode"
)

var csvHeader = []string{ColTileIndex, ColSide, ColText, ColCardCode}

// Row is one named tile in the CSV exchange format. TileIndex is the
// row-major position of the tile in the grid.
type Row struct {
	TileIndex int
	Side      Side
	Text      string
	CardCode  string
}

// Rows returns one row per named tile of spec, row-major, the front name
// before the back name of the same tile. Names outside spec are left out.
func (s *Store) Rows(spec grid.Spec) []Row {
	var rows []Row
	for i := range spec.Count() {
		idx := grid.IndexOf(i, spec.Columns)
		for _, side := range Sides {
			if e, ok := s.names[side][idx]; ok {
				rows = append(rows, Row{TileIndex: i, Side: side, Text: e.Text, CardCode: e.CardCode})
			}
		}
	}
	return rows
}

// ExportCSV writes [Store.Rows] as CSV with a header line.
func (s *Store) ExportCSV(w io.Writer, spec grid.Spec) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range s.Rows(spec) {
		if err := cw.Write([]string{strconv.Itoa(r.TileIndex), r.Side.String(), r.Text, r.CardCode}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SkippedRow is a CSV line that was not applied.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportReport summarizes an import.
type ImportReport struct {
	Applied   int          `json:"applied"`
	Unchanged int          `json:"unchanged"`
	Skipped   []SkippedRow `json:"skipped,omitempty"`
}

// ImportCSV applies every row of r through [Store.Set], so an import can be
// undone edit by edit.
//
// Columns are located by header name; unknown columns are ignored and
// cardCode may be missing. A row with a bad or out-of-range tile index or
// an unknown side is reported in the ImportReport and skipped. A row that
// matches the current text and card code leaves the entry, and any card
// attached to it, untouched. Only an unreadable file or a header without
// tileIndex, side and text fails the import.
func (s *Store) ImportCSV(r io.Reader, spec grid.Spec) (ImportReport, error) {
	var report ImportReport
	if err := spec.Validate(); err != nil {
		return report, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return report, nil
	}
	if err != nil {
		return report, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "read CSV header")
	}
	cols := columnIndex(header)
	for _, required := range []string{ColTileIndex, ColSide, ColText} {
		if _, ok := cols[strings.ToLower(required)]; !ok {
			return report, sserrors.New(sserrors.ErrCodeInvalidFormat, "CSV header is missing column %q", required)
		}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				report.Skipped = append(report.Skipped, SkippedRow{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return report, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "read CSV")
		}

		line, _ := cr.FieldPos(0)
		row, reason := parseRow(record, cols, spec)
		if reason != "" {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}

		idx := grid.IndexOf(row.TileIndex, spec.Columns)
		if cur, ok := s.Get(idx, row.Side); ok && cur.Text == row.Text && cur.CardCode == row.CardCode {
			report.Unchanged++
			continue
		}
		if s.Set(idx, row.Side, Entry{Text: row.Text, CardCode: row.CardCode}) {
			report.Applied++
		} else {
			report.Unchanged++
		}
	}
	return report, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func parseRow(record []string, cols map[string]int, spec grid.Spec) (Row, string) {
	field := func(name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	raw := field(ColTileIndex)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Row{}, fmt.Sprintf("tile index %q is not an integer", raw)
	}
	if n < 0 || n >= spec.Count() {
		return Row{}, fmt.Sprintf("tile index %d is outside the %s grid", n, spec)
	}
	side, err := ParseSide(field(ColSide))
	if err != nil {
		return Row{}, sserrors.UserMessage(err)
	}
	return Row{TileIndex: n, Side: side, Text: field(ColText), CardCode: field(ColCardCode)}, ""
}
