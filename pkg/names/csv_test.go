package names

import (
	"bytes"
	"maps"
	"strings"
	"testing"

	"github.com/matzehuels/sheetslicer/pkg/grid"
)

var spec10x7 = grid.Spec{Columns: 10, Rows: 7}

func TestExportCSV(t *testing.T) {
	s := NewStore()
	s.Set(at(1, 0), Back, Entry{Text: "Card Back"})
	s.Set(at(0, 2), Front, Entry{Text: "Roland Banks", CardCode: "01001"})
	s.Set(at(1, 0), Front, Entry{Text: "Machete, Sharp"})

	var buf bytes.Buffer
	if err := s.ExportCSV(&buf, spec10x7); err != nil {
		t.Fatal(err)
	}
	want := "tileIndex,side,text,cardCode\n" +
		"2,front,Roland Banks,01001\n" +
		"10,front,\"Machete, Sharp\",\n" +
		"10,back,Card Back,\n"
	if buf.String() != want {
		t.Errorf("ExportCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	src := NewStore()
	src.Set(at(0, 0), Front, Entry{Text: "Agnes Baker", CardCode: "01004"})
	src.Set(at(0, 1), Front, Entry{Text: "Agnes Baker"})
	src.Set(at(6, 9), Back, Entry{Text: "Encounter \"Back\""})
	src.Set(at(3, 4), Front, Entry{CardCode: "01006"})

	var buf bytes.Buffer
	if err := src.ExportCSV(&buf, spec10x7); err != nil {
		t.Fatal(err)
	}
	exported := buf.String()

	dst := NewStore()
	report, err := dst.ImportCSV(strings.NewReader(exported), spec10x7)
	if err != nil {
		t.Fatalf("ImportCSV() failed: %v", err)
	}
	if report.Applied != 4 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v", report)
	}
	for _, side := range Sides {
		if !maps.Equal(dst.names[side], src.names[side]) {
			t.Errorf("%s names differ after import", side)
		}
	}

	// Importing the same file again changes nothing.
	report, err = dst.ImportCSV(strings.NewReader(exported), spec10x7)
	if err != nil {
		t.Fatal(err)
	}
	if report.Applied != 0 || report.Unchanged != 4 {
		t.Errorf("second import report = %+v", report)
	}
	if len(dst.History()) != 4 {
		t.Errorf("history = %d edits, want 4", len(dst.History()))
	}
}

func TestImportCSV_Tolerant(t *testing.T) {
	input := "Side,Notes,TileIndex,Text\n" +
		"front,ignored,0,Roland Banks\n" +
		"back,,1,Player Back\n" +
		"front,,70,Out Of Range\n" +
		"front,,-1,Negative\n" +
		"left,,2,Bad Side\n" +
		"front,,two,Not A Number\n" +
		"B,,3,Letter Side\n"

	s := NewStore()
	report, err := s.ImportCSV(strings.NewReader(input), spec10x7)
	if err != nil {
		t.Fatalf("ImportCSV() failed: %v", err)
	}
	if report.Applied != 3 {
		t.Errorf("Applied = %d, want 3", report.Applied)
	}
	if len(report.Skipped) != 4 {
		t.Fatalf("Skipped = %+v, want 4 rows", report.Skipped)
	}
	wantLines := []int{4, 5, 6, 7}
	for i, sk := range report.Skipped {
		if sk.Line != wantLines[i] {
			t.Errorf("skipped[%d] line = %d, want %d (%s)", i, sk.Line, wantLines[i], sk.Reason)
		}
	}
	if e, _ := s.Get(at(0, 3), Back); e.Text != "Letter Side" {
		t.Errorf("tile 3 back = %+v", e)
	}

	for range report.Applied {
		s.Undo()
	}
	if s.Len(Front)+s.Len(Back) != 0 {
		t.Error("an import should undo edit by edit")
	}
}

func TestImportCSV_BadHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing side", "tileIndex,text\n0,x\n"},
		{"missing text", "tileIndex,side\n0,front\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStore().ImportCSV(strings.NewReader(tt.input), spec10x7); err == nil {
				t.Error("ImportCSV() should fail")
			}
		})
	}

	report, err := NewStore().ImportCSV(strings.NewReader(""), spec10x7)
	if err != nil || report.Applied != 0 {
		t.Errorf("empty input = %+v, %v", report, err)
	}
}

func TestImportCSV_KeepsAttachedCard(t *testing.T) {
	s := NewStore()
	card := FromCard(cardRoland)
	s.Set(at(0, 0), Front, card)

	var buf bytes.Buffer
	s.ExportCSV(&buf, spec10x7)
	if _, err := s.ImportCSV(&buf, spec10x7); err != nil {
		t.Fatal(err)
	}
	if e, _ := s.Get(at(0, 0), Front); e.Card == nil {
		t.Error("re-importing an unchanged row dropped the attached card")
	}
}
