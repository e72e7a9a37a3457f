package export

import (
	"strings"
	"testing"

	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

func TestNamer_Unique(t *testing.T) {
	n := NewNamer()
	got := []string{
		n.Unique("Agnes Baker[A]", ".jpg"),
		n.Unique("agnes baker[A]", ".jpg"),
		n.Unique("AGNES BAKER[A]", ".jpg"),
		n.Unique("Agnes Baker[A]-2", ".jpg"),
		n.Unique("Agnes Baker[B]", ".jpg"),
	}
	want := []string{
		"Agnes Baker[A].jpg",
		"agnes baker[A]-2.jpg",
		"AGNES BAKER[A]-3.jpg",
		"Agnes Baker[A]-2-2.jpg",
		"Agnes Baker[B].jpg",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Unique #%d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Roland Banks", "Roland Banks"},
		{"Who/What?", "Who_What_"},
		{`a<b>c:d"e\f|g*h`, "a_b_c_d_e_f_g_h"},
		{"tab\there", "tabhere"},
		{"  trailing dots...  ", "trailing dots"},
		{"CON", "_CON"},
		{"Père Ladeaux", "Père Ladeaux"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_Long(t *testing.T) {
	got := Sanitize(strings.Repeat("é", 300))
	if len(got) > maxStemBytes {
		t.Errorf("len = %d, want <= %d", len(got), maxStemBytes)
	}
	if strings.ContainsRune(got, '�') || !strings.HasPrefix(got, "éé") {
		t.Errorf("truncation broke a rune: %q", got[:10])
	}
}

func TestStem(t *testing.T) {
	card := &arkhamdb.Card{Code: "01004", Name: "Agnes Baker"}
	idx := grid.Index{Row: 0, Col: 1}
	opts := DefaultOptions()
	noCode := opts
	noCode.IncludeCardCode = false

	tests := []struct {
		name  string
		entry names.Entry
		side  names.Side
		opts  Options
		want  string
	}{
		{"card wins over text", names.Entry{Text: "typed", Card: card}, names.Front, opts, "01004 Agnes Baker[A]"},
		{"card without code prefix", names.Entry{Card: card}, names.Back, noCode, "Agnes Baker[B]"},
		{"manual text", names.Entry{Text: "  Dark Hollow "}, names.Front, opts, "Dark Hollow[A]"},
		{"manual text and code", names.Entry{Text: "Dark Hollow", CardCode: "02999"}, names.Front, opts, "02999 Dark Hollow[A]"},
		{"positional fallback", names.Entry{}, names.Back, opts, "tile01-02[B]"},
		{"unsafe text", names.Entry{Text: "a/b"}, names.Front, noCode, "a_b[A]"},
		{"text sanitizes to nothing", names.Entry{Text: "..."}, names.Front, noCode, "tile01-02[A]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stem(tt.entry, idx, tt.side, tt.opts); got != tt.want {
				t.Errorf("Stem() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"jpg", JPEG}, {"JPEG", JPEG}, {".png", PNG}, {"WebP", WebP},
		{"bmp", BMP}, {"gif", GIF}, {"tif", TIFF}, {"tiff", TIFF},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("psd"); err == nil {
		t.Error("ParseFormat(psd) should fail")
	}
	for _, f := range Formats {
		if f.Ext() == "" {
			t.Errorf("%s has no extension", f)
		}
	}
}
