package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

type fakeCards struct {
	cards []arkhamdb.Card
}

func (f *fakeCards) Search(_ context.Context, query string, _ bool) (iter.Seq[arkhamdb.Card], error) {
	return func(yield func(arkhamdb.Card) bool) {
		for _, c := range f.cards {
			if strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) && !yield(c) {
				return
			}
		}
	}, nil
}

func (f *fakeCards) Card(_ context.Context, code string) (arkhamdb.Card, error) {
	for _, c := range f.cards {
		if c.Code == code {
			return c, nil
		}
	}
	return arkhamdb.Card{}, sserrors.New(sserrors.ErrCodeNotFound, "card %s not found", code)
}

var testCards = &fakeCards{cards: []arkhamdb.Card{
	{Code: "01001", Name: "Roland Banks", SetName: "Core Set", Faction: "Guardian"},
	{Code: "01004", Name: "Agnes Baker", SetName: "Core Set", Faction: "Mystic"},
}}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, color.NRGBA{10, 20, 30, 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, cards Cards) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	srv := New(Options{Cards: cards, Export: export.DefaultOptions(), OutputRoot: root})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, root
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body healthResponse
	decodeBody(t, resp, &body)
	if body.Status != "ok" || body.Build.Version == "" {
		t.Errorf("health = %+v", body)
	}
}

func TestGrid(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/grid?columns=10&rows=7", "image/png", bytes.NewReader(pngBytes(t, 1024, 700)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body GridResponse
	decodeBody(t, resp, &body)
	if len(body.Tiles) != 70 || body.Width != 1024 || body.Format != "png" {
		t.Errorf("got %d tiles, %dx%d %s", len(body.Tiles), body.Width, body.Height, body.Format)
	}
	if len(body.Lines.X) != 9 || len(body.Lines.Y) != 6 || body.Lines.X[0] != 102 {
		t.Errorf("lines = %+v", body.Lines)
	}
}

func TestGrid_Invalid(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	tests := []struct {
		name  string
		query string
		body  []byte
		code  sserrors.Code
	}{
		{"zero columns", "columns=0&rows=7", pngBytes(t, 100, 100), sserrors.ErrCodeInvalidGrid},
		{"not a number", "columns=x&rows=7", pngBytes(t, 100, 100), sserrors.ErrCodeInvalidGrid},
		{"image too small", "columns=10&rows=7", pngBytes(t, 5, 5), sserrors.ErrCodeInvalidGrid},
		{"not an image", "columns=2&rows=2", []byte("hello"), sserrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/grid?"+tt.query, "application/octet-stream", bytes.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var body errorBody
			decodeBody(t, resp, &body)
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/preview?columns=2&rows=2&width=50", "image/png", bytes.NewReader(pngBytes(t, 100, 80)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 40 {
		t.Errorf("preview = %v", b)
	}
}

func TestCards(t *testing.T) {
	ts, _ := newTestServer(t, testCards)

	resp, err := http.Get(ts.URL + "/cards/01001")
	if err != nil {
		t.Fatal(err)
	}
	var card arkhamdb.Card
	decodeBody(t, resp, &card)
	if card.Name != "Roland Banks" {
		t.Errorf("card = %+v", card)
	}

	resp, err = http.Get(ts.URL + "/cards/99999")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing card status = %d, want 404", resp.StatusCode)
	}
}

func TestSearch(t *testing.T) {
	ts, _ := newTestServer(t, testCards)
	resp, err := http.Get(ts.URL + "/search?q=agnes")
	if err != nil {
		t.Fatal(err)
	}
	var body SearchResponse
	decodeBody(t, resp, &body)
	if len(body.Cards) != 1 || body.Cards[0].Code != "01004" {
		t.Errorf("cards = %+v", body.Cards)
	}

	ts, _ = newTestServer(t, nil)
	resp, err = http.Get(ts.URL + "/search?q=agnes")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("disabled lookup status = %d, want 501", resp.StatusCode)
	}
}

func exportForm(t *testing.T, req ExportRequest, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("request", string(raw)); err != nil {
		t.Fatal(err)
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestExport(t *testing.T) {
	ts, root := newTestServer(t, testCards)

	req := ExportRequest{
		Folder:     "deck",
		Grid:       gridSpec(2, 1),
		Format:     "png",
		SingleBack: true,
		Resolve:    true,
		Names: []names.TemplateEntry{
			{Tile: 0, Side: names.Front, CardCode: "01001"},
			{Tile: 1, Side: names.Front, Text: "Custom"},
		},
	}
	body, ct := exportForm(t, req, map[string][]byte{
		"front": pngBytes(t, 40, 20),
		"back":  pngBytes(t, 15, 25),
	})
	resp, err := http.Post(ts.URL+"/export", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out ExportResponse
	decodeBody(t, resp, &out)
	if out.Summary.Written != 4 || out.Summary.Failed != 0 {
		t.Fatalf("summary = %+v", out.Summary)
	}

	entries, err := os.ReadDir(filepath.Join(root, "deck"))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	want := []string{"01001 Roland Banks[A].png", "Custom[A].png", "tile01-01[B].png", "tile01-02[B].png"}
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}

	back, err := imaging.Open(filepath.Join(root, "deck", "tile01-02[B].png"))
	if err != nil {
		t.Fatal(err)
	}
	if back.Bounds() != image.Rect(0, 0, 15, 25) {
		t.Errorf("single back tile = %v, want whole back image", back.Bounds())
	}
}

func TestExport_RejectsEscapingFolder(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	for _, folder := range []string{"../outside", "/abs", ""} {
		body, ct := exportForm(t, ExportRequest{Folder: folder, Grid: gridSpec(1, 1)}, map[string][]byte{
			"front": pngBytes(t, 10, 10),
		})
		resp, err := http.Post(ts.URL+"/export", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("folder %q: status = %d, want 400", folder, resp.StatusCode)
		}
	}
}

func TestExport_UploadWithoutStorage(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	body, ct := exportForm(t, ExportRequest{Folder: "x", Grid: gridSpec(1, 1), Upload: true}, map[string][]byte{
		"front": pngBytes(t, 10, 10),
	})
	resp, err := http.Post(ts.URL+"/export", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

func gridSpec(cols, rows int) grid.Spec { return grid.Spec{Columns: cols, Rows: rows} }
