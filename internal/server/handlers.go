package server

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/sheetslicer/pkg/buildinfo"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/sheet"
)

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// GridResponse is the body of POST /grid.
type GridResponse struct {
	grid.Layout
	Format string `json:"format"`
	Lines  Lines  `json:"lines"`
}

// Lines are the interior cut positions for drawing an overlay.
type Lines struct {
	X []int `json:"x"`
	Y []int `json:"y"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sh, err := sheet.Decode(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		s.writeError(w, err)
		return
	}
	layout, err := sh.Layout(spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	xs, ys, _ := grid.Lines(sh.Width, sh.Height, spec)
	writeJSON(w, http.StatusOK, GridResponse{Layout: layout, Format: sh.Format, Lines: Lines{X: xs, Y: ys}})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	sh, err := sheet.Decode(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		s.writeError(w, err)
		return
	}
	img, err := sh.Preview(spec, width)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.logger.Warn("write preview", "err", err)
	}
}

func specFromQuery(r *http.Request) (grid.Spec, error) {
	q := r.URL.Query()
	cols, err1 := strconv.Atoi(q.Get("columns"))
	rows, err2 := strconv.Atoi(q.Get("rows"))
	if err1 != nil || err2 != nil {
		return grid.Spec{}, sserrors.InvalidGrid("columns and rows must be integers")
	}
	spec := grid.Spec{Columns: cols, Rows: rows}
	return spec, spec.Validate()
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query string          `json:"query"`
	Cards []arkhamdb.Card `json:"cards"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Cards == nil {
		s.writeError(w, sserrors.New(sserrors.ErrCodeUnsupported, "card lookup is disabled"))
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	encounter := q.Get("encounter") != "false"

	seq, err := s.opts.Cards.Search(r.Context(), query, encounter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := SearchResponse{Query: query, Cards: []arkhamdb.Card{}}
	for card := range seq {
		resp.Cards = append(resp.Cards, card)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	if s.opts.Cards == nil {
		s.writeError(w, sserrors.New(sserrors.ErrCodeUnsupported, "card lookup is disabled"))
		return
	}
	card, err := s.opts.Cards.Card(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ExportRequest is the "request" field of a POST /export multipart form.
// The "front" file field carries the front sheet, the optional "back" field
// the back sheet.
type ExportRequest struct {
	// Folder is relative to the server's output root.
	Folder string    `json:"folder"`
	Grid   grid.Spec `json:"grid"`

	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`

	// SingleBack uses the whole back image for every back tile.
	SingleBack bool `json:"single_back,omitempty"`

	Names []names.TemplateEntry `json:"names,omitempty"`

	// Resolve looks up cards for entries that carry only a code.
	Resolve bool `json:"resolve,omitempty"`

	// Upload pushes written tiles to object storage.
	Upload bool `json:"upload,omitempty"`
}

// ExportResponse is the body returned by POST /export.
type ExportResponse struct {
	Summary export.Summary `json:"summary"`
	Results []ResultBody   `json:"results"`
	Upload  *UploadBody    `json:"upload,omitempty"`
}

// ResultBody is one tile result.
type ResultBody struct {
	export.Result
	Error string `json:"error,omitempty"`
}

// UploadBody reports an object storage upload.
type UploadBody struct {
	Bucket   string   `json:"bucket"`
	Uploaded []string `json:"uploaded"`
	Failed   []string `json:"failed,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.writeError(w, sserrors.Wrap(sserrors.ErrCodeInvalidInput, err, "multipart form"))
		return
	}

	var req ExportRequest
	if err := json.Unmarshal([]byte(r.FormValue("request")), &req); err != nil {
		s.writeError(w, sserrors.Wrap(sserrors.ErrCodeInvalidInput, err, "request field"))
		return
	}
	if req.Folder == "" || !filepath.IsLocal(req.Folder) {
		s.writeError(w, sserrors.New(sserrors.ErrCodeInvalidPath, "folder must be a relative path inside the output root"))
		return
	}
	if req.Upload && s.opts.Uploader == nil {
		s.writeError(w, sserrors.New(sserrors.ErrCodeUnsupported, "object storage is not configured"))
		return
	}

	p, err := s.pipeline(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	store, err := s.names(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	exportReq := export.Request{Folder: filepath.Join(s.opts.OutputRoot, req.Folder)}
	front, err := s.side(r, "front", req.Grid, store, names.Front, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	exportReq.Front = *front
	if len(r.MultipartForm.File["back"]) > 0 {
		back, err := s.side(r, "back", req.Grid, store, names.Back, req.SingleBack)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if req.SingleBack {
			back.Tiles = front.Tiles
		}
		exportReq.Back = back
	}

	seq, err := p.Run(r.Context(), exportReq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var results []export.Result
	resp := ExportResponse{Results: []ResultBody{}}
	for res := range seq {
		results = append(results, res)
		resp.Results = append(resp.Results, ResultBody{Result: res, Error: res.Message()})
	}
	resp.Summary = export.Summarize(results)

	if req.Upload {
		rep, err := s.opts.Uploader.Upload(r.Context(), results)
		if err != nil {
			s.writeError(w, err)
			return
		}
		up := &UploadBody{Bucket: s.opts.Uploader.Bucket(), Uploaded: rep.Uploaded}
		for _, f := range rep.Failed {
			up.Failed = append(up.Failed, f.Path)
		}
		resp.Upload = up
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) pipeline(req ExportRequest) (*export.Pipeline, error) {
	opts := s.opts.Export
	opts.Logger = s.logger
	if req.Format != "" {
		f, err := export.ParseFormat(req.Format)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}
	if req.Quality != 0 {
		opts.Quality = req.Quality
	}
	return export.New(opts)
}

// names loads the request entries into a fresh store.
func (s *Server) names(ctx context.Context, req ExportRequest) (*names.Store, error) {
	if req.Resolve && s.opts.Cards != nil {
		for i, e := range req.Names {
			if e.Card != nil || e.CardCode == "" {
				continue
			}
			card, err := s.opts.Cards.Card(ctx, e.CardCode)
			if err != nil {
				s.logger.Warn("resolve card", "code", e.CardCode, "err", err)
				continue
			}
			req.Names[i].Card = &card
		}
	}

	store := names.NewStore()
	t := names.Template{Version: names.TemplateVersion, Grid: req.Grid, Entries: req.Names}
	if _, err := store.LoadTemplate(t, req.Grid); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Server) side(r *http.Request, field string, spec grid.Spec, store *names.Store, side names.Side, single bool) (*export.SideJob, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidInput, err, "%s image", field)
	}
	defer f.Close()

	sh, err := sheet.Decode(f)
	if err != nil {
		return nil, err
	}
	job := &export.SideJob{Image: sh.Image, Names: store, Side: side, Single: single}
	if single {
		return job, nil
	}
	layout, err := sh.Layout(spec)
	if err != nil {
		return nil, err
	}
	job.Tiles = layout.Tiles
	return job, nil
}
