// Package export cuts sheet images into tiles and writes them as named
// image files.
//
// A [Request] names an output folder and one or two sides. Each side pairs
// an image with its grid tiles and a [NameSource]. [Pipeline.Run] walks the
// front side, then the back side, row-major, and yields one [Result] per
// tile:
//
//	p, err := export.New(export.DefaultOptions())
//	seq, err := p.Run(ctx, export.Request{Folder: "out", Front: front})
//	for r := range seq {
//	    fmt.Println(r.Status, r.Path)
//	}
//
// Per tile the pipeline crops the source (the source image is never
// modified), resolves a file name, encodes, embeds metadata and writes the
// file. A failure marks that tile Failed and the run continues. When the
// context is cancelled the tiles not yet processed are reported Skipped;
// files already written stay on disk.
package export

import (
	"bytes"
	"context"
	"image"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/metadata"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/observability"
)

// NameSource returns the name entry of a tile. [*names.Store] satisfies it.
type NameSource interface {
	Get(idx grid.Index, side names.Side) (names.Entry, bool)
}

// SideJob is one side of a request.
type SideJob struct {
	Image image.Image
	Tiles []grid.Tile
	Names NameSource
	Side  names.Side

	// Single uses the whole image for every tile instead of cropping: one
	// shared card back for the entire sheet.
	Single bool
}

// Request describes one export run.
type Request struct {
	Folder string
	Front  SideJob
	Back   *SideJob

	// RunID identifies the run in results and hooks. Generated when empty.
	RunID string
}

// Pipeline exports tiles with fixed options. It holds no per-run state and
// may run several requests concurrently.
type Pipeline struct {
	opts Options
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

type task struct {
	job   *SideJob
	tile  grid.Tile
	entry names.Entry
	named bool
}

// plan snapshots the names of every tile so the run does not touch the
// name sources after it returns.
func (p *Pipeline) plan(req *Request) ([]task, error) {
	if err := sserrors.ValidateOutputFolder(req.Folder); err != nil {
		return nil, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	jobs := []*SideJob{&req.Front}
	if req.Back != nil {
		jobs = append(jobs, req.Back)
	}

	var tasks []task
	for _, job := range jobs {
		if job.Image == nil {
			return nil, sserrors.New(sserrors.ErrCodeInvalidInput, "%s side has no image", job.Side)
		}
		for _, tile := range job.Tiles {
			t := task{job: job, tile: tile}
			if job.Names != nil {
				t.entry, t.named = job.Names.Get(tile.Index, job.Side)
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Run validates the request and returns a sequence that exports the tiles
// as it is iterated. Stopping the iteration early stops the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (iter.Seq[Result], error) {
	tasks, err := p.plan(&req)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, req, tasks), nil
}

func (p *Pipeline) run(ctx context.Context, req Request, tasks []task) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		start := time.Now()
		hooks := observability.Export()
		hooks.OnExportStart(ctx, req.RunID, p.opts.Format.String(), len(tasks))
		p.opts.Logger.Info("export started", "run", req.RunID, "folder", req.Folder, "tiles", len(tasks), "format", p.opts.Format)

		var written, failed, skipped int
		defer func() {
			d := time.Since(start)
			hooks.OnExportComplete(ctx, req.RunID, written, failed, skipped, d)
			p.opts.Logger.Info("export finished", "run", req.RunID, "written", written, "failed", failed, "skipped", skipped, "duration", d)
		}()

		if err := os.MkdirAll(req.Folder, 0o755); err != nil {
			p.opts.Logger.Warn("create output folder", "folder", req.Folder, "err", err)
		}

		namer := NewNamer()
		for _, t := range tasks {
			var r Result
			if err := ctx.Err(); err != nil {
				r = Result{Index: t.tile.Index, Side: t.job.Side, Status: Skipped, Err: err}
			} else {
				r = p.export(t, req.Folder, namer)
			}
			r.RunID = req.RunID

			switch r.Status {
			case Success:
				written++
			case Failed:
				failed++
				p.opts.Logger.Warn("tile failed", "tile", r.Index, "side", r.Side, "path", r.Path, "err", r.Err)
			case Skipped:
				skipped++
			}
			hooks.OnTileExported(ctx, req.RunID, r.Path, r.Status.String(), r.Err)

			if !yield(r) {
				return
			}
		}
	}
}

// Start runs the request in a background goroutine. The channel receives
// every result and is closed when the run ends. It is buffered for the
// whole run, so a slow reader never blocks the export.
func (p *Pipeline) Start(ctx context.Context, req Request) (<-chan Result, error) {
	tasks, err := p.plan(&req)
	if err != nil {
		return nil, err
	}
	ch := make(chan Result, len(tasks))
	go func() {
		defer close(ch)
		for r := range p.run(ctx, req, tasks) {
			ch <- r
		}
	}()
	return ch, nil
}

// Export runs the request to completion and summarizes it.
func (p *Pipeline) Export(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	seq, err := p.Run(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	var results []Result
	for r := range seq {
		results = append(results, r)
	}
	s := Summarize(results)
	s.Duration = time.Since(start)
	return s, nil
}

func (p *Pipeline) export(t task, folder string, namer *Namer) Result {
	r := Result{Index: t.tile.Index, Side: t.job.Side}
	if p.opts.SkipUnnamed && (!t.named || t.entry.IsZero()) {
		r.Status = Skipped
		return r
	}

	stem := Stem(t.entry, t.tile.Index, t.job.Side, p.opts)
	r.Path = filepath.Join(folder, namer.Unique(stem, p.opts.Format.Ext()))

	img := crop(t.job.Image, t.tile, t.job.Single)
	data, err := p.encode(img)
	if err != nil {
		return failed(r, sserrors.ExportIO(err, "encode %s", filepath.Base(r.Path)))
	}

	var fields metadata.Fields
	if !t.entry.IsZero() {
		fields = metadata.FieldsFor(ResolveName(t.entry, t.tile.Index), cardCode(t.entry), t.entry.Card)
	}
	if data, err = metadata.For(p.opts.Format.String()).Embed(data, fields); err != nil {
		return failed(r, sserrors.ExportIO(err, "embed metadata in %s", filepath.Base(r.Path)))
	}

	if err := os.WriteFile(r.Path, data, 0o644); err != nil {
		return failed(r, sserrors.ExportIO(err, "write %s", r.Path))
	}
	r.Status = Success
	return r
}

func failed(r Result, err error) Result {
	r.Status = Failed
	r.Err = err
	return r
}

// crop copies the tile out of src. imaging.Crop allocates a new image.
func crop(src image.Image, tile grid.Tile, single bool) image.Image {
	if single {
		return imaging.Clone(src)
	}
	return imaging.Crop(src, tile.Rect.Image(src.Bounds().Min))
}

func (p *Pipeline) encode(img image.Image) ([]byte, error) {
	if p.opts.Format.Opaque() {
		img = flatten(img, p.opts)
	}

	var buf bytes.Buffer
	var err error
	switch p.opts.Format {
	case JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.opts.Quality))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case GIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case TIFF:
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case BMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	case WebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(p.opts.Quality)})
	default:
		err = sserrors.New(sserrors.ErrCodeUnsupported, "format %q", p.opts.Format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img over the background color.
func flatten(img image.Image, opts Options) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), opts.Background)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
