// Package server exposes the slicing core over HTTP for an external UI.
//
// Routes:
//
//	GET  /healthz
//	POST /grid?columns=10&rows=7             body: image; returns tile layout and cut lines
//	POST /preview?columns=10&rows=7&width=800 body: image; returns a PNG with cut lines
//	GET  /search?q=roland&encounter=true     card search
//	GET  /cards/{code}                       one card
//	POST /export                             multipart export, see [ExportRequest]
//
// Handlers are thin: each parses input, calls one package function and maps
// the error code to an HTTP status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/storage"
)

// maxUpload bounds request bodies carrying sheet images.
const maxUpload = 64 << 20

// Cards is the card lookup the server uses. [*arkhamdb.Client] satisfies it.
type Cards interface {
	Search(ctx context.Context, query string, includeEncounters bool) (iter.Seq[arkhamdb.Card], error)
	Card(ctx context.Context, code string) (arkhamdb.Card, error)
}

// Options configures a [Server].
type Options struct {
	// Cards serves /search and /cards. Nil disables both routes.
	Cards Cards

	// Export holds the default export options; requests may override the
	// format and quality.
	Export export.Options

	// OutputRoot is the directory export folders are resolved under.
	// Requests can only name folders inside it.
	OutputRoot string

	// Uploader, when set, lets export requests push tiles to object storage.
	Uploader *storage.Uploader

	Logger *log.Logger
}

// Server routes HTTP requests to the core packages.
type Server struct {
	opts   Options
	router *chi.Mux
	logger *log.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.OutputRoot == "" {
		opts.OutputRoot = "."
	}
	s := &Server{opts: opts, router: chi.NewRouter(), logger: opts.Logger}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/grid", s.handleGrid)
	s.router.Post("/preview", s.handlePreview)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/cards/{code}", s.handleCard)
	s.router.Post("/export", s.handleExport)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Code    sserrors.Code `json:"code"`
	Message string        `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := sserrors.GetCode(err)
	if code == "" {
		code = sserrors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= 500 {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: sserrors.UserMessage(err)})
}

func statusFor(code sserrors.Code) int {
	switch code {
	case sserrors.ErrCodeInvalidInput, sserrors.ErrCodeInvalidGrid, sserrors.ErrCodeInvalidFormat,
		sserrors.ErrCodeInvalidPath, sserrors.ErrCodeTemplateMismatch:
		return http.StatusBadRequest
	case sserrors.ErrCodeNotFound, sserrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case sserrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case sserrors.ErrCodeNetwork, sserrors.ErrCodeParse:
		return http.StatusBadGateway
	case sserrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
