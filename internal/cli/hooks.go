package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetslicer/pkg/observability"
)

// logHooks forwards library events to the debug log.
type logHooks struct {
	logger *log.Logger
}

func (c *CLI) registerHooks() {
	h := &logHooks{logger: c.Logger}
	observability.SetExportHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *logHooks) OnExportStart(_ context.Context, runID, format string, tiles int) {
	h.logger.Debug("export started", "run", runID, "format", format, "tiles", tiles)
}

func (h *logHooks) OnTileExported(_ context.Context, runID, path, status string, err error) {
	if err != nil {
		h.logger.Debug("tile", "run", runID, "path", path, "status", status, "err", err)
		return
	}
	h.logger.Debug("tile", "run", runID, "path", path, "status", status)
}

func (h *logHooks) OnExportComplete(_ context.Context, runID string, written, failed, skipped int, d time.Duration) {
	h.logger.Debug("export complete", "run", runID, "written", written, "failed", failed,
		"skipped", skipped, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnCacheHit(_ context.Context, namespace string) {
	h.logger.Debug("cache hit", "ns", namespace)
}

func (h *logHooks) OnCacheMiss(_ context.Context, namespace string) {
	h.logger.Debug("cache miss", "ns", namespace)
}

func (h *logHooks) OnCacheSet(_ context.Context, namespace string, size int) {
	h.logger.Debug("cache set", "ns", namespace, "bytes", size)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path,
		"status", status, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ observability.ExportHooks = (*logHooks)(nil)
	_ observability.CacheHooks  = (*logHooks)(nil)
	_ observability.HTTPHooks   = (*logHooks)(nil)
)
