package chart

import (
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tracelight/defectdesk/pkg/utils"
)

// Handler serves rendered chart files from the chart directory.
type Handler struct {
	dir string
}

// New creates the chart handler rooted at dir.
func New(dir string) *Handler {
	return &Handler{dir: dir}
}

// RegisterRoutes mounts the chart routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chart/{filename}", h.handleServeChart)
}

// handleServeChart streams a chart file. Requests that resolve outside the
// chart directory are refused.
func (h *Handler) handleServeChart(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}

	path, ok := h.resolve(filename)
	if !ok {
		log.Printf("[chart] refused path escape attempt: %q", filename)
		utils.RespondError(w, http.StatusForbidden, "access denied")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		utils.RespondError(w, http.StatusNotFound, "chart not found")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "image/png"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline; filename=\""+filepath.Base(path)+"\"")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeFile(w, r, path)
}

// resolve joins filename onto the chart directory and verifies the result
// stays inside it.
func (h *Handler) resolve(filename string) (string, bool) {
	base, err := filepath.Abs(h.dir)
	if err != nil {
		return "", false
	}

	path := filepath.Clean(filepath.Join(base, filename))
	if path != base && !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", false
	}
	if path == base {
		// Bare directory reference, not a file.
		return "", false
	}
	return path, true
}
