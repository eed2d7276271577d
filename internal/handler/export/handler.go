package export

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	exportService "github.com/tracelight/defectdesk/internal/service/export"
	"github.com/tracelight/defectdesk/pkg/utils"
)

// Handler serves downloadable result documents for stored bundles.
type Handler struct {
	bundles *exportService.Store
}

// New creates the export handler.
func New(bundles *exportService.Store) *Handler {
	return &Handler{bundles: bundles}
}

// RegisterRoutes mounts the download routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/download/summary/{summaryID}", h.handleDownload)
}

// handleDownload renders the fixed-width document for a bundle and serves it
// as an attachment. Expired or unknown bundles yield 404.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	summaryID := chi.URLParam(r, "summaryID")

	doc, err := h.bundles.Export(summaryID)
	if err != nil {
		if errors.Is(err, exportService.ErrBundleNotFound) {
			utils.RespondError(w, http.StatusNotFound, "summary not found or expired")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate document")
		return
	}

	filename := "query_results_" + time.Now().Format("20060102_150405") + ".txt"
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}
