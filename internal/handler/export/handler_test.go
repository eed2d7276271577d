package export

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tracelight/defectdesk/internal/model/result"
	exportService "github.com/tracelight/defectdesk/internal/service/export"
)

func setupRouter() (*chi.Mux, *exportService.Store) {
	store := exportService.NewStore()
	handler := New(store)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func storeBundle(store *exportService.Store, rows int) string {
	set := make([]result.Row, rows)
	for i := range set {
		set[i] = result.Row{{Column: "Key", Value: fmt.Sprintf("BUG-%d", i+1)}}
	}
	p := store.Present(set, "all bugs")
	return strings.TrimPrefix(p.DownloadURL, "/api/download/summary/")
}

func TestDownloadStoredBundle(t *testing.T) {
	r, store := setupRouter()
	id := storeBundle(store, exportService.SummaryThreshold+10)

	req := httptest.NewRequest(http.MethodGet, "/download/summary/"+id, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}

	disposition := resp.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "attachment") || !strings.Contains(disposition, "query_results_") {
		t.Fatalf("unexpected disposition: %q", disposition)
	}

	body := resp.Body.String()
	if !strings.Contains(body, "Query Results") || !strings.Contains(body, "End of Results") {
		t.Fatalf("document missing frame:\n%s", body)
	}
}

func TestDownloadUnknownBundle(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/download/summary/summary_123_deadbeef", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
