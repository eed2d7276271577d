package export

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelight/defectdesk/internal/model/result"
)

// ErrBundleNotFound is returned for export requests against unknown or
// already-reaped bundles.
var ErrBundleNotFound = errors.New("bundle not found")

// Presentation limits.
const (
	// SummaryThreshold is the largest result set still shown inline.
	SummaryThreshold = 50
	// PreviewRows caps the preview shown for summarized result sets.
	PreviewRows = 10
	// BundleTTL is how long a stored bundle stays exportable.
	BundleTTL = time.Hour
)

// Presentation is the display decision for a result set.
type Presentation struct {
	Text        string
	Kind        string
	DownloadURL string
}

// Presentation kinds.
const (
	KindText    = "text"
	KindSummary = "summary"
)

// Store keeps full-result snapshots for later export. Bundles are immutable
// once stored and reaped on a timeout.
type Store struct {
	mu      sync.RWMutex
	bundles map[string]*result.Bundle
}

// NewStore bootstraps the in-memory bundle store.
func NewStore() *Store {
	return &Store{bundles: make(map[string]*result.Bundle)}
}

// Present renders rows inline when they fit under the threshold; otherwise it
// snapshots the full set into a fresh bundle and returns a preview plus the
// download reference.
func (s *Store) Present(rows []result.Row, originalQuery string) Presentation {
	if len(rows) <= SummaryThreshold {
		return Presentation{Text: formatInline(rows), Kind: KindText}
	}

	bundle := &result.Bundle{
		ID:        newBundleID(),
		Query:     originalQuery,
		Rows:      append([]result.Row(nil), rows...),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.bundles[bundle.ID] = bundle
	s.mu.Unlock()

	downloadURL := "/api/download/summary/" + bundle.ID
	return Presentation{
		Text:        formatSummary(rows, downloadURL),
		Kind:        KindSummary,
		DownloadURL: downloadURL,
	}
}

// Export generates the fixed-width document for a stored bundle on demand.
func (s *Store) Export(bundleID string) (string, error) {
	s.mu.RLock()
	bundle, ok := s.bundles[bundleID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrBundleNotFound
	}

	return formatDocument(bundle), nil
}

// Sweep purges bundles older than the TTL and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, bundle := range s.bundles {
		if now.Sub(bundle.CreatedAt) > BundleTTL {
			delete(s.bundles, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored bundles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bundles)
}

func newBundleID() string {
	return fmt.Sprintf("summary_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
