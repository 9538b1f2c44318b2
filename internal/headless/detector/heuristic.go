// Package detector decides when a static profile page fetch must be re-fetched in a
// headless browser.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/kolscout/internal/enrich"
)

// Heuristic promotes pages that look like client-rendered shells.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// hydrationMarkers show up in TikTok and Instagram shells before the profile
// header is rendered.
var hydrationMarkers = [][]byte{
	[]byte("__UNIVERSAL_DATA_FOR_REHYDRATION__"),
	[]byte("SIGI_STATE"),
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

var descriptionMarkers = [][]byte{
	[]byte(`data-e2e="user-bio"`),
	[]byte(`property="og:description"`),
	[]byte(`name="description"`),
}

// ShouldPromote reports whether a headless render is needed. A page that
// already carries a description is never promoted.
func (h *Heuristic) ShouldPromote(resp enrich.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	for _, marker := range descriptionMarkers {
		if bytes.Contains(body, marker) {
			return false
		}
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range hydrationMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script elements cover at least a quarter
// of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	for pos := 0; pos < total; {
		rel := strings.Index(lower[pos:], openTag)
		if rel < 0 {
			break
		}
		start := pos + rel
		end := total
		if gt := strings.IndexByte(lower[start:], '>'); gt >= 0 {
			contentStart := start + gt + 1
			if c := strings.Index(lower[contentStart:], closeTag); c >= 0 {
				end = contentStart + c + len(closeTag)
			}
		}
		covered += end - start
		pos = end
	}
	return total > 0 && covered*100/total >= 25
}
