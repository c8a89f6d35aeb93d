package papers

import (
	"context"
)

// Paper carries the display metadata used to enrich retrieval results.
type Paper struct {
	ArxivId    string
	Title      string
	Abstract   string
	Categories string
}

// Lookup resolves paper metadata by remote document id. Retrieval works
// without it; missing entries just mean unenriched provenance.
type Lookup interface {
	Find(ctx context.Context, ids []string) (map[string]Paper, error)
}
