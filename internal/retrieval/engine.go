package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"paperchat-be/internal/config"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/embedding"
	"paperchat-be/pkg/index"
	"paperchat-be/pkg/papers"
)

// Result is one retrieved chunk with provenance and optional paper metadata.
type Result struct {
	Chunk    index.Chunk
	Score    float64
	Document entity.DocumentRef
	Paper    *papers.Paper
}

// Engine embeds a query with the same provider used for indexing and ranks
// the session's ready chunks by similarity.
type Engine struct {
	reg      *registry.Registry
	provider embedding.Provider
	lookup   papers.Lookup // nil disables enrichment
	logger   logger.ILogger
	cfg      config.RetrievalConfig
}

func NewEngine(
	reg *registry.Registry,
	provider embedding.Provider,
	lookup papers.Lookup,
	log logger.ILogger,
	cfg config.RetrievalConfig,
) *Engine {
	return &Engine{
		reg:      reg,
		provider: provider,
		lookup:   lookup,
		logger:   log,
		cfg:      cfg,
	}
}

// Retrieve returns the top-K chunks for a query. An empty index yields an
// empty result, not an error.
func (e *Engine) Retrieve(ctx context.Context, sessionId uuid.UUID, query string, k int) ([]Result, error) {
	h, err := e.reg.Get(sessionId)
	if err != nil {
		return nil, err
	}

	if h.Index().Len() == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = e.cfg.TopK
	}

	vectors, err := e.provider.GenerateBatch(ctx, []string{query}, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("provider returned %d vectors for one query", len(vectors))
	}

	hits := h.Index().Search(vectors[0], k)

	// Only chunks of ready documents are ever indexed, but the doc may have
	// been deleted between search and snapshot; skip those.
	docs := make(map[uuid.UUID]entity.DocumentRef)
	for _, d := range h.ReadyDocuments() {
		docs[d.Id] = d
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < e.cfg.Threshold {
			continue
		}
		doc, ok := docs[hit.Chunk.DocumentId]
		if !ok {
			continue
		}
		results = append(results, Result{
			Chunk:    hit.Chunk,
			Score:    hit.Score,
			Document: doc,
		})
	}

	e.enrich(ctx, results)

	e.logger.Debug("Retrieval", "Query served", map[string]interface{}{
		"session_id": sessionId,
		"hits":       len(results),
	})

	return results, nil
}

// enrich attaches paper metadata to fetched-by-id documents. Lookup failures
// only cost display data, never the retrieval itself.
func (e *Engine) enrich(ctx context.Context, results []Result) {
	if e.lookup == nil {
		return
	}

	var ids []string
	for _, r := range results {
		if r.Document.Origin == entity.DocumentOriginFetched {
			ids = append(ids, r.Document.Name)
		}
	}
	if len(ids) == 0 {
		return
	}

	found, err := e.lookup.Find(ctx, ids)
	if err != nil {
		e.logger.Warn("Retrieval", "Paper metadata lookup failed", map[string]interface{}{"error": err.Error()})
		return
	}

	for i := range results {
		if paper, ok := found[results[i].Document.Name]; ok {
			p := paper
			results[i].Paper = &p
		}
	}
}
