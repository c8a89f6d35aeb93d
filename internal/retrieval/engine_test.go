package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat-be/internal/config"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/index"
	"paperchat-be/pkg/papers"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// fakeProvider answers every query with a fixed vector and counts calls.
type fakeProvider struct {
	vector []float32
	calls  int
}

func (f *fakeProvider) GenerateBatch(_ context.Context, texts []string, _ string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeLookup struct {
	papers map[string]papers.Paper
}

func (f *fakeLookup) Find(_ context.Context, ids []string) (map[string]papers.Paper, error) {
	out := make(map[string]papers.Paper)
	for _, id := range ids {
		if p, ok := f.papers[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{TopK: 5, Threshold: 0.3, Timeout: time.Second}
}

func attachDoc(h *registry.Handle, name string, origin entity.DocumentOrigin, status entity.DocumentStatus) *entity.DocumentRef {
	ref := &entity.DocumentRef{
		Id:        uuid.New(),
		SessionId: h.Id(),
		Origin:    origin,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now(),
	}
	h.AttachDocument(ref)
	return ref
}

func TestRetrieve_EmptyIndexReturnsEmptyWithoutEmbedding(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	provider := &fakeProvider{vector: []float32{1, 0, 0}}
	engine := NewEngine(reg, provider, nil, nopLogger{}, testConfig())

	results, err := engine.Retrieve(context.Background(), h.Id(), "anything", 3)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, provider.calls, "no reason to embed a query against an empty index")
}

func TestRetrieve_UnknownSessionFails(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	engine := NewEngine(reg, &fakeProvider{vector: []float32{1, 0, 0}}, nil, nopLogger{}, testConfig())

	_, err := engine.Retrieve(context.Background(), uuid.New(), "anything", 3)

	assert.Error(t, err)
}

func TestRetrieve_RanksByScoreWithProvenance(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	doc := attachDoc(h, "paper.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)

	h.Index().Add(doc.Id, []index.Chunk{
		{DocumentId: doc.Id, Index: 0, Text: "close", Embedding: []float32{1, 0, 0}},
		{DocumentId: doc.Id, Index: 1, Text: "far", Embedding: []float32{0, 1, 0}},
	})

	engine := NewEngine(reg, &fakeProvider{vector: []float32{1, 0, 0}}, nil, nopLogger{}, testConfig())
	results, err := engine.Retrieve(context.Background(), h.Id(), "query", 5)

	require.NoError(t, err)
	require.Len(t, results, 1, "orthogonal chunk sits below threshold")
	assert.Equal(t, "close", results[0].Chunk.Text)
	assert.Equal(t, doc.Id, results[0].Document.Id)
	assert.Equal(t, "paper.pdf", results[0].Document.Name)
}

func TestRetrieve_SelfSimilarityRankOne(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	doc := attachDoc(h, "paper.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)

	target := []float32{0.6, 0.8, 0}
	h.Index().Add(doc.Id, []index.Chunk{
		{DocumentId: doc.Id, Index: 0, Text: "other", Embedding: []float32{0, 0, 1}},
		{DocumentId: doc.Id, Index: 1, Text: "target", Embedding: target},
		{DocumentId: doc.Id, Index: 2, Text: "near", Embedding: []float32{0.8, 0.6, 0}},
	})

	engine := NewEngine(reg, &fakeProvider{vector: target}, nil, nopLogger{}, testConfig())
	results, err := engine.Retrieve(context.Background(), h.Id(), "the target text itself", 3)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "target", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestRetrieve_DeterministicAcrossRepeats(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	docA := attachDoc(h, "a.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)
	docB := attachDoc(h, "b.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)

	// Equal scores force the tie-break path.
	h.Index().Add(docA.Id, []index.Chunk{{DocumentId: docA.Id, Index: 0, Text: "a0", Embedding: []float32{1, 0, 0}}})
	h.Index().Add(docB.Id, []index.Chunk{{DocumentId: docB.Id, Index: 0, Text: "b0", Embedding: []float32{1, 0, 0}}})

	engine := NewEngine(reg, &fakeProvider{vector: []float32{1, 0, 0}}, nil, nopLogger{}, testConfig())

	first, err := engine.Retrieve(context.Background(), h.Id(), "query", 2)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Retrieve(context.Background(), h.Id(), "query", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieve_OnlyReadyDocumentsSurface(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	ready := attachDoc(h, "ready.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)
	attachDoc(h, "failed.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusFailed)
	attachDoc(h, "inflight.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusEmbedding)

	// Only the ready document was ever indexed; the pipeline indexes nothing
	// for failed or in-flight documents.
	h.Index().Add(ready.Id, []index.Chunk{{DocumentId: ready.Id, Index: 0, Text: "ok", Embedding: []float32{1, 0, 0}}})

	engine := NewEngine(reg, &fakeProvider{vector: []float32{1, 0, 0}}, nil, nopLogger{}, testConfig())
	results, err := engine.Retrieve(context.Background(), h.Id(), "query", 5)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ready.Id, results[0].Document.Id)
}

func TestRetrieve_EnrichesFetchedDocuments(t *testing.T) {
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	h := reg.Create()
	fetched := attachDoc(h, "2101.00001", entity.DocumentOriginFetched, entity.DocumentStatusReady)
	uploaded := attachDoc(h, "notes.pdf", entity.DocumentOriginUploaded, entity.DocumentStatusReady)

	h.Index().Add(fetched.Id, []index.Chunk{{DocumentId: fetched.Id, Index: 0, Text: "f", Embedding: []float32{1, 0, 0}}})
	h.Index().Add(uploaded.Id, []index.Chunk{{DocumentId: uploaded.Id, Index: 0, Text: "u", Embedding: []float32{1, 0, 0}}})

	lookup := &fakeLookup{papers: map[string]papers.Paper{
		"2101.00001": {ArxivId: "2101.00001", Title: "Attention Is All You Need"},
	}}
	engine := NewEngine(reg, &fakeProvider{vector: []float32{1, 0, 0}}, lookup, nopLogger{}, testConfig())

	results, err := engine.Retrieve(context.Background(), h.Id(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Document.Name] = r
	}
	require.NotNil(t, byName["2101.00001"].Paper)
	assert.Equal(t, "Attention Is All You Need", byName["2101.00001"].Paper.Title)
	assert.Nil(t, byName["notes.pdf"].Paper)
}
