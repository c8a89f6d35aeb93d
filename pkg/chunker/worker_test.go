package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider counts calls and can fail the first N batches.
type fakeProvider struct {
	calls     int
	failFirst int
}

func (f *fakeProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failFirst {
		return nil, errors.New("provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func TestChunkAndEmbedPreservesOrder(t *testing.T) {
	provider := &fakeProvider{}
	w := NewWorker(provider, 10, 2, 2, 3, 0)
	docId := uuid.New()

	text := strings.Repeat("abcdefghij", 5)
	chunks, err := w.ChunkAndEmbed(context.Background(), docId, text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "chunk index out of order")
		assert.Equal(t, docId, c.DocumentId)
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestChunkAndEmbedRetriesThenSucceeds(t *testing.T) {
	provider := &fakeProvider{failFirst: 2}
	w := NewWorker(provider, 100, 0, 4, 3, 0)
	w.baseWait = 0 // don't slow the test down

	chunks, err := w.ChunkAndEmbed(context.Background(), uuid.New(), "tiny text")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, 3, provider.calls)
}

func TestChunkAndEmbedFailsWholeDocument(t *testing.T) {
	provider := &fakeProvider{failFirst: 100}
	w := NewWorker(provider, 100, 0, 4, 3, 0)
	w.baseWait = 0

	chunks, err := w.ChunkAndEmbed(context.Background(), uuid.New(), "tiny text")
	require.Error(t, err)
	assert.Nil(t, chunks, "no partial chunks may survive a failed document")
	assert.Equal(t, 3, provider.calls, "retries must be bounded")
}

func TestChunkAndEmbedHonorsCancellation(t *testing.T) {
	provider := &fakeProvider{failFirst: 100}
	w := NewWorker(provider, 100, 0, 4, 5, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.ChunkAndEmbed(ctx, uuid.New(), "tiny text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
