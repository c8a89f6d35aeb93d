package chunker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperchat-be/pkg/embedding"
	"paperchat-be/pkg/index"
)

// Worker turns extracted text into overlapping chunks and requests embedding
// vectors in fixed-size batches. Batch failures are retried with bounded
// exponential backoff; exhausting retries fails the whole document so
// retrieval is never silently incomplete.
type Worker struct {
	provider     embedding.Provider
	chunkSize    int
	overlap      int
	batchSize    int
	retries      int
	baseWait     time.Duration
	batchTimeout time.Duration // per provider call; 0 disables
}

func NewWorker(provider embedding.Provider, chunkSize, overlap, batchSize, retries int, batchTimeout time.Duration) *Worker {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	if retries <= 0 {
		retries = 3
	}
	return &Worker{
		provider:     provider,
		chunkSize:    chunkSize,
		overlap:      overlap,
		batchSize:    batchSize,
		retries:      retries,
		baseWait:     500 * time.Millisecond,
		batchTimeout: batchTimeout,
	}
}

// ChunkAndEmbed splits text and embeds every chunk. Chunk order preserves the
// original text order.
func (w *Worker) ChunkAndEmbed(ctx context.Context, docId uuid.UUID, text string) ([]index.Chunk, error) {
	pieces := SplitText(text, w.chunkSize, w.overlap)

	chunks := make([]index.Chunk, 0, len(pieces))
	for start := 0; start < len(pieces); start += w.batchSize {
		end := start + w.batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]

		vectors, err := w.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at chunk %d: %w", start, err)
		}

		for i, v := range vectors {
			chunks = append(chunks, index.Chunk{
				DocumentId: docId,
				Index:      start + i,
				Text:       batch[i],
				Embedding:  v,
			})
		}
	}

	return chunks, nil
}

func (w *Worker) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	wait := w.baseWait

	for attempt := 0; attempt < w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if w.batchTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, w.batchTimeout)
		}
		vectors, err := w.provider.GenerateBatch(callCtx, batch, embedding.TaskRetrievalDocument)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch))
			}
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
