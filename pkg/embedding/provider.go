package embedding

import (
	"context"
	"math"
)

// Task types passed through to providers that distinguish document vs query
// embeddings. Providers that don't support task types ignore them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Provider generates embeddings in batches. A session's index must only ever
// be written and queried through the same provider/model pair.
type Provider interface {
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// Normalize scales v to unit length in place so inner product equals cosine
// similarity. Zero vectors are left untouched.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
