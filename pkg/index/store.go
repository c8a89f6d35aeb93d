package index

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Chunk is a bounded span of a document's extracted text paired with its
// embedding vector. Immutable once added to a store.
type Chunk struct {
	DocumentId uuid.UUID
	Index      int
	Text       string
	Embedding  []float32
}

// Hit is a scored chunk returned from Search.
type Hit struct {
	Chunk Chunk
	Score float64
}

// Store is a session-owned, brute-force vector index. Vectors are assumed
// L2-normalized, so the inner product equals cosine similarity.
type Store struct {
	mu      sync.RWMutex
	chunks  []Chunk
	docSeq  map[uuid.UUID]int // document insertion order, used as tie-break
	nextSeq int
}

func NewStore() *Store {
	return &Store{
		docSeq: make(map[uuid.UUID]int),
	}
}

// Add indexes the chunks of one document. Called exactly once per document,
// only after the whole document embedded successfully.
func (s *Store) Add(docId uuid.UUID, chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docSeq[docId]; !ok {
		s.docSeq[docId] = s.nextSeq
		s.nextSeq++
	}
	s.chunks = append(s.chunks, chunks...)
}

// RemoveDocument drops all chunks of a document immediately, so a deleted
// document can never produce stale retrieval hits.
func (s *Store) RemoveDocument(docId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentId != docId {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	delete(s.docSeq, docId)
}

// Search returns the top-K chunks by descending inner-product score.
// Ties break by (document insertion order, chunk index) so identical queries
// against an unchanged index return identical ordered results.
func (s *Store) Search(vector []float32, topK int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.chunks) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(s.chunks))
	for _, c := range s.chunks {
		hits = append(hits, Hit{Chunk: c, Score: dot(c.Embedding, vector)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		si := s.docSeq[hits[i].Chunk.DocumentId]
		sj := s.docSeq[hits[j].Chunk.DocumentId]
		if si != sj {
			return si < sj
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK]
}

// Len reports the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Release drops all vectors so the memory can be reclaimed after session end.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.docSeq = make(map[uuid.UUID]int)
	s.nextSeq = 0
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
