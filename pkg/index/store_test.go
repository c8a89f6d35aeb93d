package index

import (
	"testing"

	"github.com/google/uuid"
)

func vec(vals ...float32) []float32 { return vals }

func TestSearchRanksByScore(t *testing.T) {
	s := NewStore()
	docA := uuid.New()

	s.Add(docA, []Chunk{
		{DocumentId: docA, Index: 0, Text: "far", Embedding: vec(0, 1)},
		{DocumentId: docA, Index: 1, Text: "near", Embedding: vec(1, 0)},
	})

	hits := s.Search(vec(1, 0), 2)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Chunk.Text != "near" {
		t.Errorf("rank 1 = %q, want %q", hits[0].Chunk.Text, "near")
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not descending: %v then %v", hits[0].Score, hits[1].Score)
	}
}

func TestSearchTieBreakIsDeterministic(t *testing.T) {
	s := NewStore()
	docA := uuid.New()
	docB := uuid.New()

	// Identical embeddings everywhere: pure tie-break territory.
	same := vec(1, 0)
	s.Add(docA, []Chunk{
		{DocumentId: docA, Index: 0, Text: "a0", Embedding: same},
		{DocumentId: docA, Index: 1, Text: "a1", Embedding: same},
	})
	s.Add(docB, []Chunk{
		{DocumentId: docB, Index: 0, Text: "b0", Embedding: same},
	})

	want := []string{"a0", "a1", "b0"}
	for run := 0; run < 5; run++ {
		hits := s.Search(same, 3)
		if len(hits) != 3 {
			t.Fatalf("run %d: hits = %d, want 3", run, len(hits))
		}
		for i, h := range hits {
			if h.Chunk.Text != want[i] {
				t.Errorf("run %d: rank %d = %q, want %q", run, i+1, h.Chunk.Text, want[i])
			}
		}
	}
}

func TestRemoveDocumentLeavesNoStaleHits(t *testing.T) {
	s := NewStore()
	docA := uuid.New()
	docB := uuid.New()

	s.Add(docA, []Chunk{{DocumentId: docA, Index: 0, Text: "gone", Embedding: vec(1, 0)}})
	s.Add(docB, []Chunk{{DocumentId: docB, Index: 0, Text: "kept", Embedding: vec(0, 1)}})

	s.RemoveDocument(docA)

	hits := s.Search(vec(1, 0), 10)
	for _, h := range hits {
		if h.Chunk.DocumentId == docA {
			t.Fatalf("stale hit for removed document: %q", h.Chunk.Text)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	s := NewStore()
	if hits := s.Search(vec(1, 0), 5); len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestReleaseClearsEverything(t *testing.T) {
	s := NewStore()
	docA := uuid.New()
	s.Add(docA, []Chunk{{DocumentId: docA, Index: 0, Text: "x", Embedding: vec(1)}})

	s.Release()

	if s.Len() != 0 {
		t.Errorf("Len after Release = %d, want 0", s.Len())
	}
}
