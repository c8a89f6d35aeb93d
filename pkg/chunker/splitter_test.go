package chunker

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short", 100, 10)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("chunks = %v, want [short]", chunks)
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 10) + strings.Repeat("b", 10)
	chunks := SplitText(text, 12, 4)

	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want >= 2", len(chunks))
	}

	// Each chunk after the first must start with the tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-4:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap previous: %q then %q", i, prev, chunks[i])
		}
	}

	// Reassembly: stripping overlaps reconstructs the original text.
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		sb.WriteString(chunks[i][4:])
	}
	if sb.String() != text {
		t.Errorf("reassembled = %q, want %q", sb.String(), text)
	}
}

func TestSplitTextOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("x", 50)
	chunks := SplitText(text, 10, 20) // step falls back to chunkSize
	if len(chunks) != 5 {
		t.Errorf("chunks = %d, want 5", len(chunks))
	}
}

func TestCapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{"under cap", "hello", 10, "hello"},
		{"at cap", "hello", 5, "hello"},
		{"over cap", "hello world", 5, "hello"},
		{"cap disabled", "hello", 0, "hello"},
		{"multibyte", "héllo wörld", 7, "héllo w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapText(tt.text, tt.maxChars)
			if got != tt.want {
				t.Errorf("CapText = %q, want %q", got, tt.want)
			}
		})
	}
}
