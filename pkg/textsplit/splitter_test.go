package textsplit

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := Split("short text", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("got %v, want the input unchanged", chunks)
	}
}

func TestSplitCoversWholeInputWithOverlap(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars
	chunks := Split(text, 1000, 200)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(chunks))
	}

	// The last chunk must end exactly where the input ends.
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Error("last chunk does not terminate the input")
	}

	// Adjacent chunks share content.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-50:]
		if !strings.Contains(chunks[i], strings.TrimSpace(tail[:20])) {
			t.Errorf("chunks %d and %d share no overlap", i-1, i)
		}
	}
}

func TestSplitPrefersWordBoundaries(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 200)
	chunks := Split(text, 1000, 200)

	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d cut mid-word: ...%q", i, c[len(c)-10:])
		}
	}
}

func TestSplitHandlesOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("x", 300)
	chunks := Split(text, 100, 100)

	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c)
	}
	// With overlap >= chunkSize the splitter falls back to disjoint steps.
	if rebuilt.String() != text {
		t.Error("fallback stepping lost or duplicated content")
	}
}
