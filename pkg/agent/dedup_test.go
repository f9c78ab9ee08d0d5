package agent

import "testing"

func chunkOf(content, source string) Chunk {
	return Chunk{Content: content, Metadata: map[string]string{"source": source}}
}

func TestDeduplicateRemovesIdenticalContent(t *testing.T) {
	// Identical content from different sub-question retrievals collapses
	// to the first occurrence, even when sources differ.
	in := []Chunk{
		chunkOf("X is a thing", "a.txt"),
		chunkOf("Y is another thing", "b.txt"),
		chunkOf("X is a thing", "c.txt"),
	}

	out := Deduplicate(in)

	if len(out) != 2 {
		t.Fatalf("got %d chunks, want 2", len(out))
	}
	if out[0].Source() != "a.txt" {
		t.Errorf("first occurrence source = %q, want a.txt", out[0].Source())
	}
	if out[1].Content != "Y is another thing" {
		t.Errorf("order not preserved: %q", out[1].Content)
	}
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	in := []Chunk{
		chunkOf("alpha", "a.txt"),
		chunkOf("beta", "b.txt"),
		chunkOf("alpha", "a.txt"),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)

	if len(once) != len(twice) {
		t.Fatalf("second pass changed length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Content != twice[i].Content {
			t.Errorf("chunk %d changed: %q vs %q", i, once[i].Content, twice[i].Content)
		}
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	if got := Deduplicate(nil); len(got) != 0 {
		t.Errorf("got %d chunks for nil input", len(got))
	}
}
