package batch

import "testing"

func TestChunks(t *testing.T) {
	t.Parallel()

	items := make([]int, 1001)
	for i := range items {
		items[i] = i
	}

	chunks := Chunks(items, 450)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 450 || len(chunks[1]) != 450 || len(chunks[2]) != 101 {
		t.Fatalf("unexpected chunk sizes: %d %d %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][0] != 900 || chunks[2][100] != 1000 {
		t.Fatalf("final chunk holds the wrong items")
	}

	if got := Chunks([]int{}, 10); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestLimit(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 450, -1: 450, 1: 1, 450: 450, 500: 450}
	for in, want := range cases {
		if got := Limit(in); got != want {
			t.Fatalf("Limit(%d)=%d, want %d", in, got, want)
		}
	}
}
