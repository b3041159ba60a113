package batch

// MaxItems is the largest number of writes committed in one atomic batch.
const MaxItems = 450

// Limit clamps a configured batch size into (0, MaxItems].
func Limit(size int) int {
	if size <= 0 || size > MaxItems {
		return MaxItems
	}
	return size
}

// Chunks splits items into consecutive slices of at most size elements.
// The final chunk holds the remainder.
func Chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size = Limit(size)
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}
