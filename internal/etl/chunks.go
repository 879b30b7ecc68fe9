package etl

// chunk is a half-open [Start, End) index range over the loaded records.
type chunk struct {
	Start, End int
}

// chunkBounds splits n records across at most workers chunks. Every chunk but
// the last holds n/workers records; the last absorbs the remainder. Fewer
// records than workers yields one chunk per record.
func chunkBounds(n, workers int) []chunk {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	size := n / workers
	chunks := make([]chunk, 0, workers)
	start := 0
	for i := 0; i < workers-1; i++ {
		chunks = append(chunks, chunk{Start: start, End: start + size})
		start += size
	}
	chunks = append(chunks, chunk{Start: start, End: n})
	return chunks
}
