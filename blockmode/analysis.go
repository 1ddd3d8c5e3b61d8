package blockmode

// RepeatStats summarizes how often blocks recur within a buffer. ECB output
// inherits every repetition of its plaintext, CBC output has none in
// practice.
type RepeatStats struct {
	// Blocks is the number of whole blocks in the buffer.
	Blocks int

	// Distinct is the number of different block values.
	Distinct int

	// Repeated is the number of blocks equal to some earlier block.
	Repeated int
}

// Ratio returns the share of blocks that repeat an earlier block.
func (r RepeatStats) Ratio() float64 {
	if r.Blocks == 0 {
		return 0
	}

	return float64(r.Repeated) / float64(r.Blocks)
}

// AnalyzeRepeats counts repeated blocks in buf. A trailing partial block is
// ignored.
func AnalyzeRepeats(buf []byte) RepeatStats {
	aligned := buf[:len(buf)-len(buf)%BlockSize]

	seen := make(map[Block]struct{})
	stats := RepeatStats{}
	for _, block := range splitBlocks(aligned) {
		stats.Blocks++
		if _, ok := seen[block]; ok {
			stats.Repeated++
			continue
		}
		seen[block] = struct{}{}
	}
	stats.Distinct = len(seen)

	return stats
}

// RepeatedIndices returns, for every block that repeats an earlier one, the
// index of the first block with the same value.
func RepeatedIndices(buf []byte) map[int]int {
	aligned := buf[:len(buf)-len(buf)%BlockSize]

	first := make(map[Block]int)
	repeats := make(map[int]int)
	for i, block := range splitBlocks(aligned) {
		if j, ok := first[block]; ok {
			repeats[i] = j
			continue
		}
		first[block] = i
	}

	return repeats
}
