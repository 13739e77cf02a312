package audio

import "sort"

// Mix averages bufs into a single buffer as long as the longest input.
// Shorter buffers are padded with silence. Every buffer contributes 1/n of
// its samples, so inputs within [-1, 1] never mix outside that range.
func Mix(bufs [][]float32) []float32 {
	if len(bufs) == 0 {
		return []float32{}
	}
	sorted := make([][]float32, len(bufs))
	copy(sorted, bufs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) < len(sorted[j])
	})

	n := float64(len(sorted))
	sum := make([]float64, len(sorted[len(sorted)-1]))
	for _, buf := range sorted {
		for i, v := range buf {
			sum[i] += float64(v) / n
		}
	}
	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = float32(v)
	}
	return out
}
