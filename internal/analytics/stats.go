// Package analytics holds the response-time summary math and the cache
// contract used by the response-time analyzer.
package analytics

import (
	"math"
	"sort"
)

// Summary describes a sample of response times in seconds. Mean, Median and
// P90 are nil when Count is zero so that "no data" is never reported as an
// instant response.
type Summary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean_seconds"`
	Median *float64 `json:"median_seconds"`
	P90    *float64 `json:"p90_seconds"`
}

// HasData reports whether the summary was computed from at least one sample.
func (s Summary) HasData() bool {
	return s.Count > 0
}

// Summarize computes count, mean, median and the 90th percentile.
func Summarize(samples []int64) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}
	sorted := make([]int64, n)
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(n)
	median := Median(sorted)
	p90 := float64(sorted[PercentileRank(n, 0.9)])

	return Summary{Count: n, Mean: &mean, Median: &median, P90: &p90}
}

// Median expects an ascending, non-empty slice.
func Median(sorted []int64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return float64(sorted[mid])
	}
	return (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
}

// PercentileRank returns the 0-indexed rank ceil(p*n)-1 clamped to [0, n-1].
func PercentileRank(n int, p float64) int {
	rank := int(math.Ceil(p*float64(n))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank > n-1 {
		rank = n - 1
	}
	return rank
}
