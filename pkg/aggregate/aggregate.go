// Package aggregate computes the summary statistics behind periodic
// reports: bucketing records into calendar periods, duration statistics,
// frequency tables, and aligned count series.
//
// All functions are deterministic: the same records in the same order
// always produce the same output, so regenerating a report from an
// unchanged snapshot is byte-identical.
package aggregate

import (
	"sort"
	"time"

	"github.com/trackstats/trackstats/pkg/period"
)

// Bucket partitions records into calendar periods keyed by the period
// containing at(record). Relative order within each bucket matches the
// input order. Records outside any enumerated reporting range are still
// bucketed; range filtering is the caller's concern.
func Bucket[T any](records []T, at func(T) time.Time, g period.Granularity) map[period.Key][]T {
	buckets := make(map[period.Key][]T)
	for _, r := range records {
		k := period.KeyOf(at(r), g)
		buckets[k] = append(buckets[k], r)
	}
	return buckets
}

// Stats summarizes a set of durations.
type Stats struct {
	Mean   time.Duration
	Median time.Duration
	Count  int
}

// Summarize computes mean and median of ds. The second return value is
// false when ds is empty; an absent statistic is reported explicitly
// rather than as a zero that could be mistaken for an instant resolution.
//
// The median of an even-length input is the mean of the two middle
// values. The input slice is not modified.
func Summarize(ds []time.Duration) (Stats, bool) {
	if len(ds) == 0 {
		return Stats{}, false
	}

	sorted := make([]time.Duration, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Mean:   sum / time.Duration(len(sorted)),
		Median: median,
		Count:  len(sorted),
	}, true
}

// Count is one row of a frequency table.
type Count struct {
	Key string
	N   int
}

// CountBy builds a frequency table over key(record). Rows are ordered by
// descending count; rows with equal counts keep the order in which their
// key first appeared in the input. The ordering is total, so the table is
// stable across runs.
func CountBy[T any](records []T, key func(T) string) []Count {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var keys []string
	for _, r := range records {
		k := key(r)
		if _, ok := counts[k]; !ok {
			firstSeen[k] = len(keys)
			keys = append(keys, k)
		}
		counts[k]++
	}

	out := make([]Count, len(keys))
	for i, k := range keys {
		out[i] = Count{Key: k, N: counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return firstSeen[out[i].Key] < firstSeen[out[j].Key]
	})
	return out
}

// CountSeries projects buckets onto an enumerated period sequence,
// returning one count per period. Periods with no bucket yield zero, so
// two series built from the same period sequence are always aligned.
func CountSeries[T any](buckets map[period.Key][]T, periods []time.Time, g period.Granularity) []int {
	out := make([]int, len(periods))
	for i, p := range periods {
		out[i] = len(buckets[period.KeyOf(p, g)])
	}
	return out
}

// Diff subtracts closed from created pairwise, yielding the net change
// per period. Both series must come from the same period enumeration;
// mismatched lengths are a programming error and panic.
func Diff(created, closed []int) []int {
	if len(created) != len(closed) {
		panic("aggregate: series length mismatch")
	}
	out := make([]int, len(created))
	for i := range created {
		out[i] = created[i] - closed[i]
	}
	return out
}
