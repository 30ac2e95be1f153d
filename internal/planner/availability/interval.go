// Package availability derives the free study intervals of a day from the
// user's configured windows and external blocks.
package availability

import "sort"

// Interval is a half-open [Start, End) range in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// Duration returns the interval length in minutes.
func (i Interval) Duration() int { return i.End - i.Start }

// IsEmpty reports whether the interval holds no time.
func (i Interval) IsEmpty() bool { return i.End <= i.Start }

// Subtract removes block from every interval in the set, splitting where the
// block lands in the middle. The result stays ordered and disjoint.
func Subtract(intervals []Interval, block Interval) []Interval {
	if block.IsEmpty() {
		return intervals
	}
	out := make([]Interval, 0, len(intervals)+1)
	for _, iv := range intervals {
		if block.End <= iv.Start || block.Start >= iv.End {
			out = append(out, iv)
			continue
		}
		if block.Start > iv.Start {
			out = append(out, Interval{Start: iv.Start, End: block.Start})
		}
		if block.End < iv.End {
			out = append(out, Interval{Start: block.End, End: iv.End})
		}
	}
	return out
}

// SubtractAll removes every block, normalizing the result.
func SubtractAll(intervals []Interval, blocks []Interval) []Interval {
	out := intervals
	for _, b := range blocks {
		out = Subtract(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// DropShorterThan discards intervals that cannot hold a useful session.
func DropShorterThan(intervals []Interval, minMinutes int) []Interval {
	if minMinutes <= 0 {
		return intervals
	}
	out := intervals[:0]
	for _, iv := range intervals {
		if iv.Duration() >= minMinutes {
			out = append(out, iv)
		}
	}
	return out
}

// TotalMinutes sums the durations of all intervals.
func TotalMinutes(intervals []Interval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}
