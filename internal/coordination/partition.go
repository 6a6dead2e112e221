// Package coordination assigns each running instance a contiguous slice
// of the fixed shard space and tracks group membership through Redis.
package coordination

import "sort"

// Range is a contiguous, inclusive shard range assigned to one instance.
// An empty range (Start > End) means the member has no work, which
// happens only when there are more members than shards.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range covers no shards.
func (r Range) Empty() bool {
	return r.Start > r.End
}

// Contains reports whether shard falls inside the range.
func (r Range) Contains(shard int) bool {
	return shard >= r.Start && shard <= r.End
}

// Partition splits [0, space) across the members: contiguous equal-width
// slices ordered by sorted member id, remainder distributed one shard
// each to the first members. Every member computes the same answer from
// the same membership snapshot, so no negotiation is needed.
func Partition(members []string, space int) map[string]Range {
	ranges := make(map[string]Range, len(members))
	if len(members) == 0 || space <= 0 {
		return ranges
	}
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)

	width := space / len(sorted)
	remainder := space % len(sorted)
	start := 0
	for i, member := range sorted {
		w := width
		if i < remainder {
			w++
		}
		ranges[member] = Range{Start: start, End: start + w - 1}
		start += w
	}
	return ranges
}
