// Package position computes ordering keys for tasks without renumbering
// the whole table. Appends leave a gap of 1000 between neighbours; page
// reorders rewrite the page's whole band, so page N and page M can never
// hand out the same value.
package position

// Gap is the spacing between consecutive positions. With int64 positions
// the scheme runs out of room after ~9.2e15 assigned slots, which is not
// worth bounding tighter.
const Gap int64 = 1000

// Next returns the position for a task appended after the current highest
// active position. Pass hasActive=false when the owner has no active tasks.
func Next(lastActive int64, hasActive bool) int64 {
	if !hasActive {
		return Gap
	}
	return lastActive + Gap
}

// ForIndex returns the position of the item at index (0-based) on the
// given page. Each page owns a disjoint band of width limit*Gap, so
// rewriting one page cannot collide with rows on another page, and
// repeating the same arrangement reassigns identical values.
func ForIndex(page, limit, index int) int64 {
	offset := int64(page-1) * int64(limit)
	return (offset + int64(index) + 1) * Gap
}

// Renumber returns the full band for n items on a page, in order.
func Renumber(page, limit, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = ForIndex(page, limit, i)
	}
	return out
}
