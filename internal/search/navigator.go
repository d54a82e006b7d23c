package search

// Next returns the position after cur, wrapping to the first match. It is a
// no-op when there are no matches or nothing is selected.
func Next(matches []Match, cur int) int {
	if len(matches) == 0 || cur < 0 || cur >= len(matches) {
		return cur
	}
	return (matches[cur].Ordinal + 1) % len(matches)
}

// Previous is the inverse of Next.
func Previous(matches []Match, cur int) int {
	if len(matches) == 0 || cur < 0 || cur >= len(matches) {
		return cur
	}
	return (matches[cur].Ordinal - 1 + len(matches)) % len(matches)
}

// Reselect picks the current match for a freshly computed match list.
//
// A changed term always focuses the first match. For an unchanged term the
// previous current match is looked up by message ID (or by message index
// when it has no ID) so focus survives history edits that shift positions.
// The occurrence rank inside the message is kept where the message still has
// enough occurrences. Returns -1 when matches is empty.
func Reselect(prevTerm string, prev *Match, matches []Match, newTerm string) int {
	if len(matches) == 0 {
		return -1
	}
	if prevTerm != newTerm || prev == nil {
		return 0
	}

	same := func(m Match) bool {
		if prev.MessageID != "" {
			return m.MessageID == prev.MessageID
		}
		return m.MessageIndex == prev.MessageIndex
	}

	first, count := -1, 0
	for i, m := range matches {
		if same(m) {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if first < 0 {
		return 0
	}

	rank := prev.Rank
	if rank >= count {
		rank = count - 1
	}
	return first + rank
}

// Closest returns the match whose message index is nearest to center. Ties
// go to the lower ordinal. Returns -1 when matches is empty.
func Closest(matches []Match, center int) int {
	best, bestDist := -1, 0
	for i, m := range matches {
		d := m.MessageIndex - center
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
