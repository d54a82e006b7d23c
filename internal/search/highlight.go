package search

// Rect is a bounding box in terminal cells, relative to the content area.
type Rect struct {
	Top    int
	Left   int
	Width  int
	Height int
}

// Occurrence is an occurrence found in rendered, on-screen text.
type Occurrence struct {
	MessageIndex int
	MessageID    string
	// Rank counts occurrences within the message's rendered text and Total
	// is the number of occurrences in all of it, on screen or not.
	Rank  int
	Total int
	Rect  Rect
}

// Highlight is a visible occurrence ready for the overlay. Ordinal refers to
// the logical match it corresponds to, or -1 when no match could be tied to
// it.
type Highlight struct {
	Ordinal      int
	MessageIndex int
	MessageID    string
	Rect         Rect
}

// CrossReference turns rendered occurrences into highlights, tying each one
// to its logical match where possible. Rendering can add or remove text
// (markup, placeholders), so ordinals are only assigned for messages whose
// rendered occurrence count agrees with the logical one.
func CrossReference(occurrences []Occurrence, matches []Match) []Highlight {
	if len(occurrences) == 0 {
		return nil
	}

	type key struct {
		id    string
		index int
	}
	keyOf := func(id string, index int) key {
		if id != "" {
			return key{id: id}
		}
		return key{index: index}
	}

	logical := make(map[key][]int)
	for _, m := range matches {
		k := keyOf(m.MessageID, m.MessageIndex)
		logical[k] = append(logical[k], m.Ordinal)
	}

	highlights := make([]Highlight, 0, len(occurrences))
	for _, o := range occurrences {
		k := keyOf(o.MessageID, o.MessageIndex)
		ordinal := -1
		if ords := logical[k]; len(ords) == o.Total && o.Rank < len(ords) {
			ordinal = ords[o.Rank]
		}
		highlights = append(highlights, Highlight{
			Ordinal:      ordinal,
			MessageIndex: o.MessageIndex,
			MessageID:    o.MessageID,
			Rect:         o.Rect,
		})
	}
	return highlights
}
