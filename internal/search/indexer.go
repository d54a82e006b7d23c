package search

import (
	"github.com/pders01/convo/internal/storage"
)

// Match is one occurrence of the query in the conversation history.
type Match struct {
	// Ordinal is the position of the match in scan order across the history.
	Ordinal      int
	MessageIndex int
	MessageID    string
	// Rank is the position of the match among the matches of its message.
	Rank int
	// Start and End are byte offsets into the plain text of the
	// message.
	Start int
	End   int
}

// Index scans history for opts.Query and returns every match ordered by
// message, then by offset. System messages are never scanned.
func Index(history []*storage.Message, opts Options) ([]Match, error) {
	matcher, err := NewMatcher(opts)
	if err != nil || matcher == nil {
		return nil, err
	}

	var matches []Match
	for i, msg := range history {
		if msg == nil || msg.Role == storage.RoleSystem {
			continue
		}
		text := msg.Content.PlainText()
		for rank, span := range matcher.FindAll(text) {
			matches = append(matches, Match{
				Ordinal:      len(matches),
				MessageIndex: i,
				MessageID:    msg.ID,
				Rank:         rank,
				Start:        span.Start,
				End:          span.End,
			})
		}
	}
	return matches, nil
}

// CountByMessage returns how many matches each message index holds.
func CountByMessage(matches []Match) map[int]int {
	counts := make(map[int]int)
	for _, m := range matches {
		counts[m.MessageIndex]++
	}
	return counts
}
