package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/pders01/convo/internal/storage"
)

const summaryLineWidth = 72

// Compact folds everything but the last keepLast messages into a single
// system summary placed first. Kept messages are returned as-is, IDs
// included. The second result is false when there was nothing to fold.
func Compact(history []*storage.Message, keepLast int) ([]*storage.Message, bool) {
	if keepLast < 0 {
		keepLast = 0
	}
	if len(history) <= keepLast {
		return history, false
	}

	cut := len(history) - keepLast
	folded := history[:cut]
	if len(folded) == 1 && folded[0].Role == storage.RoleSystem {
		return history, false
	}

	summary := &storage.Message{
		ID:        storage.NewID(),
		Role:      storage.RoleSystem,
		Content:   storage.TextContent(summarize(folded)),
		CreatedAt: time.Now(),
	}

	out := make([]*storage.Message, 0, keepLast+1)
	out = append(out, summary)
	out = append(out, history[cut:]...)
	return out, true
}

func summarize(msgs []*storage.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary of %d earlier messages:\n", len(msgs))
	for _, m := range msgs {
		text := strings.Join(strings.Fields(m.Content.PlainText()), " ")
		if text == "" {
			text = "(no text)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.Role, runewidth.Truncate(text, summaryLineWidth, "…"))
	}
	return strings.TrimRight(b.String(), "\n")
}
