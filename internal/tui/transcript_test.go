package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/finder"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
)

func newMsg(id string, role storage.Role, text string) *storage.Message {
	return &storage.Message{ID: id, Role: role, Content: storage.TextContent(text)}
}

// newTestView returns a 40x6 view over n single-line user messages. Each
// message renders to three lines, so two fit on screen.
func newTestView(t *testing.T, n int) *transcriptView {
	t.Helper()
	tv := newTranscriptView(config.TestConfig().UI)
	msgs := make([]*storage.Message, n)
	for i := range msgs {
		msgs[i] = newMsg(fmt.Sprintf("m%d", i), storage.RoleUser, fmt.Sprintf("message %d", i))
	}
	tv.SetMessages(msgs)
	tv.SetSize(40, 6)
	return tv
}

func TestTranscriptView_Scrolling(t *testing.T) {
	tv := newTestView(t, 5)

	first, last := tv.Range()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, last)

	tv.ScrollToIndex(4, finder.AlignStart)
	first, last = tv.Range()
	assert.Equal(t, 3, first, "the last message cannot scroll above the bottom")
	assert.Equal(t, 4, last)

	tv.ScrollToIndex(2, finder.AlignCenter)
	assert.Equal(t, 2, tv.CenterIndex())
	first, last = tv.Range()
	assert.Equal(t, 1, first)
	assert.Equal(t, 3, last)
	assert.Equal(t, 2, tv.Offset())

	tv.GotoTop()
	first, _ = tv.Range()
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, tv.Offset())

	tv.GotoBottom()
	first, last = tv.Range()
	assert.Equal(t, 3, first)
	assert.Equal(t, 4, last)

	tv.ScrollBy(-1)
	first, _ = tv.Range()
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, tv.Offset())
}

func TestTranscriptView_Empty(t *testing.T) {
	tv := newTranscriptView(config.TestConfig().UI)
	tv.SetSize(40, 4)

	first, last := tv.Range()
	assert.Equal(t, -1, first)
	assert.Equal(t, -1, last)
	assert.Equal(t, -1, tv.CenterIndex())
	assert.Len(t, tv.Lines(), 4)
	assert.Nil(t, tv.LocateOccurrences("x", finder.LocateOptions{}))

	tv.ScrollToIndex(3, finder.AlignCenter)
	tv.GotoBottom()
	tv.ScrollBy(10)
}

func TestTranscriptView_SetMessagesKeepsAnchor(t *testing.T) {
	tv := newTestView(t, 5)
	tv.ScrollToIndex(2, finder.AlignStart)

	prepended := append([]*storage.Message{newMsg("new", storage.RoleUser, "earlier")}, tv.messages...)
	tv.SetMessages(prepended)
	first, _ := tv.Range()
	assert.Equal(t, 3, first)
	assert.Equal(t, "m2", tv.messages[first].ID)

	// Losing the anchor resets to the top.
	tv.SetMessages([]*storage.Message{newMsg("a", storage.RoleUser, "a"), newMsg("b", storage.RoleUser, "b")})
	first, _ = tv.Range()
	assert.Equal(t, 0, first)
}

func TestTranscriptView_Lines(t *testing.T) {
	tv := newTestView(t, 5)

	lines := tv.Lines()
	require.Len(t, lines, 6)
	assert.Equal(t, "User", ansi.Strip(lines[0]))
	assert.Equal(t, "  message 0", ansi.Strip(lines[1]))
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "User", ansi.Strip(lines[3]))

	tv.ScrollBy(1)
	lines = tv.Lines()
	require.Len(t, lines, 6)
	assert.Equal(t, "  message 0", ansi.Strip(lines[0]))
}

func TestTranscriptView_RenderCache(t *testing.T) {
	tv := newTestView(t, 2)

	a := tv.render(0)
	assert.Same(t, a, tv.render(0))

	tv.SetSize(60, 6)
	assert.NotSame(t, a, tv.render(0), "width is part of the cache key")

	tv.messages[0] = newMsg("m0", storage.RoleUser, "edited")
	tv.hashes = make(map[*storage.Message]uint64)
	assert.Equal(t, "  edited", ansi.Strip(tv.render(0).lines[1]))
}

func TestTranscriptView_EmptyContent(t *testing.T) {
	tv := newTranscriptView(config.TestConfig().UI)
	tv.SetMessages([]*storage.Message{newMsg("e", storage.RoleAssistant, "  ")})
	tv.SetSize(40, 3)

	lines := tv.Lines()
	assert.Equal(t, "Assistant", ansi.Strip(lines[0]))
	assert.Equal(t, "  (no content)", ansi.Strip(lines[1]))
}

func TestTranscriptView_Markdown(t *testing.T) {
	cfg := config.TestConfig()
	cfg.UI.Markdown = true
	tv := newTranscriptView(cfg.UI)
	tv.SetMessages([]*storage.Message{
		newMsg("a", storage.RoleAssistant, "some **bold** text"),
		newMsg("u", storage.RoleUser, "some **bold** text"),
	})
	tv.SetSize(60, 12)

	assistant := ansi.Strip(strings.Join(tv.render(0).body(), "\n"))
	assert.Contains(t, assistant, "bold")
	assert.Contains(t, assistant, "text")

	user := ansi.Strip(strings.Join(tv.render(1).body(), "\n"))
	assert.Equal(t, "  some **bold** text", user, "only assistant messages are rendered as markdown")
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		name    string
		content storage.Content
		want    string
	}{
		{"plain", storage.TextContent("hello"), "hello"},
		{
			"parts",
			storage.PartsContent(
				storage.Part{Type: storage.PartText, Text: "look"},
				storage.Part{Type: storage.PartImage, URL: "a.png"},
				storage.Part{Type: storage.PartToolCall, Name: "grep"},
				storage.Part{Type: storage.PartToolResult},
				storage.Part{Type: storage.PartText, Text: "done"},
			),
			"look\n[image]\n[tool call: grep]\n[tool result]\ndone",
		},
		{"empty parts", storage.PartsContent(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayText(tt.content))
		})
	}
}

func TestLocateOccurrences(t *testing.T) {
	tv := newTranscriptView(config.TestConfig().UI)
	tv.SetMessages([]*storage.Message{
		newMsg("u1", storage.RoleUser, "find me and FIND me"),
		newMsg("s1", storage.RoleSystem, "find"),
		newMsg("u2", storage.RoleUser, "nothing"),
		newMsg("u3", storage.RoleUser, "find off screen"),
	})
	tv.SetSize(40, 9)

	occ := tv.LocateOccurrences("find", finder.LocateOptions{VerticalOffset: 2})
	require.Len(t, occ, 2)

	assert.Equal(t, "u1", occ[0].MessageID)
	assert.Equal(t, 0, occ[0].Rank)
	assert.Equal(t, 2, occ[0].Total)
	assert.Equal(t, search.Rect{Top: 3, Left: 2, Width: 4, Height: 1}, occ[0].Rect)

	assert.Equal(t, 1, occ[1].Rank)
	assert.Equal(t, search.Rect{Top: 3, Left: 14, Width: 4, Height: 1}, occ[1].Rect)

	occ = tv.LocateOccurrences("find", finder.LocateOptions{CaseSensitive: true})
	require.Len(t, occ, 1)
	assert.Equal(t, 1, occ[0].Total)

	occ = tv.LocateOccurrences("f.nd", finder.LocateOptions{UseRegex: true})
	assert.Len(t, occ, 2)

	assert.Nil(t, tv.LocateOccurrences("(", finder.LocateOptions{UseRegex: true}))
	assert.Nil(t, tv.LocateOccurrences("", finder.LocateOptions{}))
}

func TestLocateOccurrences_PartiallyScrolled(t *testing.T) {
	tv := newTranscriptView(config.TestConfig().UI)
	tv.SetMessages([]*storage.Message{
		newMsg("u1", storage.RoleUser, "needle"),
		newMsg("u2", storage.RoleUser, "needle"),
		newMsg("u3", storage.RoleUser, "needle"),
	})
	tv.SetSize(40, 4)
	tv.ScrollBy(2)

	// The first message's body is scrolled out; its blank separator is row 0.
	occ := tv.LocateOccurrences("needle", finder.LocateOptions{})
	require.Len(t, occ, 1)
	assert.Equal(t, "u2", occ[0].MessageID)
	assert.Equal(t, 2, occ[0].Rect.Top)
}

func TestPaintHighlights(t *testing.T) {
	lines := []string{"header", "  hello world", ""}
	highlights := []search.Highlight{
		{Ordinal: 0, Rect: search.Rect{Top: 1, Left: 2, Width: 5, Height: 1}},
		{Ordinal: 1, Rect: search.Rect{Top: 1, Left: 8, Width: 5, Height: 1}},
		{Ordinal: 2, Rect: search.Rect{Top: 9, Left: 0, Width: 3, Height: 1}},
	}

	painted := paintHighlights(lines, highlights, 1)
	require.Len(t, painted, 3)
	assert.Equal(t, "  hello world", ansi.Strip(painted[1]))
	assert.Equal(t, "  hello world", lines[1], "input lines are not modified")
	assert.Equal(t, "header", painted[0])

	assert.Equal(t, lines, paintHighlights(lines, nil, -1))
}

func TestPaintCells(t *testing.T) {
	line := "hello world"

	painted := paintCells(line, 6, 11, MatchStyle)
	assert.Equal(t, line, ansi.Strip(painted))

	assert.Equal(t, line, paintCells(line, 20, 25, MatchStyle))
	assert.Equal(t, line, paintCells(line, 5, 5, MatchStyle))

	clipped := paintCells(line, -3, 30, MatchStyle)
	assert.Equal(t, line, ansi.Strip(clipped))
}
