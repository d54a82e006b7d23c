package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// clip cuts s to at most width cells.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// clipMiddle cuts s to at most width cells, keeping its head and tail.
// Session sources are paths, where both ends carry meaning.
func clipMiddle(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return clip(ellipsis, width)
	}
	room := width - runewidth.StringWidth(ellipsis)
	head := runewidth.Truncate(s, room-room/2, "")

	runes := []rune(s)
	tail, w := len(runes), 0
	for tail > 0 {
		rw := runewidth.RuneWidth(runes[tail-1])
		if w+rw > room/2 {
			break
		}
		w += rw
		tail--
	}
	return head + ellipsis + string(runes[tail:])
}

func titleBar(title, subtitle string, width int) string {
	line := HeaderStyle.Render("› " + clip(title, width-2))
	if subtitle == "" {
		return line
	}
	if room := width - lipgloss.Width(line) - 3; room > 0 {
		line += "  " + muted(clip(subtitle, room))
	}
	return line
}

func centered(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func muted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}
