package tui

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "long t…", clip("long title", 7))
	assert.Equal(t, "", clip("anything", 0))
}

func TestClipMiddle(t *testing.T) {
	assert.Equal(t, "/tmp/a.json", clipMiddle("/tmp/a.json", 20))

	got := clipMiddle("/home/user/chats/debugging.json", 15)
	assert.Equal(t, 15, runewidth.StringWidth(got))
	assert.Equal(t, "/home/u…ng.json", got)

	wide := clipMiddle("会話のログファイル.json", 12)
	assert.LessOrEqual(t, runewidth.StringWidth(wide), 12)
	assert.Contains(t, wide, ellipsis)

	assert.Equal(t, "…", clipMiddle("abc", 1))
	assert.Equal(t, "", clipMiddle("abc", 0))
}

func TestTitleBar(t *testing.T) {
	bar := ansi.Strip(titleBar("Debugging", "3 messages", 40))
	assert.Equal(t, "› Debugging  3 messages", bar)

	narrow := ansi.Strip(titleBar("Debugging", "3 messages", 12))
	assert.NotContains(t, narrow, "messages")
}
