package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/storage"
)

func TestKeyHandler_ModifierKey(t *testing.T) {
	cfg := config.TestConfig()
	app := NewApp(&storage.Store{}, cfg, Options{})

	assert.NotNil(t, app.keyHandler)
	assert.Equal(t, "ctrl+", app.keyHandler.modifierKey)
}

func TestKeyHandler_CustomModifier(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Keys.Modifier = "alt"
	app := NewApp(&storage.Store{}, cfg, Options{})
	app.view = ViewTranscript

	assert.Equal(t, "alt+", app.keyHandler.modifierKey)
	app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}, Alt: true})
	assert.True(t, app.finder.IsOpen())
}

func TestKeyHandler_CtrlCQuitsEverywhere(t *testing.T) {
	app := NewApp(&storage.Store{}, config.TestConfig(), Options{})

	for _, v := range []View{ViewSessions, ViewTranscript} {
		app.view = v
		_, cmd := app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestKeyHandler_QuitUnlessTyping(t *testing.T) {
	app := NewApp(&storage.Store{}, config.TestConfig(), Options{})
	q := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}

	_, cmd := app.keyHandler.HandleKey(q)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	app.view = ViewTranscript
	_, cmd = app.keyHandler.HandleKey(q)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlF})
	require.True(t, app.finder.Focused())
	app.keyHandler.HandleKey(q)
	assert.Equal(t, "q", app.finder.RawInput())
}

func TestKeyHandler_TranscriptScrolling(t *testing.T) {
	app := NewApp(&storage.Store{}, config.TestConfig(), Options{})
	app.view = ViewTranscript
	msgs := make([]*storage.Message, 10)
	for i := range msgs {
		msgs[i] = newMsg(string(rune('a'+i)), storage.RoleUser, "text")
	}
	app.transcript.SetMessages(msgs)
	app.transcript.SetSize(40, 6)

	kh := app.keyHandler
	kh.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, app.transcript.Offset())
	kh.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, app.transcript.Offset())

	kh.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	first, last := app.transcript.Range()
	assert.Equal(t, 8, first)
	assert.Equal(t, 9, last)

	kh.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	first, _ = app.transcript.Range()
	assert.Equal(t, 0, first)

	kh.HandleKey(tea.KeyMsg{Type: tea.KeyPgDown})
	first, _ = app.transcript.Range()
	assert.Equal(t, 2, first)
	kh.HandleKey(tea.KeyMsg{Type: tea.KeyPgUp})
	first, _ = app.transcript.Range()
	assert.Equal(t, 0, first)
}

func TestKeyHandler_HelpToggle(t *testing.T) {
	app := NewApp(&storage.Store{}, config.TestConfig(), Options{})
	app.view = ViewTranscript

	app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.True(t, app.help.ShowAll)
	app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.False(t, app.help.ShowAll)
}

func TestKeyHandler_HelpForCurrentView(t *testing.T) {
	app := NewApp(&storage.Store{}, config.TestConfig(), Options{})
	kh := app.keyHandler

	assert.Len(t, kh.helpForCurrentView().ShortHelp(), 2)

	app.view = ViewTranscript
	h := kh.helpForCurrentView()
	assert.Equal(t, kh.keys.Find.Help().Key, h.ShortHelp()[0].Help().Key)
	assert.Len(t, h.FullHelp(), 3)

	app.finder.Open()
	h = kh.helpForCurrentView()
	assert.Equal(t, "next", h.ShortHelp()[0].Help().Desc)
}
