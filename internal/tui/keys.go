package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/convo/internal/config"
)

type KeyMap struct {
	Find        key.Binding
	FindNext    key.Binding
	FindPrev    key.Binding
	ToggleCase  key.Binding
	ToggleRegex key.Binding
	CloseFind   key.Binding

	Open    key.Binding
	Compact key.Binding
	Back    key.Binding
	Quit    key.Binding
	Help    key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

// NewKeyMap builds the bindings. Find and Compact combine the configured
// modifier with their letter.
func NewKeyMap(cfg config.KeyConfig) KeyMap {
	mod := cfg.Modifier + "+"
	b := cfg.Bindings
	return KeyMap{
		Find:        key.NewBinding(key.WithKeys(mod+b.Find), key.WithHelp(mod+b.Find, "find")),
		FindNext:    key.NewBinding(key.WithKeys("enter", "ctrl+n"), key.WithHelp("enter", "next")),
		FindPrev:    key.NewBinding(key.WithKeys("shift+enter", "alt+enter", "ctrl+p"), key.WithHelp("alt+enter", "prev")),
		ToggleCase:  key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("alt+c", "case")),
		ToggleRegex: key.NewBinding(key.WithKeys("alt+r"), key.WithHelp("alt+r", "regex")),
		CloseFind:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),

		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Compact: key.NewBinding(key.WithKeys(mod+b.Compact), key.WithHelp(mod+b.Compact, "compact")),
		Back:    key.NewBinding(key.WithKeys(b.Back), key.WithHelp(b.Back, "back")),
		Quit:    key.NewBinding(key.WithKeys(b.Quit, "ctrl+c"), key.WithHelp(b.Quit, "quit")),
		Help:    key.NewBinding(key.WithKeys(b.Help), key.WithHelp(b.Help, "help")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	}
}

// contextHelp adapts a set of bindings to help.KeyMap.
type contextHelp struct {
	short []key.Binding
	full  [][]key.Binding
}

func (c contextHelp) ShortHelp() []key.Binding  { return c.short }
func (c contextHelp) FullHelp() [][]key.Binding { return c.full }
