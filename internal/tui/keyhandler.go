package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/convo/internal/config"
)

// KeyHandler routes key presses. Find bar shortcuts are resolved first and
// everything they match is consumed; the rest goes to the active view.
type KeyHandler struct {
	app         *App
	keys        KeyMap
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{
		app:         app,
		keys:        NewKeyMap(cfg.Keys),
		modifierKey: cfg.Keys.Modifier + "+",
	}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return kh.app, tea.Quit
	}

	switch kh.app.view {
	case ViewTranscript:
		if cmd, handled := kh.handleFindKeys(msg); handled {
			return kh.app, cmd
		}
		return kh.app, kh.handleTranscriptKeys(msg)
	default:
		return kh.handleSessionKeys(msg)
	}
}

// handleFindKeys owns the find bar shortcuts. While the input has focus every
// key except compact ends up here, so nothing typed into the query leaks to
// the transcript.
func (kh *KeyHandler) handleFindKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	f := kh.app.finder

	if key.Matches(msg, kh.keys.Find) {
		wasOpen := f.IsOpen()
		cmd := f.Open()
		if !wasOpen {
			kh.app.layout()
		}
		return cmd, true
	}

	if !f.IsOpen() || !f.Focused() {
		return nil, false
	}

	switch {
	case key.Matches(msg, kh.keys.CloseFind):
		f.Close()
		kh.app.layout()
		return nil, true
	case key.Matches(msg, kh.keys.FindNext):
		return f.Next(), true
	case key.Matches(msg, kh.keys.FindPrev):
		return f.Previous(), true
	case key.Matches(msg, kh.keys.ToggleCase):
		return f.ToggleCaseSensitive(), true
	case key.Matches(msg, kh.keys.ToggleRegex):
		return f.ToggleRegex(), true
	case key.Matches(msg, kh.keys.Compact):
		return nil, false
	}
	return f.HandleKey(msg), true
}

func (kh *KeyHandler) handleTranscriptKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	t := a.transcript

	switch {
	case key.Matches(msg, kh.keys.Back):
		a.closeSession()
		return nil
	case key.Matches(msg, kh.keys.Quit):
		return tea.Quit
	case key.Matches(msg, kh.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.layout()
		return nil
	case key.Matches(msg, kh.keys.Compact):
		if a.current == nil || a.loading {
			return nil
		}
		return tea.Batch(
			a.setStatus(MsgCompacting, StatusInfo, 0),
			a.compactSession(a.current, a.history),
		)
	case key.Matches(msg, kh.keys.Up):
		t.ScrollBy(-1)
	case key.Matches(msg, kh.keys.Down):
		t.ScrollBy(1)
	case key.Matches(msg, kh.keys.PageUp):
		t.ScrollBy(-t.height)
	case key.Matches(msg, kh.keys.PageDown):
		t.ScrollBy(t.height)
	case key.Matches(msg, kh.keys.Top):
		t.GotoTop()
	case key.Matches(msg, kh.keys.Bottom):
		t.GotoBottom()
	}
	return nil
}

func (kh *KeyHandler) handleSessionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	// While filtering, the list owns every key.
	if a.sessionList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, kh.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, kh.keys.Open):
			if i, ok := a.sessionList.SelectedItem().(sessionItem); ok {
				return a, a.openSession(i.session.ID)
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.sessionList, cmd = a.sessionList.Update(msg)
	return a, cmd
}

// helpForCurrentView returns the bindings worth showing right now.
func (kh *KeyHandler) helpForCurrentView() contextHelp {
	k := kh.keys
	switch {
	case kh.app.view == ViewTranscript && kh.app.finder.IsOpen():
		short := []key.Binding{k.FindNext, k.FindPrev, k.ToggleCase, k.ToggleRegex, k.CloseFind}
		return contextHelp{short: short, full: [][]key.Binding{short, {k.Up, k.Down, k.PageUp, k.PageDown}}}
	case kh.app.view == ViewTranscript:
		short := []key.Binding{k.Find, k.Compact, k.Back, k.Help}
		return contextHelp{
			short: short,
			full:  [][]key.Binding{short, {k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom}, {k.Quit}},
		}
	default:
		return contextHelp{short: []key.Binding{k.Open, k.Quit}}
	}
}
