package finder

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/convo/internal/debuglog"
)

// State is the open/closed lifecycle of the find bar.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// active reports whether searching and highlighting may run at all.
func (m *Model) active() bool {
	return m.state == StateOpen && !m.disabled
}

// IsOpen reports whether the find bar is showing.
func (m *Model) IsOpen() bool {
	return m.state == StateOpen
}

// Disabled reports whether computation is suppressed externally.
func (m *Model) Disabled() bool {
	return m.disabled
}

// Open shows the find bar, focuses the input and selects its contents so the
// next typed character replaces them. Opening an already open bar only
// refocuses and reselects.
func (m *Model) Open() tea.Cmd {
	m.selectAll = m.input.Value() != ""
	focus := m.input.Focus()
	m.input.CursorEnd()
	if m.state == StateOpen {
		return focus
	}

	m.state = StateOpen
	// A fire cancelled by Close never reached the term.
	m.term = m.raw
	debuglog.Debugf("finder: open (term=%q)", m.term)
	if !m.active() {
		return focus
	}
	cmd := m.recompute(false)
	m.refreshHighlights()
	return tea.Batch(focus, cmd, m.startPoll())
}

// Close hides the find bar and drops every derived result. Pending debounce
// fires and poll ticks become stale.
func (m *Model) Close() {
	if m.state == StateClosed {
		return
	}
	m.state = StateClosed
	m.input.Blur()
	m.selectAll = false
	m.clear()
	debuglog.Debugf("finder: closed")
}

// SetDisabled suppresses (or resumes) all computation, for instance while a
// session is loading.
func (m *Model) SetDisabled(disabled bool) tea.Cmd {
	if m.disabled == disabled {
		return nil
	}
	m.disabled = disabled
	if disabled {
		m.clear()
		return nil
	}
	if m.state != StateOpen {
		return nil
	}
	// Input typed while disabled has not been searched yet.
	m.term = m.raw
	cmd := m.recompute(false)
	m.refreshHighlights()
	return tea.Batch(cmd, m.startPoll())
}

// clear drops matches and highlights and cancels timers.
func (m *Model) clear() {
	m.debouncer.Cancel()
	m.pollGen++
	m.matches = nil
	m.current = -1
	m.matchedTerm = ""
	m.err = nil
	m.highlights = nil
}
