package finder

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/convo/internal/search"
)

// LocateOptions mirrors the search flags for on-screen lookups.
// VerticalOffset is added to every rectangle's Top so boxes land below a
// fixed header.
type LocateOptions struct {
	CaseSensitive  bool
	UseRegex       bool
	VerticalOffset int
}

// Locator finds term occurrences in whatever the transcript has rendered.
type Locator interface {
	LocateOccurrences(term string, opts LocateOptions) []search.Occurrence
}

type pollTickMsg struct {
	gen int
}

type refreshMsg struct{}

// deferRefresh schedules a highlight refresh once the current update has
// been applied and rendered.
func deferRefresh() tea.Cmd {
	return func() tea.Msg { return refreshMsg{} }
}

// RefreshHighlights recomputes highlights from scratch. Callers use it when
// the rendered range changes, on resize and on clicks in the transcript.
func (m *Model) RefreshHighlights() {
	if m.active() {
		m.refreshHighlights()
	}
}

func (m *Model) refreshHighlights() {
	if !m.active() || m.term == "" || m.locator == nil || m.err != nil {
		m.highlights = nil
		return
	}
	occurrences := m.locator.LocateOccurrences(m.term, LocateOptions{
		CaseSensitive:  m.caseSensitive,
		UseRegex:       m.useRegex,
		VerticalOffset: m.headerHeight,
	})
	m.highlights = search.CrossReference(occurrences, m.matches)
}

// Highlights returns the rectangles for the rendered occurrences.
func (m *Model) Highlights() []search.Highlight {
	return m.highlights
}

// SetHeaderHeight updates the offset applied to highlight rectangles.
func (m *Model) SetHeaderHeight(h int) {
	if h == m.headerHeight {
		return
	}
	m.headerHeight = h
	m.RefreshHighlights()
}

func (m *Model) HeaderHeight() int { return m.headerHeight }

// startPoll arms a fresh poll loop, invalidating any earlier one.
func (m *Model) startPoll() tea.Cmd {
	m.pollGen++
	return m.nextPoll()
}

func (m *Model) nextPoll() tea.Cmd {
	if m.opts.HighlightPoll <= 0 {
		return nil
	}
	gen := m.pollGen
	return tea.Tick(m.opts.HighlightPoll, func(time.Time) tea.Msg { return pollTickMsg{gen: gen} })
}
