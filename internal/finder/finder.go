// Package finder implements the in-conversation find bar: a debounced query
// input, the logical match list with a current match, and the highlight
// rectangles for whatever part of the transcript is rendered.
package finder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/debuglog"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
)

// Alignment positions a scrolled-to item inside the viewport.
type Alignment int

const (
	AlignStart Alignment = iota
	AlignCenter
	AlignEnd
)

// Scroller moves the transcript so a message is in view.
type Scroller interface {
	ScrollToIndex(index int, align Alignment)
}

// Centerer is implemented by scrollers that know which message sits in the
// middle of the viewport.
type Centerer interface {
	CenterIndex() int
}

// Options configures a finder.
type Options struct {
	Debounce       time.Duration
	HighlightPoll  time.Duration
	ScrollTarget   string
	CaseSensitive  bool
	UseRegex       bool
	MaxQueryLength int
}

// HistoryID identifies one version of one session's history.
type HistoryID struct {
	Session  string
	Revision uint64
}

type Model struct {
	opts      Options
	styles    Styles
	state     State
	disabled  bool
	input     textinput.Model
	selectAll bool
	debouncer *Debouncer

	raw           string
	term          string
	matchedTerm   string
	caseSensitive bool
	useRegex      bool

	historyID HistoryID
	history   []*storage.Message

	matches []search.Match
	current int
	err     error

	highlights   []search.Highlight
	headerHeight int
	pollGen      int

	scroller Scroller
	locator  Locator
	width    int
}

func New(opts Options, scroller Scroller, locator Locator) *Model {
	if opts.MaxQueryLength <= 0 {
		opts.MaxQueryLength = 256
	}
	ti := textinput.New()
	ti.Placeholder = "Find in conversation..."
	ti.Prompt = "› "
	ti.CharLimit = opts.MaxQueryLength

	return &Model{
		opts:          opts,
		styles:        DefaultStyles(),
		input:         ti,
		debouncer:     NewDebouncer(opts.Debounce),
		caseSensitive: opts.CaseSensitive,
		useRegex:      opts.UseRegex,
		current:       -1,
		scroller:      scroller,
		locator:       locator,
	}
}

// SetStyles replaces the styles used by View.
func (m *Model) SetStyles(s Styles) {
	m.styles = s
}

func (m *Model) SetWidth(w int) {
	m.width = w
	inputWidth := w / 3
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
}

// Update handles the finder's own timer messages.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceFireMsg:
		term, ok := m.debouncer.Fire(msg)
		if !ok || !m.active() || term == m.term {
			return nil
		}
		m.term = term
		return m.recompute(false)

	case pollTickMsg:
		if msg.gen != m.pollGen || !m.active() {
			return nil
		}
		m.refreshHighlights()
		return m.nextPoll()

	case refreshMsg:
		if m.active() {
			m.refreshHighlights()
		}
	}
	return nil
}

// HandleKey edits the query. Shortcut keys are resolved by the caller before
// this is reached.
func (m *Model) HandleKey(msg tea.KeyMsg) tea.Cmd {
	if m.selectAll {
		m.selectAll = false
		switch msg.Type {
		case tea.KeyRunes, tea.KeySpace:
			m.input.SetValue("")
		case tea.KeyBackspace, tea.KeyDelete:
			m.input.SetValue("")
			return m.setRaw("")
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return tea.Batch(cmd, m.setRaw(m.input.Value()))
}

// SetValue replaces the query as if it had been typed.
func (m *Model) SetValue(v string) tea.Cmd {
	m.selectAll = false
	m.input.SetValue(v)
	return m.setRaw(m.input.Value())
}

func (m *Model) setRaw(v string) tea.Cmd {
	v = sanitizeQuery(v, m.opts.MaxQueryLength)
	if v == m.raw {
		return nil
	}
	m.raw = v
	if !m.active() {
		return nil
	}
	return m.debouncer.Push(v)
}

// SetHistory installs a new history. Matches are recomputed only when the
// identity differs from the installed one.
func (m *Model) SetHistory(id HistoryID, history []*storage.Message) tea.Cmd {
	if id == m.historyID && len(history) == len(m.history) {
		return nil
	}
	m.historyID = id
	m.history = history
	return m.recompute(true)
}

// ToggleCaseSensitive flips case sensitivity and re-runs the search.
func (m *Model) ToggleCaseSensitive() tea.Cmd {
	m.caseSensitive = !m.caseSensitive
	return m.flagsChanged()
}

// ToggleRegex flips regex mode and re-runs the search.
func (m *Model) ToggleRegex() tea.Cmd {
	m.useRegex = !m.useRegex
	return m.flagsChanged()
}

func (m *Model) flagsChanged() tea.Cmd {
	if !m.active() {
		return nil
	}
	cmd := m.recompute(false)
	m.refreshHighlights()
	return cmd
}

// Next moves to the following match, wrapping around.
func (m *Model) Next() tea.Cmd {
	if !m.active() || m.current < 0 {
		return nil
	}
	return m.ScrollToMatch(search.Next(m.matches, m.current))
}

// Previous moves to the preceding match, wrapping around.
func (m *Model) Previous() tea.Cmd {
	if !m.active() || m.current < 0 {
		return nil
	}
	return m.ScrollToMatch(search.Previous(m.matches, m.current))
}

// ScrollToMatch makes match i current and asks the scroller to center its
// message. The scroll is not awaited; a later call simply retargets it.
func (m *Model) ScrollToMatch(i int) tea.Cmd {
	if i < 0 || i >= len(m.matches) {
		return nil
	}
	m.current = i
	if m.scroller != nil {
		m.scroller.ScrollToIndex(m.matches[i].MessageIndex, AlignCenter)
	}
	return deferRefresh()
}

// recompute re-indexes the history and reselects the current match. Both are
// settled before any scroll is issued.
func (m *Model) recompute(historyChanged bool) tea.Cmd {
	if !m.active() {
		return nil
	}

	var prev *search.Match
	if m.current >= 0 && m.current < len(m.matches) {
		p := m.matches[m.current]
		prev = &p
	}
	prevTerm := m.matchedTerm

	matches, err := search.Index(m.history, search.Options{
		Query:         m.term,
		CaseSensitive: m.caseSensitive,
		UseRegex:      m.useRegex,
	})
	if err != nil {
		debuglog.Debugf("finder: %v", err)
	}

	cur := search.Reselect(prevTerm, prev, matches, m.term)
	termChanged := prevTerm != m.term || prev == nil
	if termChanged && cur >= 0 && m.opts.ScrollTarget == config.ScrollTargetClosest {
		if c, ok := m.scroller.(Centerer); ok {
			cur = search.Closest(matches, c.CenterIndex())
		}
	}

	m.matches = matches
	m.err = err
	m.matchedTerm = m.term
	m.current = cur

	debuglog.WithFields(map[string]any{
		"term":    m.term,
		"matches": len(matches),
		"current": cur,
		"history": historyChanged,
	}).Debugf("finder: reindexed")

	if cur < 0 {
		return deferRefresh()
	}
	if termChanged || !sameMatch(*prev, matches[cur]) {
		return m.ScrollToMatch(cur)
	}
	return deferRefresh()
}

func sameMatch(a, b search.Match) bool {
	if a.MessageID != "" || b.MessageID != "" {
		return a.MessageID == b.MessageID && a.Rank == b.Rank
	}
	return a.MessageIndex == b.MessageIndex && a.Rank == b.Rank
}

// Matches returns the current logical match list.
func (m *Model) Matches() []search.Match { return m.matches }

// Current returns the position of the current match, or -1.
func (m *Model) Current() int { return m.current }

// CurrentMatch returns the current match, if any.
func (m *Model) CurrentMatch() (search.Match, bool) {
	if m.current < 0 || m.current >= len(m.matches) {
		return search.Match{}, false
	}
	return m.matches[m.current], true
}

// CurrentOrdinal is the ordinal of the current match, or -1.
func (m *Model) CurrentOrdinal() int {
	if cm, ok := m.CurrentMatch(); ok {
		return cm.Ordinal
	}
	return -1
}

func (m *Model) Term() string        { return m.term }
func (m *Model) RawInput() string    { return m.raw }
func (m *Model) CaseSensitive() bool { return m.caseSensitive }
func (m *Model) UseRegex() bool      { return m.useRegex }
func (m *Model) Err() error          { return m.err }
func (m *Model) Focused() bool       { return m.input.Focused() }

// CounterLabel is the match counter shown next to the input.
func (m *Model) CounterLabel() string {
	if errors.Is(m.err, search.ErrInvalidPattern) {
		return "Invalid pattern"
	}
	if len(m.matches) == 0 || m.current < 0 {
		return "No results"
	}
	return fmt.Sprintf("%d of %d", m.current+1, len(m.matches))
}

// CanNavigate reports whether previous/next do anything useful.
func (m *Model) CanNavigate() bool {
	return !m.disabled && len(m.matches) >= 2
}

// sanitizeQuery flattens control whitespace and enforces the length limit.
// Leading and trailing spaces are kept since they are part of a literal
// query.
func sanitizeQuery(input string, limit int) string {
	input = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(input)
	if limit > 0 {
		if r := []rune(input); len(r) > limit {
			input = string(r[:limit])
		}
	}
	return input
}

// View renders the find bar on a single line.
func (m *Model) View() string {
	if m.state != StateOpen {
		return ""
	}
	s := m.styles

	input := m.input.View()
	if m.selectAll && m.input.Value() != "" {
		input = m.input.Prompt + s.Selected.Render(m.input.Value())
	}

	counterStyle := s.Counter
	if m.err != nil {
		counterStyle = s.Error
	}
	counter := counterStyle.Render(m.CounterLabel())

	nav := s.Enabled
	if !m.CanNavigate() {
		nav = s.Disabled
	}
	arrows := nav.Render("↑") + " " + nav.Render("↓")

	toggle := func(label string, on bool) string {
		if on {
			return s.ToggleOn.Render(label)
		}
		return s.ToggleOff.Render(label)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center,
		input, "  ",
		counter, "  ",
		arrows, "  ",
		toggle("Aa", m.caseSensitive), " ",
		toggle(".*", m.useRegex), "  ",
		s.Hint.Render("esc"),
	)
	return s.Bar.MaxWidth(m.width).Render(bar)
}
