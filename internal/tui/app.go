package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/finder"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/transcript"
)

// Options selects what the app shows on start.
type Options struct {
	// SessionID opens a stored session directly.
	SessionID string
	// FollowPath mirrors a transcript file and reloads it on change.
	FollowPath string
	// Query pre-fills the find bar once the first session is open.
	Query string
	// Index is told about rewritten histories. May be nil.
	Index search.HistoryIndexer
}

type App struct {
	config     *config.Config
	store      *storage.Store
	index      search.HistoryIndexer
	opts       Options
	keyHandler *KeyHandler

	sessionList list.Model
	transcript  *transcriptView
	finder      *finder.Model
	help        help.Model
	spinner     spinner.Model

	view     View
	sessions []*storage.Session
	current  *storage.Session
	history  []*storage.Message
	loading  bool
	watcher  *transcript.Watcher

	width     int
	height    int
	lastRange RangeChangedMsg

	status     string
	statusKind StatusKind
	statusSeq  int
}

func NewApp(store *storage.Store, cfg *config.Config, opts Options) *App {
	ApplyTheme(cfg.UI.Colors)

	sessionList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	sessionList.Title = "› sessions"
	sessionList.SetShowStatusBar(false)
	sessionList.SetFilteringEnabled(true)
	sessionList.SetShowHelp(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	tv := newTranscriptView(cfg.UI)

	f := finder.New(finder.Options{
		Debounce:       cfg.Search.Debounce,
		HighlightPoll:  cfg.Search.HighlightPoll,
		ScrollTarget:   cfg.Search.ScrollTarget,
		CaseSensitive:  cfg.Search.CaseSensitive,
		UseRegex:       cfg.Search.UseRegex,
		MaxQueryLength: cfg.Search.MaxQueryLength,
	}, tv, tv)
	f.SetStyles(finderStyles())

	app := &App{
		config:      cfg,
		store:       store,
		index:       opts.Index,
		opts:        opts,
		sessionList: sessionList,
		transcript:  tv,
		finder:      f,
		help:        help.New(),
		spinner:     sp,
		view:        ViewSessions,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func finderStyles() finder.Styles {
	s := finder.DefaultStyles()
	s.Counter = lipgloss.NewStyle().Foreground(MutedColor)
	s.Error = StatusErrorStyle
	s.Enabled = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	s.ToggleOn = lipgloss.NewStyle().Foreground(BackgroundColor).Background(AccentColor).Bold(true)
	s.ToggleOff = lipgloss.NewStyle().Foreground(MutedColor)
	s.Hint = HelpStyle
	return s
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadSessions()}
	switch {
	case a.opts.FollowPath != "":
		cmds = append(cmds,
			a.setStatus(MsgFollowing+" "+a.opts.FollowPath, StatusInfo, statusTimeout),
			a.startFollow(a.opts.FollowPath),
		)
	case a.opts.SessionID != "":
		cmds = append(cmds, a.openSession(a.opts.SessionID))
	}
	return tea.Batch(cmds...)
}

// Close releases the file watcher, if any.
func (a *App) Close() error {
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.sessionList.SetSize(msg.Width, msg.Height-2)
		a.help.Width = msg.Width
		a.layout()
		a.finder.RefreshHighlights()
		return a, a.checkRange()

	case tea.KeyMsg:
		model, cmd := a.keyHandler.HandleKey(msg)
		return model, tea.Batch(cmd, a.checkRange())

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case RangeChangedMsg:
		a.finder.RefreshHighlights()
		return a, nil

	case sessionsLoadedMsg:
		a.sessions = msg.sessions
		items := make([]list.Item, len(msg.sessions))
		for i, s := range msg.sessions {
			items[i] = sessionItem{session: s}
		}
		return a, a.sessionList.SetItems(items)

	case historyLoadedMsg:
		return a, a.applyHistory(msg)

	case followStartedMsg:
		a.watcher = msg.watcher
		cmds := []tea.Cmd{waitForChange(msg.watcher)}
		if a.current == nil {
			cmds = append(cmds, a.applyHistory(historyLoadedMsg{session: msg.session, messages: msg.messages, opened: true}))
		} else {
			cmds = append(cmds, a.loadSessions())
		}
		return a, tea.Batch(cmds...)

	case transcriptChangedMsg:
		if msg.change.Err != nil || msg.change.Transcript == nil {
			return a, tea.Batch(
				a.setStatus(fmt.Sprintf("Reload failed: %v", msg.change.Err), StatusWarn, statusTimeout),
				waitForChange(a.watcher),
			)
		}
		return a, tea.Batch(a.syncFollowed(msg.change), waitForChange(a.watcher))

	case followStoppedMsg:
		a.watcher = nil
		return a, nil

	case statusMsg:
		return a, a.setStatus(msg.text, msg.kind, statusTimeout)

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.status = ""
		}
		return a, nil

	case errorMsg:
		if a.loading {
			a.loading = false
			a.view = ViewSessions
		}
		return a, a.setStatus(fmt.Sprintf("✗ %v", msg.err), StatusError, 0)

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	cmds := []tea.Cmd{a.finder.Update(msg)}
	if a.view == ViewSessions {
		var cmd tea.Cmd
		a.sessionList, cmd = a.sessionList.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, a.checkRange())
	return a, tea.Batch(cmds...)
}

func (a *App) openSession(id string) tea.Cmd {
	a.loading = true
	a.view = ViewTranscript
	a.finder.SetDisabled(true)
	a.layout()
	return tea.Batch(
		a.spinner.Tick,
		a.setStatus(MsgLoadingSession, StatusInfo, 0),
		a.loadSession(id),
	)
}

func (a *App) closeSession() {
	a.finder.Close()
	a.view = ViewSessions
	a.current = nil
	a.history = nil
	a.transcript.Reset()
	a.lastRange = RangeChangedMsg{}
	a.layout()
}

// applyHistory installs a session's messages in the transcript and the find
// bar. Updates for a session that is not on screen only refresh the list.
func (a *App) applyHistory(msg historyLoadedMsg) tea.Cmd {
	onScreen := a.current != nil && a.current.ID == msg.session.ID
	if !msg.opened && !onScreen {
		return a.loadSessions()
	}
	if msg.opened && !onScreen {
		a.transcript.Reset()
		a.lastRange = RangeChangedMsg{}
	}

	before := len(a.history)
	a.current = msg.session
	a.history = msg.messages
	a.loading = false
	a.view = ViewTranscript
	a.transcript.SetMessages(msg.messages)
	a.layout()

	id := finder.HistoryID{Session: msg.session.ID, Revision: msg.session.Revision}
	cmds := []tea.Cmd{
		a.finder.SetHistory(id, msg.messages),
		a.finder.SetDisabled(false),
		a.loadSessions(),
	}

	switch {
	case msg.opened:
		a.status = ""
		if q := a.opts.Query; q != "" {
			a.opts.Query = ""
			cmds = append(cmds, a.finder.Open(), a.finder.SetValue(q))
			a.layout()
		}
	case len(msg.messages) < before:
		cmds = append(cmds, a.setStatus(MsgCompacted(before, len(msg.messages)), StatusSuccess, statusTimeout))
	default:
		cmds = append(cmds, a.setStatus(MsgReloaded(len(msg.messages)), StatusInfo, statusTimeout))
	}

	cmds = append(cmds, a.checkRange())
	return tea.Batch(cmds...)
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.view != ViewTranscript {
		var cmd tea.Cmd
		a.sessionList, cmd = a.sessionList.Update(msg)
		return cmd
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.transcript.ScrollBy(-3)
	case tea.MouseButtonWheelDown:
		a.transcript.ScrollBy(3)
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y >= a.headerHeight() {
			a.finder.RefreshHighlights()
		}
	}
	return a.checkRange()
}

// checkRange emits RangeChangedMsg when the transcript's on-screen slice
// moved since the last check.
func (a *App) checkRange() tea.Cmd {
	if a.view != ViewTranscript || a.loading {
		return nil
	}
	first, last := a.transcript.Range()
	r := RangeChangedMsg{First: first, Last: last, Offset: a.transcript.Offset()}
	if r == a.lastRange {
		return nil
	}
	a.lastRange = r
	return func() tea.Msg { return r }
}

func (a *App) headerHeight() int {
	if a.finder.IsOpen() {
		return 2
	}
	return 1
}

func (a *App) footerHeight() int {
	if a.help.ShowAll {
		return 1 + lipgloss.Height(a.help.View(a.keyHandler.helpForCurrentView()))
	}
	return 2
}

// layout sizes the transcript to what the header and footer leave over.
func (a *App) layout() {
	a.transcript.SetSize(a.width, a.height-a.headerHeight()-a.footerHeight())
	a.finder.SetWidth(a.width)
	a.finder.SetHeaderHeight(a.headerHeight())
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewSessions:
		if len(a.sessions) == 0 {
			content = centered(a.width, a.height-a.footerHeight(), GetWelcomeMessage())
		} else {
			content = a.sessionList.View()
		}
	case ViewTranscript:
		content = a.transcriptContent()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.footer())
}

// transcriptContent renders header, find bar and transcript as one block
// whose rows match the coordinates of the find bar's highlights.
func (a *App) transcriptContent() string {
	title := "conversation"
	subtitle := ""
	if a.current != nil {
		title = a.current.Title
		subtitle = fmt.Sprintf("%d messages", len(a.history))
	}
	lines := []string{titleBar(title, subtitle, a.width)}
	if a.finder.IsOpen() {
		lines = append(lines, a.finder.View())
	}

	if a.loading {
		body := centered(a.width, a.transcript.height, a.spinner.View()+" "+MsgLoadingSession)
		lines = append(lines, body)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, a.transcript.Lines()...)
	lines = paintHighlights(lines, a.finder.Highlights(), a.finder.CurrentOrdinal())
	return strings.Join(lines, "\n")
}

func (a *App) footer() string {
	separatorWidth := a.width
	if separatorWidth < 1 {
		separatorWidth = 1
	}
	separator := SeparatorStyle.Render(strings.Repeat("─", separatorWidth))

	line := a.renderStatus()
	if line == "" || a.help.ShowAll {
		line = a.help.View(a.keyHandler.helpForCurrentView())
	}
	return separator + "\n" + lipgloss.NewStyle().MaxWidth(a.width).Render(line)
}
