package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/transcript"
)

func newTestApp(t *testing.T, opts Options) (*App, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "convo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.TestConfig()
	cfg.Search.Debounce = time.Millisecond
	app := NewApp(store, cfg, opts)
	t.Cleanup(func() { app.Close() })
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return app, store
}

func seedSession(t *testing.T, store *storage.Store, title string, msgs ...*storage.Message) *storage.Session {
	t.Helper()
	s, err := transcript.Import(store, &transcript.Transcript{Title: title, Messages: msgs}, title+".json")
	require.NoError(t, err)
	return s
}

func needleSession(t *testing.T, store *storage.Store) *storage.Session {
	return seedSession(t, store, "needles",
		newMsg("m0", storage.RoleUser, "where is the needle?"),
		newMsg("m1", storage.RoleSystem, "needle in the system prompt"),
		newMsg("m2", storage.RoleAssistant, "a needle and another needle"),
	)
}

// drain runs cmd and feeds every message it produces back into the app
// until nothing is left. Commands that block, such as cursor blinks and
// status timeouts, are abandoned after a short wait.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "commands did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runCmd(next, 100*time.Millisecond)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, c := app.Update(msg)
			queue = append(queue, c)
		}
	}
}

func runCmd(cmd tea.Cmd, timeout time.Duration) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

func press(t *testing.T, app *App, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := app.Update(msg)
	drain(t, app, cmd)
}

func typeText(t *testing.T, app *App, s string) {
	t.Helper()
	for _, r := range s {
		press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func screen(app *App) string {
	return ansi.Strip(app.View())
}

func TestApp_WelcomeWithoutSessions(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	drain(t, app, app.Init())

	assert.Equal(t, ViewSessions, app.view)
	assert.Contains(t, screen(app), "convo import FILE")
}

func TestApp_OpenSessionFromList(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := needleSession(t, store)
	drain(t, app, app.Init())
	require.Len(t, app.sessions, 1)

	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewTranscript, app.view)
	assert.False(t, app.loading)
	require.NotNil(t, app.current)
	assert.Equal(t, s.ID, app.current.ID)
	assert.Equal(t, 3, app.transcript.Len())
	assert.Contains(t, screen(app), "› needles")
	assert.Contains(t, screen(app), "3 messages")
}

func TestApp_OpenUnknownSession(t *testing.T) {
	app, _ := newTestApp(t, Options{SessionID: "missing"})
	drain(t, app, app.Init())

	assert.Equal(t, ViewSessions, app.view)
	assert.False(t, app.loading)
	assert.Equal(t, StatusError, app.statusKind)
	assert.True(t, strings.HasPrefix(app.status, "✗ opening session"))
}

func TestApp_FindFlow(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := needleSession(t, store)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())
	require.Equal(t, ViewTranscript, app.view)

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.True(t, app.finder.IsOpen())
	assert.Equal(t, 2, app.headerHeight())
	assert.Equal(t, 20, app.transcript.height)

	typeText(t, app, "needle")
	f := app.finder
	assert.Equal(t, "needle", f.Term())
	require.Len(t, f.Matches(), 3, "system messages are not searched")
	assert.Equal(t, "1 of 3", f.CounterLabel())
	assert.Contains(t, screen(app), "1 of 3")

	hl := f.Highlights()
	require.Len(t, hl, 3)
	for i, h := range hl {
		assert.Equal(t, i, h.Ordinal)
	}
	assert.Equal(t, 3, hl[0].Rect.Top)
	assert.Equal(t, 15, hl[0].Rect.Left)
	assert.Equal(t, 6, hl[0].Rect.Width)
	assert.Equal(t, 9, hl[1].Rect.Top)
	assert.Equal(t, 4, hl[1].Rect.Left)
	assert.Equal(t, 23, hl[2].Rect.Left)

	// The painted screen row under the first box still reads the same.
	rows := strings.Split(screen(app), "\n")
	require.Greater(t, len(rows), 3)
	assert.Equal(t, "  where is the needle?", strings.TrimRight(rows[3], " "))

	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "2 of 3", f.CounterLabel())
	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "1 of 3", f.CounterLabel(), "next wraps around")
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "3 of 3", f.CounterLabel())

	// Letters bound elsewhere go into the query while the bar has focus.
	typeText(t, app, "q")
	assert.Equal(t, "needleq", f.RawInput())
	assert.Equal(t, ViewTranscript, app.view)
	assert.Equal(t, "No results", f.CounterLabel())
	assert.Empty(t, f.Highlights())
	press(t, app, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Len(t, f.Matches(), 3)

	press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, f.IsOpen())
	assert.Empty(t, f.Highlights())
	assert.Equal(t, ViewTranscript, app.view)
	assert.Equal(t, 1, app.headerHeight())

	press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewSessions, app.view)
	assert.Nil(t, app.current)
}

func TestApp_FindToggles(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := seedSession(t, store, "toggles",
		newMsg("a", storage.RoleUser, "Go go GO"),
		newMsg("b", storage.RoleUser, "g0 is not a match"),
	)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlF})
	typeText(t, app, "go")
	assert.Len(t, app.finder.Matches(), 3)

	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}, Alt: true})
	assert.True(t, app.finder.CaseSensitive())
	assert.Len(t, app.finder.Matches(), 1)

	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}, Alt: true})
	assert.True(t, app.finder.UseRegex())
	assert.Len(t, app.finder.Matches(), 1)
	drain(t, app, app.finder.SetValue("g[o0]"))
	assert.Len(t, app.finder.Matches(), 2)

	drain(t, app, app.finder.SetValue("g[o0]("))
	assert.Equal(t, "Invalid pattern", app.finder.CounterLabel())
	assert.Empty(t, app.finder.Highlights())
}

func TestApp_InitialQuery(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := needleSession(t, store)
	app.opts.SessionID = s.ID
	app.opts.Query = "needle"
	drain(t, app, app.Init())

	require.True(t, app.finder.IsOpen())
	assert.Equal(t, "needle", app.finder.Term())
	assert.Len(t, app.finder.Matches(), 3)
	assert.Empty(t, app.opts.Query, "the query is applied once")
}

func TestApp_CompactKeepsCurrentMatch(t *testing.T) {
	app, store := newTestApp(t, Options{})
	msgs := make([]*storage.Message, 15)
	for i := range msgs {
		msgs[i] = newMsg(fmt.Sprintf("m%d", i), storage.RoleUser, fmt.Sprintf("needle %d", i))
	}
	s := seedSession(t, store, "long", msgs...)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlF})
	typeText(t, app, "needle")
	require.Len(t, app.finder.Matches(), 15)
	drain(t, app, app.finder.ScrollToMatch(12))
	cur, ok := app.finder.CurrentMatch()
	require.True(t, ok)
	require.Equal(t, "m12", cur.MessageID)

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlK})

	assert.Len(t, app.history, 11)
	assert.Equal(t, storage.RoleSystem, app.history[0].Role)
	assert.Equal(t, MsgCompacted(15, 11), app.status)
	assert.Len(t, app.finder.Matches(), 10)
	cur, ok = app.finder.CurrentMatch()
	require.True(t, ok)
	assert.Equal(t, "m12", cur.MessageID)
	assert.Equal(t, "8 of 10", app.finder.CounterLabel())

	stored, err := store.GetMessages(s.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 11)
}

func TestApp_CompactNothingToFold(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := needleSession(t, store)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlK})
	assert.Equal(t, MsgNothingToFold, app.status)
	assert.Len(t, app.history, 3)
}

func TestApp_Follow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.json")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	write(`{"title":"Live","messages":[{"role":"user","content":"hello needle"}]}`)

	app, _ := newTestApp(t, Options{FollowPath: path})
	started, ok := app.startFollow(path)().(followStartedMsg)
	require.True(t, ok)
	w := started.watcher

	// The returned command waits on the watcher; it is not run here.
	app.Update(started)
	assert.Equal(t, ViewTranscript, app.view)
	require.NotNil(t, app.current)
	assert.Equal(t, "Live", app.current.Title)
	require.Len(t, app.history, 1)
	assert.Equal(t, "msg-0", app.history[0].ID)

	write(`{"title":"Live","messages":[{"role":"user","content":"hello needle"},{"role":"assistant","content":"another needle"}]}`)

	var change transcript.Change
	deadline := time.After(3 * time.Second)
	for change.Transcript == nil || len(change.Transcript.Messages) != 2 {
		select {
		case change = <-w.Changes():
		case <-deadline:
			t.Fatal("no reload from watcher")
		}
	}

	reloaded := app.syncFollowed(change)()
	app.Update(reloaded)
	require.Len(t, app.history, 2)
	assert.Equal(t, "msg-0", app.history[0].ID)
	assert.Equal(t, "msg-1", app.history[1].ID)
	assert.Equal(t, MsgReloaded(2), app.status)
	assert.Equal(t, started.session.ID, app.current.ID)

	app.Update(transcriptChangedMsg{change: transcript.Change{Path: path, Err: errors.New("unexpected EOF")}})
	assert.Equal(t, StatusWarn, app.statusKind)
	assert.Contains(t, app.status, "Reload failed")

	require.NoError(t, app.Close())
	app.Update(followStoppedMsg{})
	assert.Nil(t, app.watcher)
}

func TestApp_UpdateForOtherSessionOnlyRefreshesList(t *testing.T) {
	app, store := newTestApp(t, Options{})
	open := needleSession(t, store)
	other := seedSession(t, store, "other", newMsg("o", storage.RoleUser, "x"))
	app.opts.SessionID = open.ID
	drain(t, app, app.Init())

	_, cmd := app.Update(historyLoadedMsg{session: other, messages: nil})
	assert.Equal(t, open.ID, app.current.ID)
	assert.Len(t, app.history, 3)
	drain(t, app, cmd)
	assert.Len(t, app.sessions, 2)
}

func TestApp_MouseAndResize(t *testing.T) {
	app, store := newTestApp(t, Options{})
	msgs := make([]*storage.Message, 20)
	for i := range msgs {
		msgs[i] = newMsg(fmt.Sprintf("m%d", i), storage.RoleUser, "line")
	}
	s := seedSession(t, store, "scroll", msgs...)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())

	_, cmd := app.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	first, _ := app.transcript.Range()
	assert.Equal(t, 1, first)
	require.NotNil(t, cmd)
	rc, ok := cmd().(RangeChangedMsg)
	require.True(t, ok)
	assert.Equal(t, 1, rc.First)

	_, cmd = app.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	first, _ = app.transcript.Range()
	assert.Equal(t, 0, first)
	assert.NotNil(t, cmd)

	app.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	assert.Equal(t, 60, app.transcript.width)
	assert.Equal(t, 9, app.transcript.height)
	assert.Len(t, strings.Split(app.transcriptContent(), "\n"), 10)
}

func TestApp_CheckRange(t *testing.T) {
	app, store := newTestApp(t, Options{})
	s := needleSession(t, store)
	app.opts.SessionID = s.ID
	drain(t, app, app.Init())

	// Three transcript rows: the first message fills the screen.
	_, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 6})
	drain(t, app, cmd)
	assert.Nil(t, app.checkRange(), "unchanged range emits nothing")

	app.transcript.ScrollBy(1)
	cmd = app.checkRange()
	require.NotNil(t, cmd)
	assert.Equal(t, RangeChangedMsg{First: 0, Last: 1, Offset: 1}, cmd())

	app.view = ViewSessions
	app.transcript.ScrollBy(-1)
	assert.Nil(t, app.checkRange())
}

func TestApp_StatusTimeout(t *testing.T) {
	app, _ := newTestApp(t, Options{})

	app.setStatus("first", StatusInfo, time.Second)
	stale := app.statusSeq
	app.setStatus("second", StatusInfo, time.Second)

	app.Update(clearStatusMsg{seq: stale})
	assert.Equal(t, "second", app.status)
	app.Update(clearStatusMsg{seq: app.statusSeq})
	assert.Empty(t, app.status)
}
