package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/convo/internal/debuglog"
	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/transcript"
)

// compactKeepLast is how many trailing messages survive compaction.
const compactKeepLast = 10

func (a *App) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := a.store.ListSessions()
		if err != nil {
			return errorMsg{err: wrapErr("listing sessions", err)}
		}
		return sessionsLoadedMsg{sessions: sessions}
	}
}

func (a *App) loadSession(id string) tea.Cmd {
	return func() tea.Msg {
		session, err := a.store.GetSession(id)
		if err != nil {
			return errorMsg{err: wrapErr("opening session", err)}
		}
		msgs, err := a.store.GetMessages(id)
		if err != nil {
			return errorMsg{err: wrapErr("loading messages", err)}
		}
		return historyLoadedMsg{session: session, messages: msgs, opened: true}
	}
}

// compactSession folds the session's older messages into a summary. The
// history is captured now; the write runs in the background.
func (a *App) compactSession(session *storage.Session, history []*storage.Message) tea.Cmd {
	return func() tea.Msg {
		compacted, changed := transcript.Compact(history, compactKeepLast)
		if !changed {
			return statusMsg{text: MsgNothingToFold, kind: StatusInfo}
		}
		if err := retryOperation(func() error { return a.store.ReplaceMessages(session.ID, compacted) }); err != nil {
			return errorMsg{err: wrapErr("compacting", err)}
		}
		return a.reloadHistory(session.ID, compacted)
	}
}

// reloadHistory reads back a rewritten session and updates the index.
func (a *App) reloadHistory(id string, msgs []*storage.Message) tea.Msg {
	session, err := a.store.GetSession(id)
	if err != nil {
		return errorMsg{err: wrapErr("reloading session", err)}
	}
	if a.index != nil {
		a.index.Reindex(session, msgs)
	}
	return historyLoadedMsg{session: session, messages: msgs}
}

// startFollow mirrors a transcript file into the store and starts watching
// it for changes.
func (a *App) startFollow(path string) tea.Cmd {
	return func() tea.Msg {
		t, err := transcript.Load(path)
		if err != nil {
			return errorMsg{err: wrapErr("following", err)}
		}
		var session *storage.Session
		if err := retryOperation(func() error {
			var syncErr error
			session, syncErr = transcript.Sync(a.store, t, path)
			return syncErr
		}); err != nil {
			return errorMsg{err: wrapErr("following", err)}
		}
		if a.index != nil {
			a.index.Reindex(session, t.Messages)
		}

		w, err := transcript.Watch(path)
		if err != nil {
			return errorMsg{err: wrapErr("watching", err)}
		}
		return followStartedMsg{watcher: w, session: session, messages: t.Messages}
	}
}

// waitForChange blocks until the watcher reports a reload.
func waitForChange(w *transcript.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-w.Changes()
		if !ok {
			return followStoppedMsg{}
		}
		return transcriptChangedMsg{change: c}
	}
}

func (a *App) syncFollowed(c transcript.Change) tea.Cmd {
	return func() tea.Msg {
		var session *storage.Session
		if err := retryOperation(func() error {
			var syncErr error
			session, syncErr = transcript.Sync(a.store, c.Transcript, c.Path)
			return syncErr
		}); err != nil {
			return errorMsg{err: wrapErr("syncing "+c.Path, err)}
		}
		debuglog.WithFields(map[string]any{
			"path":     c.Path,
			"session":  session.ID,
			"revision": session.Revision,
		}).Debugf("follow: synced %d messages", len(c.Transcript.Messages))
		return a.reloadHistory(session.ID, c.Transcript.Messages)
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if i < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<i))
		}
	}
	return lastErr
}

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
