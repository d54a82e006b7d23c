package tui

import (
	"fmt"
	"time"

	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/transcript"
)

type View int

const (
	ViewSessions View = iota
	ViewTranscript
)

type sessionItem struct {
	session *storage.Session
}

func (i sessionItem) Title() string { return i.session.Title }

func (i sessionItem) Description() string {
	desc := fmt.Sprintf("%d messages", i.session.Count)
	if !i.session.UpdatedAt.IsZero() {
		desc += " • " + i.session.UpdatedAt.Format("Jan 2, 15:04")
	}
	if i.session.Source != "" {
		desc += " • " + clipMiddle(i.session.Source, 40)
	}
	return desc
}

func (i sessionItem) FilterValue() string { return i.session.Title }

type sessionsLoadedMsg struct {
	sessions []*storage.Session
}

// historyLoadedMsg carries a session's messages, either freshly opened or
// after the history was rewritten.
type historyLoadedMsg struct {
	session  *storage.Session
	messages []*storage.Message
	opened   bool
}

type followStartedMsg struct {
	watcher  *transcript.Watcher
	session  *storage.Session
	messages []*storage.Message
}

type transcriptChangedMsg struct {
	change transcript.Change
}

type followStoppedMsg struct{}

type statusMsg struct {
	text string
	kind StatusKind
}

type clearStatusMsg struct {
	seq int
}

type errorMsg struct {
	err error
}

const statusTimeout = 4 * time.Second
