package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

const (
	MsgLoadingSession = "Loading session…"
	MsgCompacting     = "Compacting…"
	MsgNothingToFold  = "Nothing to compact"
	MsgFollowing      = "Following"
)

func MsgCompacted(before, after int) string {
	return fmt.Sprintf("Compacted %d → %d messages", before, after)
}

func MsgReloaded(n int) string {
	if n == 1 {
		return "Reloaded: 1 message"
	}
	return fmt.Sprintf("Reloaded: %d messages", n)
}

// setStatus shows text in the status bar. A positive timeout clears it
// again unless a newer status replaced it first.
func (a *App) setStatus(text string, kind StatusKind, timeout time.Duration) tea.Cmd {
	a.status = text
	a.statusKind = kind
	a.statusSeq++
	if timeout <= 0 {
		return nil
	}
	seq := a.statusSeq
	return tea.Tick(timeout, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (a *App) renderStatus() string {
	if a.status == "" {
		return ""
	}
	style := StatusInfoStyle
	switch a.statusKind {
	case StatusSuccess:
		style = StatusSuccessStyle
	case StatusWarn:
		style = StatusWarnStyle
	case StatusError:
		style = StatusErrorStyle
	}
	return style.Render(a.status)
}
