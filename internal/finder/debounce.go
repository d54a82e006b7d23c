package finder

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// debounceFireMsg is delivered when a debounce delay elapses. Only the fire
// carrying the latest sequence number is honored.
type debounceFireMsg struct {
	seq int
}

// Debouncer coalesces rapid value changes into a single trailing-edge
// emission.
type Debouncer struct {
	delay   time.Duration
	seq     int
	pending string
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay}
}

// Push records v as the latest value and schedules a fire. Any fire already
// in flight becomes stale.
func (d *Debouncer) Push(v string) tea.Cmd {
	d.pending = v
	d.seq++
	seq := d.seq
	return tea.Tick(d.delay, func(time.Time) tea.Msg { return debounceFireMsg{seq: seq} })
}

// Fire resolves a fire message. It reports the pending value and true only
// for the most recent Push.
func (d *Debouncer) Fire(msg debounceFireMsg) (string, bool) {
	if msg.seq != d.seq {
		return "", false
	}
	return d.pending, true
}

// Cancel discards whatever is in flight.
func (d *Debouncer) Cancel() {
	d.seq++
	d.pending = ""
}
