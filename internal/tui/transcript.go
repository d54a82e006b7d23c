package tui

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/debuglog"
	"github.com/pders01/convo/internal/finder"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
)

// RangeChangedMsg reports that the on-screen slice of the transcript moved:
// different messages are rendered, or the same ones at other rows.
type RangeChangedMsg struct {
	First  int
	Last   int
	Offset int
}

type renderedMessage struct {
	// header line, body lines, blank separator
	lines []string
}

func (r *renderedMessage) body() []string {
	if len(r.lines) < 2 {
		return nil
	}
	return r.lines[1 : len(r.lines)-1]
}

type visibleMessage struct {
	index int
	// row of the header line; negative when scrolled partly out of view
	row int
	rm  *renderedMessage
}

// transcriptView is a virtualized message list. Only messages around the
// viewport are ever rendered. The scroll position is an anchor message plus
// a line offset into it, so no total height is needed.
type transcriptView struct {
	messages []*storage.Message
	hashes   map[*storage.Message]uint64

	width  int
	height int

	markdown bool
	overscan int
	wrapMin  int
	wrapMax  int

	renderer      *glamour.TermRenderer
	rendererWidth int
	cache         *lru.Cache[string, *renderedMessage]
	title         cases.Caser

	top     int
	topLine int
}

func newTranscriptView(cfg config.UIConfig) *transcriptView {
	size := cfg.RenderCacheSize
	if size <= 0 {
		size = 256
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *renderedMessage](size)
	return &transcriptView{
		hashes:   make(map[*storage.Message]uint64),
		markdown: cfg.Markdown,
		overscan: cfg.Overscan,
		wrapMin:  cfg.WordWrapMin,
		wrapMax:  cfg.WordWrapMax,
		cache:    cache,
		title:    cases.Title(language.English),
	}
}

func (t *transcriptView) SetSize(width, height int) {
	if height < 0 {
		height = 0
	}
	t.width = width
	t.height = height
	t.normalize()
	t.clampBottom()
}

// SetMessages installs a new history, keeping the anchor message in place
// when it survived the change.
func (t *transcriptView) SetMessages(msgs []*storage.Message) {
	var anchor string
	if t.top < len(t.messages) {
		anchor = t.messages[t.top].ID
	}
	t.messages = msgs
	t.hashes = make(map[*storage.Message]uint64, len(msgs))

	found := false
	if anchor != "" {
		for i, m := range msgs {
			if m.ID == anchor {
				t.top = i
				found = true
				break
			}
		}
	}
	if !found {
		t.top, t.topLine = 0, 0
	}
	t.normalize()
	t.clampBottom()
}

// Reset forgets the history and scroll position.
func (t *transcriptView) Reset() {
	t.messages = nil
	t.hashes = make(map[*storage.Message]uint64)
	t.top, t.topLine = 0, 0
}

func (t *transcriptView) Len() int { return len(t.messages) }

func (t *transcriptView) wrapWidth() int {
	w := (t.width * 9) / 10
	if t.wrapMax > 0 && w > t.wrapMax {
		w = t.wrapMax
	}
	if w < t.wrapMin {
		w = t.wrapMin
	}
	if t.width < t.wrapMin+10 {
		w = t.width - 4
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (t *transcriptView) getRenderer() (*glamour.TermRenderer, error) {
	wrap := t.wrapWidth()
	if t.renderer == nil || t.rendererWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return nil, err
		}
		t.renderer = r
		t.rendererWidth = wrap
	}
	return t.renderer, nil
}

func (t *transcriptView) cacheKey(i int) string {
	msg := t.messages[i]
	sum, ok := t.hashes[msg]
	if !ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(displayText(msg.Content)))
		sum = h.Sum64()
		t.hashes[msg] = sum
	}
	id := msg.ID
	if id == "" {
		id = "#" + strconv.Itoa(i)
	}
	return fmt.Sprintf("%s/%s/%d/%x", id, msg.Role, t.width, sum)
}

func (t *transcriptView) render(i int) *renderedMessage {
	key := t.cacheKey(i)
	if rm, ok := t.cache.Get(key); ok {
		return rm
	}
	rm := &renderedMessage{lines: t.renderLines(t.messages[i])}
	t.cache.Add(key, rm)
	return rm
}

func (t *transcriptView) renderLines(msg *storage.Message) []string {
	roleStyle, ok := RoleStyles[string(msg.Role)]
	if !ok {
		roleStyle = HeaderStyle
	}
	lines := []string{roleStyle.Render(t.title.String(string(msg.Role)))}

	text := displayText(msg.Content)
	if strings.TrimSpace(text) == "" {
		lines = append(lines, "  "+muted("(no content)"), "")
		return lines
	}

	var body []string
	if t.markdown && msg.Role == storage.RoleAssistant {
		body = t.renderMarkdown(text)
	}
	if body == nil {
		style := BodyStyle
		if msg.Role == storage.RoleSystem {
			style = SystemBody
		}
		for _, l := range strings.Split(ansi.Wrap(text, t.wrapWidth(), ""), "\n") {
			body = append(body, "  "+style.Render(l))
		}
	}

	lines = append(lines, body...)
	return append(lines, "")
}

func (t *transcriptView) renderMarkdown(text string) []string {
	r, err := t.getRenderer()
	if err != nil {
		debuglog.Warnf("transcript: renderer: %v", err)
		return nil
	}
	out, err := r.Render(text)
	if err != nil {
		debuglog.Warnf("transcript: markdown: %v", err)
		return nil
	}
	lines := strings.Split(out, "\n")
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[0])) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

// displayText is what a message shows on screen. Non-text parts become
// placeholders on their own lines.
func displayText(c storage.Content) string {
	if !c.IsParts() {
		return c.Text
	}
	var b strings.Builder
	placeholder := func(s string) {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(s + "\n")
	}
	for _, p := range c.Parts {
		switch p.Type {
		case storage.PartText:
			b.WriteString(p.Text)
		case storage.PartImage:
			placeholder("[image]")
		case storage.PartToolCall:
			placeholder(fmt.Sprintf("[tool call: %s]", p.Name))
		case storage.PartToolResult:
			placeholder("[tool result]")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *transcriptView) messageHeight(i int) int {
	return len(t.render(i).lines)
}

func (t *transcriptView) normalize() {
	n := len(t.messages)
	if n == 0 {
		t.top, t.topLine = 0, 0
		return
	}
	if t.top >= n {
		t.top, t.topLine = n-1, 0
	}
	if t.top < 0 {
		t.top, t.topLine = 0, 0
	}
	for t.topLine < 0 {
		if t.top == 0 {
			t.topLine = 0
			break
		}
		t.top--
		t.topLine += t.messageHeight(t.top)
	}
	for t.topLine > 0 && t.topLine >= t.messageHeight(t.top) {
		if t.top == n-1 {
			t.topLine = t.messageHeight(t.top) - 1
			break
		}
		t.topLine -= t.messageHeight(t.top)
		t.top++
	}
}

// clampBottom stops the end of the last message from rising above the
// bottom of the viewport.
func (t *transcriptView) clampBottom() {
	if len(t.messages) == 0 || t.height <= 0 {
		return
	}
	remaining := t.messageHeight(t.top) - t.topLine
	for i := t.top + 1; i < len(t.messages) && remaining < t.height; i++ {
		remaining += t.messageHeight(i)
	}
	if remaining < t.height {
		t.topLine -= t.height - remaining
		t.normalize()
	}
}

func (t *transcriptView) ScrollBy(lines int) {
	t.topLine += lines
	t.normalize()
	t.clampBottom()
}

func (t *transcriptView) GotoTop() {
	t.top, t.topLine = 0, 0
}

func (t *transcriptView) GotoBottom() {
	if len(t.messages) == 0 {
		return
	}
	t.top = len(t.messages) - 1
	t.topLine = t.messageHeight(t.top) - 1
	t.clampBottom()
}

// ScrollToIndex implements finder.Scroller.
func (t *transcriptView) ScrollToIndex(index int, align finder.Alignment) {
	if len(t.messages) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(t.messages) {
		index = len(t.messages) - 1
	}

	h := t.messageHeight(index)
	t.top, t.topLine = index, 0
	switch align {
	case finder.AlignCenter:
		t.topLine = (h - t.height) / 2
	case finder.AlignEnd:
		t.topLine = h - t.height
	}
	t.normalize()
	t.clampBottom()
}

// CenterIndex implements finder.Centerer.
func (t *transcriptView) CenterIndex() int {
	if len(t.messages) == 0 {
		return -1
	}
	mid := t.height / 2
	for _, v := range t.visible() {
		if mid >= v.row && mid < v.row+len(v.rm.lines) {
			return v.index
		}
	}
	return t.top
}

func (t *transcriptView) visible() []visibleMessage {
	var out []visibleMessage
	row := -t.topLine
	for i := t.top; i < len(t.messages) && row < t.height; i++ {
		rm := t.render(i)
		out = append(out, visibleMessage{index: i, row: row, rm: rm})
		row += len(rm.lines)
	}
	return out
}

// Range returns the first and last message with at least one line on
// screen, or -1, -1 when nothing is.
func (t *transcriptView) Range() (first, last int) {
	vis := t.visible()
	if len(vis) == 0 {
		return -1, -1
	}
	return vis[0].index, vis[len(vis)-1].index
}

// Offset is how many lines of the first visible message are scrolled past.
func (t *transcriptView) Offset() int { return t.topLine }

// warm renders a few messages on each side of the viewport so that small
// scrolls hit the cache.
func (t *transcriptView) warm(first, last int) {
	for i := first - t.overscan; i <= last+t.overscan; i++ {
		if i >= 0 && i < len(t.messages) {
			t.render(i)
		}
	}
}

// Lines returns exactly height screen lines.
func (t *transcriptView) Lines() []string {
	lines := make([]string, 0, t.height)
	vis := t.visible()
	for _, v := range vis {
		for j, l := range v.rm.lines {
			r := v.row + j
			if r < 0 {
				continue
			}
			if r >= t.height {
				break
			}
			lines = append(lines, l)
		}
	}
	for len(lines) < t.height {
		lines = append(lines, "")
	}
	if len(vis) > 0 {
		t.warm(vis[0].index, vis[len(vis)-1].index)
	}
	return lines
}

// LocateOccurrences implements finder.Locator. It searches the rendered,
// on-screen text of non-system messages. Rank and Total count every
// occurrence in a message's rendered body, on screen or not, so callers can
// tie them back to logical matches. An occurrence split over a wrapped line
// is boxed on its first line.
func (t *transcriptView) LocateOccurrences(term string, opts finder.LocateOptions) []search.Occurrence {
	matcher, err := search.NewMatcher(search.Options{
		Query:         term,
		CaseSensitive: opts.CaseSensitive,
		UseRegex:      opts.UseRegex,
	})
	if err != nil || matcher == nil {
		return nil
	}

	var out []search.Occurrence
	for _, v := range t.visible() {
		msg := t.messages[v.index]
		if msg.Role == storage.RoleSystem {
			continue
		}
		body := v.rm.body()
		plain := make([]string, len(body))
		starts := make([]int, len(body))
		off := 0
		for j, l := range body {
			plain[j] = ansi.Strip(l)
			starts[j] = off
			off += len(plain[j]) + 1
		}
		spans := matcher.FindAll(strings.Join(plain, "\n"))

		for rank, sp := range spans {
			line := sort.Search(len(starts), func(k int) bool { return starts[k] > sp.Start }) - 1
			if line < 0 {
				continue
			}
			row := v.row + 1 + line
			if row < 0 || row >= t.height {
				continue
			}
			text := plain[line]
			from := sp.Start - starts[line]
			to := sp.End - starts[line]
			if to > len(text) {
				to = len(text)
			}
			out = append(out, search.Occurrence{
				MessageIndex: v.index,
				MessageID:    msg.ID,
				Rank:         rank,
				Total:        len(spans),
				Rect: search.Rect{
					Top:    row + opts.VerticalOffset,
					Left:   ansi.StringWidth(text[:from]),
					Width:  ansi.StringWidth(text[from:to]),
					Height: 1,
				},
			})
		}
	}
	return out
}

// paintHighlights draws highlight boxes over screen lines that use the same
// coordinates as the boxes. The current match gets its own style.
func paintHighlights(lines []string, highlights []search.Highlight, current int) []string {
	if len(highlights) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	copy(out, lines)
	for _, h := range highlights {
		r := h.Rect
		if r.Width <= 0 || r.Top < 0 || r.Top >= len(out) {
			continue
		}
		style := MatchStyle
		if h.Ordinal >= 0 && h.Ordinal == current {
			style = CurrentMatchStyle
		}
		out[r.Top] = paintCells(out[r.Top], r.Left, r.Left+r.Width, style)
	}
	return out
}

func paintCells(line string, left, right int, style lipgloss.Style) string {
	width := ansi.StringWidth(line)
	if left < 0 {
		left = 0
	}
	if right > width {
		right = width
	}
	if left >= right {
		return line
	}
	before := ansi.Truncate(line, left, "")
	mid := ansi.Strip(ansi.Cut(line, left, right))
	after := ansi.TruncateLeft(line, right, "")
	return before + style.Render(mid) + after
}
