// Package termhost provides a terminal reference implementation of
// host.UIProvider on top of tcell. It renders notifications, prompts,
// selection lists, and progress into a reserved region at the bottom
// of the screen and leaves the rest of the screen to the embedding
// application.
package termhost

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/pick"
)

// Term implements host.UIProvider using a tcell screen.
type Term struct {
	mu     sync.Mutex
	screen tcell.Screen
	owned  bool

	status      string
	notice      string
	noticeStyle tcell.Style
	task        *termTask
}

// New creates a Term on a freshly initialized terminal screen. The
// caller must Close it to restore the terminal.
func New() (*Term, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return &Term{screen: screen, owned: true}, nil
}

// NewWithScreen creates a Term on an existing screen. The screen must
// already be initialized; the caller retains ownership and is
// responsible for Fini. Tests pass a tcell.SimulationScreen here.
func NewWithScreen(s tcell.Screen) *Term {
	return &Term{screen: s}
}

// Close releases the screen if the Term owns it.
func (t *Term) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owned {
		t.screen.Fini()
	}
}

// Notify shows a notification in the bottom status region.
func (t *Term) Notify(message string, level host.NotifyLevel) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notice = message
	t.noticeStyle = levelStyle(level)
	t.redrawLocked()
	return nil
}

// SetStatus sets the persistent status segment.
func (t *Term) SetStatus(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = text
	t.redrawLocked()
	return nil
}

// ClearStatus clears the persistent status segment.
func (t *Term) ClearStatus() error {
	return t.SetStatus("")
}

// Confirm shows a yes/no prompt and blocks until the user answers.
// Escape counts as no.
func (t *Term) Confirm(message string) (bool, error) {
	t.mu.Lock()
	t.drawPromptLocked(message+" [y/n]", "")
	t.mu.Unlock()

	defer t.repaint()

	for {
		ev := t.screen.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch key.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false, nil
		case tcell.KeyRune:
			switch key.Rune() {
			case 'y', 'Y':
				return true, nil
			case 'n', 'N':
				return false, nil
			}
		}
	}
}

// Input prompts for a line of text. An escape returns an empty string
// with no error.
func (t *Term) Input(opts host.InputOptions) (string, error) {
	model := newInputModel(opts)

	defer t.repaint()

	for {
		t.mu.Lock()
		t.drawPromptLocked(model.prompt+": ", model.display())
		t.mu.Unlock()

		ev := t.screen.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		model.handleKey(key.Key(), key.Rune())
		if model.done {
			if model.cancelled {
				return "", nil
			}
			return model.text(), nil
		}
	}
}

// Pick shows an arrow-key selection list with incremental filtering.
// It returns the index of the chosen entry in the original slice, or
// -1 if the user cancelled.
func (t *Term) Pick(entries []pick.Entry, opts host.PickOptions) (int, error) {
	model := newPickModel(entries, opts)

	defer t.repaint()

	for {
		t.mu.Lock()
		t.drawPickLocked(model)
		t.mu.Unlock()

		ev := t.screen.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		model.handleKey(key.Key(), key.Rune())
		if model.done {
			return model.selection(), nil
		}
	}
}

// repaint redraws the status region, dropping any transient prompt.
func (t *Term) repaint() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.redrawLocked()
}

// redrawLocked repaints the bottom region: progress (if active) on the
// second-to-last row, status and notice on the last row.
func (t *Term) redrawLocked() {
	w, h := t.screen.Size()
	if h == 0 {
		return
	}

	t.clearRowLocked(h - 1)
	x := 0
	if t.status != "" {
		x = t.drawTextLocked(0, h-1, tcell.StyleDefault.Bold(true), t.status)
		x = t.drawTextLocked(x, h-1, tcell.StyleDefault.Dim(true), " | ")
	}
	t.drawTextLocked(x, h-1, t.noticeStyle, t.notice)

	if h >= 2 {
		t.clearRowLocked(h - 2)
		if t.task != nil {
			t.task.drawLocked(t, w, h-2)
		}
	}
	t.screen.Show()
}

// drawPromptLocked renders a transient prompt row above the status row
// and parks the cursor at the end of the typed value.
func (t *Term) drawPromptLocked(prompt, value string) {
	w, h := t.screen.Size()
	if h == 0 {
		return
	}
	row := h - 1
	t.clearRowLocked(row)
	x := t.drawTextLocked(0, row, tcell.StyleDefault.Bold(true), prompt)
	x = t.drawTextLocked(x, row, tcell.StyleDefault, value)
	if x < w {
		t.screen.ShowCursor(x, row)
	}
	t.screen.Show()
}

func (t *Term) drawPickLocked(m *pickModel) {
	w, h := t.screen.Size()
	rows := m.viewport(maxPickRows(h))

	top := h - len(rows) - 2
	if top < 0 {
		top = 0
	}

	header := m.opts.Title
	if header == "" {
		header = m.placeholder()
	}
	t.clearRowLocked(top)
	t.drawTextLocked(0, top, tcell.StyleDefault.Bold(true), header)

	filterRow := top + 1
	t.clearRowLocked(filterRow)
	x := t.drawTextLocked(0, filterRow, tcell.StyleDefault.Dim(true), "> ")
	x = t.drawTextLocked(x, filterRow, tcell.StyleDefault, string(m.filter))
	if x < w {
		t.screen.ShowCursor(x, filterRow)
	}

	for i, row := range rows {
		y := filterRow + 1 + i
		t.clearRowLocked(y)
		entry := m.entries[row.index]
		style := tcell.StyleDefault
		switch {
		case entry.Separator:
			style = style.Dim(true)
			t.drawTextLocked(0, y, style, "--- "+entry.Label)
			continue
		case row.selected:
			style = style.Reverse(true)
		}
		x := t.drawTextLocked(2, y, style, entry.Label)
		if entry.Description != "" {
			t.drawTextLocked(x+1, y, style.Dim(true), entry.Description)
		}
	}
	t.screen.Show()
}

func (t *Term) clearRowLocked(y int) {
	w, _ := t.screen.Size()
	for x := 0; x < w; x++ {
		t.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

// drawTextLocked writes text starting at x and returns the next free
// column. Output is clipped at the screen edge.
func (t *Term) drawTextLocked(x, y int, style tcell.Style, text string) int {
	w, _ := t.screen.Size()
	for _, r := range text {
		if x >= w {
			break
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func maxPickRows(height int) int {
	rows := height - 4
	if rows < 1 {
		rows = 1
	}
	if rows > 10 {
		rows = 10
	}
	return rows
}

func levelStyle(level host.NotifyLevel) tcell.Style {
	switch level {
	case host.NotifyWarning:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	case host.NotifyError:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case host.NotifySuccess:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorSilver)
	}
}
