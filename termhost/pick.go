package termhost

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/pick"
)

// pickModel is the state machine behind Term.Pick: incremental filter,
// cursor movement that skips separators, and selection. It holds no
// screen reference so it can be tested without a terminal.
type pickModel struct {
	entries []pick.Entry
	opts    host.PickOptions

	filter    []rune
	visible   []int // indexes into entries, in order
	cursor    int   // index into visible, -1 when nothing selectable
	done      bool
	cancelled bool
}

// pickRow is one row of the rendered viewport.
type pickRow struct {
	index    int // index into entries
	selected bool
}

func newPickModel(entries []pick.Entry, opts host.PickOptions) *pickModel {
	m := &pickModel{entries: entries, opts: opts}
	m.refilter()
	return m
}

func (m *pickModel) handleKey(key tcell.Key, r rune) {
	switch key {
	case tcell.KeyEnter:
		m.done = true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		m.done = true
		m.cancelled = true
	case tcell.KeyUp, tcell.KeyCtrlP:
		m.move(-1)
	case tcell.KeyDown, tcell.KeyCtrlN:
		m.move(1)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.refilter()
		}
	case tcell.KeyCtrlU:
		if len(m.filter) > 0 {
			m.filter = m.filter[:0]
			m.refilter()
		}
	case tcell.KeyRune:
		m.filter = append(m.filter, r)
		m.refilter()
	}
}

// selection returns the chosen entry's index in the original slice, or
// -1 when cancelled or nothing is selectable.
func (m *pickModel) selection() int {
	if m.cancelled || m.cursor < 0 {
		return -1
	}
	return m.visible[m.cursor]
}

// refilter recomputes the visible rows and re-seats the cursor on the
// first selectable row.
func (m *pickModel) refilter() {
	m.visible = m.visible[:0]
	for i, e := range m.entries {
		if m.matches(e) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = m.firstSelectable(0)
}

// matches reports whether an entry survives the current filter.
// Separators stay as visual structure, and AlwaysShow entries are
// never filtered out.
func (m *pickModel) matches(e pick.Entry) bool {
	if len(m.filter) == 0 || e.Separator || e.AlwaysShow {
		return true
	}
	needle := strings.ToLower(string(m.filter))
	if strings.Contains(strings.ToLower(e.Label), needle) {
		return true
	}
	if m.opts.MatchOnDescription && strings.Contains(strings.ToLower(e.Description), needle) {
		return true
	}
	if m.opts.MatchOnDetail && strings.Contains(strings.ToLower(e.Detail), needle) {
		return true
	}
	return false
}

// move steps the cursor by delta, skipping separator rows.
func (m *pickModel) move(delta int) {
	if m.cursor < 0 {
		return
	}
	for next := m.cursor + delta; next >= 0 && next < len(m.visible); next += delta {
		if !m.entries[m.visible[next]].Separator {
			m.cursor = next
			return
		}
	}
}

// firstSelectable returns the index into visible of the first
// non-separator row at or after start, or -1.
func (m *pickModel) firstSelectable(start int) int {
	for i := start; i < len(m.visible); i++ {
		if !m.entries[m.visible[i]].Separator {
			return i
		}
	}
	return -1
}

// viewport returns up to max rows around the cursor for rendering.
func (m *pickModel) viewport(max int) []pickRow {
	if max <= 0 || len(m.visible) == 0 {
		return nil
	}
	start := 0
	if m.cursor >= max {
		start = m.cursor - max + 1
	}
	end := start + max
	if end > len(m.visible) {
		end = len(m.visible)
	}
	rows := make([]pickRow, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, pickRow{index: m.visible[i], selected: i == m.cursor})
	}
	return rows
}

func (m *pickModel) placeholder() string {
	if m.opts.Placeholder != "" {
		return m.opts.Placeholder
	}
	return "select an item"
}
