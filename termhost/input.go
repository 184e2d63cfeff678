package termhost

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/extkit/host"
)

// inputModel is the state machine behind Term.Input. It holds no
// screen reference so it can be tested without a terminal.
type inputModel struct {
	prompt      string
	placeholder string
	value       []rune
	cursor      int
	done        bool
	cancelled   bool
}

func newInputModel(opts host.InputOptions) *inputModel {
	value := []rune(opts.Value)
	return &inputModel{
		prompt:      opts.Prompt,
		placeholder: opts.Placeholder,
		value:       value,
		cursor:      len(value),
	}
}

func (m *inputModel) handleKey(key tcell.Key, r rune) {
	switch key {
	case tcell.KeyEnter:
		m.done = true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		m.done = true
		m.cancelled = true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if m.cursor > 0 {
			m.value = append(m.value[:m.cursor-1], m.value[m.cursor:]...)
			m.cursor--
		}
	case tcell.KeyDelete:
		if m.cursor < len(m.value) {
			m.value = append(m.value[:m.cursor], m.value[m.cursor+1:]...)
		}
	case tcell.KeyLeft:
		if m.cursor > 0 {
			m.cursor--
		}
	case tcell.KeyRight:
		if m.cursor < len(m.value) {
			m.cursor++
		}
	case tcell.KeyHome, tcell.KeyCtrlA:
		m.cursor = 0
	case tcell.KeyEnd, tcell.KeyCtrlE:
		m.cursor = len(m.value)
	case tcell.KeyCtrlU:
		m.value = m.value[:0]
		m.cursor = 0
	case tcell.KeyRune:
		m.value = append(m.value[:m.cursor], append([]rune{r}, m.value[m.cursor:]...)...)
		m.cursor++
	}
}

func (m *inputModel) text() string {
	return string(m.value)
}

// display is the string rendered after the prompt: the typed value, or
// the placeholder while the field is empty.
func (m *inputModel) display() string {
	if len(m.value) == 0 {
		return m.placeholder
	}
	return string(m.value)
}
