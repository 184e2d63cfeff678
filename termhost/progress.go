package termhost

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/extkit/host"
)

const barWidth = 20

// Progress opens a determinate progress notification rendered above
// the status row. A new task replaces the one on display.
func (t *Term) Progress(opts host.ProgressOptions) (host.ProgressTask, error) {
	task := &termTask{
		term:  t,
		id:    uuid.NewString(),
		title: opts.Title,
	}

	t.mu.Lock()
	t.task = task
	t.redrawLocked()
	t.mu.Unlock()

	return task, nil
}

// termTask is a live progress notification on a Term.
type termTask struct {
	term  *Term
	id    string
	title string

	percent float64
	message string
	done    bool
}

// Report advances the bar and repaints. Task state is guarded by the
// Term mutex so Report is safe from any goroutine.
func (task *termTask) Report(increment float64, message string) {
	t := task.term
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.done {
		return
	}
	task.percent += increment
	if task.percent > 100 {
		task.percent = 100
	}
	if task.percent < 0 {
		task.percent = 0
	}
	if message != "" {
		task.message = message
	}
	t.redrawLocked()
}

// Done dismisses the notification and clears its row.
func (task *termTask) Done() {
	t := task.term
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.done {
		return
	}
	task.done = true
	if t.task == task {
		t.task = nil
	}
	t.redrawLocked()
}

func (task *termTask) ID() string {
	return task.id
}

func (task *termTask) drawLocked(t *Term, width, row int) {
	line := renderProgress(task.percent, task.progressMessage(), barWidth)
	style := tcell.StyleDefault.Foreground(barColor(task.percent))
	x := t.drawTextLocked(0, row, style, line[:barWidth+2])
	t.drawTextLocked(x, row, tcell.StyleDefault, line[barWidth+2:])
}

func (task *termTask) progressMessage() string {
	if task.message == "" {
		return task.title
	}
	if task.title == "" {
		return task.message
	}
	return task.title + ": " + task.message
}

// renderProgress formats a bar like "[=====>    ] 42% message". width
// is the inner bar width in cells.
func renderProgress(percent float64, message string, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var bar strings.Builder
	bar.WriteByte('[')
	switch {
	case filled == width:
		bar.WriteString(strings.Repeat("=", width))
	case filled > 0:
		bar.WriteString(strings.Repeat("=", filled-1))
		bar.WriteByte('>')
		bar.WriteString(strings.Repeat(" ", width-filled))
	default:
		bar.WriteString(strings.Repeat(" ", width))
	}
	bar.WriteByte(']')

	line := fmt.Sprintf("%s %3.0f%%", bar.String(), percent)
	if message != "" {
		line += " " + message
	}
	return line
}

// barColor blends from red at 0% to green at 100%.
func barColor(percent float64) tcell.Color {
	red := colorful.Color{R: 0.85, G: 0.25, B: 0.20}
	green := colorful.Color{R: 0.25, G: 0.75, B: 0.30}
	c := red.BlendHcl(green, percent/100).Clamped()
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
