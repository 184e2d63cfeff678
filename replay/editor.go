package replay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/extkit/host"
)

// Editor is an in-memory host.EditorProvider seeded from a script's
// buffer and indent keys.
type Editor struct {
	mu       sync.Mutex
	text     string
	offset   int
	selStart int
	selEnd   int
	path     string
	modified bool
	indent   host.Indent
}

// NewEditor creates an editor over the given text.
func NewEditor(text string, indent host.Indent) *Editor {
	return &Editor{
		text:     text,
		selStart: -1,
		selEnd:   -1,
		indent:   indent,
	}
}

// SetPath sets the path the editor reports for its document.
func (e *Editor) SetPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.path = path
}

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

func (e *Editor) Line(lineNum int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := strings.Split(e.text, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return "", fmt.Errorf("line %d out of range 1..%d", lineNum, len(lines))
	}
	return lines[lineNum-1], nil
}

func (e *Editor) LineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Count(e.text, "\n") + 1
}

func (e *Editor) Offset() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// SetOffset moves the cursor, clamping to the document bounds.
func (e *Editor) SetOffset(offset int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = clamp(offset, 0, len(e.text))
	return nil
}

func (e *Editor) LineCol() (line, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	line, col = 1, 1
	for _, r := range e.text[:e.offset] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (e *Editor) Selection() (start, end int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selStart, e.selEnd
}

// SetSelection sets the selection range, clamped to the document. A
// negative start clears the selection.
func (e *Editor) SetSelection(start, end int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if start < 0 {
		e.selStart, e.selEnd = -1, -1
		return nil
	}
	start = clamp(start, 0, len(e.text))
	end = clamp(end, 0, len(e.text))
	if end < start {
		start, end = end, start
	}
	e.selStart, e.selEnd = start, end
	return nil
}

func (e *Editor) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

func (e *Editor) Modified() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modified
}

func (e *Editor) Indentation() host.Indent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indent
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
