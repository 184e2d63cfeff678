package replay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/pick"
)

// EventKind classifies transcript events.
type EventKind string

const (
	EventNotify   EventKind = "notify"
	EventInput    EventKind = "input"
	EventPick     EventKind = "pick"
	EventConfirm  EventKind = "confirm"
	EventStatus   EventKind = "status"
	EventProgress EventKind = "progress"
)

// Event is one recorded UI interaction.
type Event struct {
	Kind EventKind

	// Prompt is the message or prompt the extension showed.
	Prompt string

	// Level is set for notify events.
	Level host.NotifyLevel

	// Result is the scripted answer that was delivered, formatted as
	// text ("<cancelled>" for cancelled prompts).
	Result string
}

// String renders the event the way extrun prints it.
func (e Event) String() string {
	switch e.Kind {
	case EventNotify:
		return fmt.Sprintf("notify[%s] %s", e.Level, e.Prompt)
	case EventStatus:
		return fmt.Sprintf("status %q", e.Prompt)
	case EventProgress:
		return fmt.Sprintf("progress %q", e.Prompt)
	default:
		return fmt.Sprintf("%s %q -> %s", e.Kind, e.Prompt, e.Result)
	}
}

// Host implements host.UIProvider by serving answers from a Script and
// recording a transcript of everything asked.
type Host struct {
	mu     sync.Mutex
	script *Script
	used   []bool
	events []Event
	status string
	tasks  []*Task
}

// NewHost creates a Host for a script. A nil script behaves like an
// empty one: every prompt gets the zero defaults.
func NewHost(script *Script) *Host {
	if script == nil {
		script = &Script{}
	}
	return &Host{
		script: script,
		used:   make([]bool, len(script.Responses)),
	}
}

// Transcript returns a copy of the recorded events in order.
func (h *Host) Transcript() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Status returns the current status segment text.
func (h *Host) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Tasks returns every progress task opened so far.
func (h *Host) Tasks() []*Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Task, len(h.tasks))
	copy(out, h.tasks)
	return out
}

// nextResponse pops the first unconsumed response of the given kind
// whose prompt matches. Callers must hold h.mu.
func (h *Host) nextResponse(kind, prompt string) (Response, bool) {
	for i, r := range h.script.Responses {
		if h.used[i] || r.Kind != kind {
			continue
		}
		if r.Prompt != "" && !strings.Contains(prompt, r.Prompt) {
			continue
		}
		h.used[i] = true
		return r, true
	}
	return Response{}, false
}

func (h *Host) record(e Event) {
	h.events = append(h.events, e)
}

// Notify records the notification.
func (h *Host) Notify(message string, level host.NotifyLevel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(Event{Kind: EventNotify, Prompt: message, Level: level})
	return nil
}

// Input answers from the script, falling back to the input default.
func (h *Host) Input(opts host.InputOptions) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	value := h.script.Defaults.Input
	if r, ok := h.nextResponse(KindInput, opts.Prompt); ok {
		value = r.Value
	}
	result := value
	if result == "" {
		result = "<cancelled>"
	}
	h.record(Event{Kind: EventInput, Prompt: opts.Prompt, Result: result})
	return value, nil
}

// Pick answers from the script by index or label, falling back to the
// pick default (nil default cancels).
func (h *Host) Pick(entries []pick.Entry, opts host.PickOptions) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prompt := opts.Title
	if prompt == "" {
		prompt = opts.Placeholder
	}

	idx := -1
	if r, ok := h.nextResponse(KindPick, prompt); ok {
		idx = resolvePick(entries, r)
	} else if h.script.Defaults.Pick != nil {
		idx = clampPick(entries, *h.script.Defaults.Pick)
	}

	result := "<cancelled>"
	if idx >= 0 {
		result = fmt.Sprintf("%d (%s)", idx, entries[idx].Label)
	}
	h.record(Event{Kind: EventPick, Prompt: prompt, Result: result})
	return idx, nil
}

// Confirm answers from the script, falling back to the confirm default.
func (h *Host) Confirm(message string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	answer := h.script.Defaults.Confirm
	if r, ok := h.nextResponse(KindConfirm, message); ok {
		answer = r.Answer
	}
	h.record(Event{Kind: EventConfirm, Prompt: message, Result: boolString(answer)})
	return answer, nil
}

// SetStatus records the status text.
func (h *Host) SetStatus(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = text
	h.record(Event{Kind: EventStatus, Prompt: text})
	return nil
}

// ClearStatus records an empty status.
func (h *Host) ClearStatus() error {
	return h.SetStatus("")
}

// Progress opens a recording progress task.
func (h *Host) Progress(opts host.ProgressOptions) (host.ProgressTask, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	task := &Task{id: uuid.NewString(), title: opts.Title}
	h.tasks = append(h.tasks, task)
	h.record(Event{Kind: EventProgress, Prompt: opts.Title})
	return task, nil
}

// resolvePick turns a pick response into an entry index: an explicit
// index wins, otherwise the label is matched exactly, then by
// substring. Separators and misses cancel.
func resolvePick(entries []pick.Entry, r Response) int {
	if r.Index != nil {
		return clampPick(entries, *r.Index)
	}
	for i, e := range entries {
		if !e.Separator && e.Label == r.Value {
			return i
		}
	}
	for i, e := range entries {
		if !e.Separator && strings.Contains(e.Label, r.Value) {
			return i
		}
	}
	return -1
}

func clampPick(entries []pick.Entry, idx int) int {
	if idx < 0 || idx >= len(entries) || entries[idx].Separator {
		return -1
	}
	return idx
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Report is one recorded progress update.
type Report struct {
	Increment float64
	Message   string
}

// Task is a progress task that records every Report.
type Task struct {
	mu      sync.Mutex
	id      string
	title   string
	reports []Report
	done    bool
}

// Report records the update.
func (t *Task) Report(increment float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.reports = append(t.reports, Report{Increment: increment, Message: message})
}

// Done marks the task finished; later reports are dropped.
func (t *Task) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// ID returns the task's identifier.
func (t *Task) ID() string { return t.id }

// Title returns the task's title.
func (t *Task) Title() string { return t.title }

// Reports returns a copy of the recorded updates.
func (t *Task) Reports() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Report, len(t.reports))
	copy(out, t.reports)
	return out
}

// IsDone reports whether Done has been called.
func (t *Task) IsDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
