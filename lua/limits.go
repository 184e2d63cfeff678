package lua

import (
	"context"
	"sync"
	"time"
)

// limitCtx enforces a state's execution limits through gopher-lua's
// context support. Once a context is set, the VM polls ctx.Done() before
// every instruction, which makes Done both the interruption point and
// the instruction counter: each poll charges one instruction against
// the sandbox budget, and a parent deadline covers wall-clock time.
type limitCtx struct {
	parent  context.Context
	sandbox *Sandbox

	done chan struct{}
	quit chan struct{}
	once sync.Once

	// failure is written inside once before done closes and read only
	// after done is observed closed.
	failure error
}

// newLimitCtx creates a limit context and starts the deadline watcher.
// Callers must call stop when the guarded execution finishes.
func newLimitCtx(parent context.Context, sandbox *Sandbox) *limitCtx {
	c := &limitCtx{
		parent:  parent,
		sandbox: sandbox,
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
	}
	go c.watch()
	return c
}

// watch forwards the parent deadline onto the done channel.
func (c *limitCtx) watch() {
	select {
	case <-c.parent.Done():
		c.trip(ErrCallTimeout)
	case <-c.quit:
	}
}

func (c *limitCtx) trip(err error) {
	c.once.Do(func() {
		c.failure = err
		close(c.done)
	})
}

// stop releases the deadline watcher.
func (c *limitCtx) stop() {
	close(c.quit)
}

// limitErr reports which limit tripped, or nil if none did.
func (c *limitCtx) limitErr() error {
	select {
	case <-c.done:
		return c.failure
	default:
		return nil
	}
}

// Done charges one instruction and returns the channel the VM selects
// on. Exceeding the budget closes it, aborting the running chunk.
func (c *limitCtx) Done() <-chan struct{} {
	if c.sandbox.AddInstrs(1) {
		c.trip(ErrInstrBudget)
	}
	return c.done
}

func (c *limitCtx) Err() error {
	return c.limitErr()
}

func (c *limitCtx) Deadline() (time.Time, bool) {
	return c.parent.Deadline()
}

func (c *limitCtx) Value(key any) any {
	return c.parent.Value(key)
}
