package lua

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// job is one unit of work queued for the serializer goroutine.
type job struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Serializer marshals work from arbitrary goroutines onto the single
// goroutine that owns an LState. Settings watchers and other async
// callbacks deliver into extension states through it.
//
// Usage:
//
//	ser := NewSerializer(state, 0)
//	go ser.Run(ctx)
//	defer ser.Close()
//
//	err := ser.Do(ctx, func(L *lua.LState) error { ... })
type Serializer struct {
	state  *State
	queue  chan *job
	done   chan struct{}
	closed atomic.Bool

	closeOnce sync.Once
}

// NewSerializer creates a serializer for the state. queueSize <= 0 uses
// a default of 64.
func NewSerializer(state *State, queueSize int) *Serializer {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Serializer{
		state: state,
		queue: make(chan *job, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes queued work until the context is cancelled or Close is
// called. It must run on the goroutine that owns the Lua state.
func (s *Serializer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain(ctx.Err())
			return
		case <-s.done:
			s.drain(ErrSerializerClosed)
			return
		case j := <-s.queue:
			err := s.run(j)
			select {
			case j.result <- err:
			default:
			}
			close(j.result)
		}
	}
}

// run executes a job with panic recovery.
func (s *Serializer) run(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua panic")
			}
		}
	}()
	if s.state.Closed() {
		return ErrStateClosed
	}
	return j.fn(s.state.L)
}

// Do queues work and blocks until it completes or the context is
// cancelled. Cancelling while queued does not unqueue the work; it still
// runs, unobserved.
func (s *Serializer) Do(ctx context.Context, fn func(L *lua.LState) error) error {
	if s.closed.Load() {
		return ErrSerializerClosed
	}

	j := &job{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSerializerClosed
	case s.queue <- j:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-j.result:
		if !ok {
			return ErrSerializerClosed
		}
		return err
	}
}

// Post queues work without waiting for completion. Returns
// ErrSerializerFull when the queue is full rather than blocking.
func (s *Serializer) Post(fn func(L *lua.LState) error) error {
	if s.closed.Load() {
		return ErrSerializerClosed
	}

	j := &job{fn: fn, result: make(chan error, 1)}

	select {
	case <-s.done:
		return ErrSerializerClosed
	case s.queue <- j:
		go func() { <-j.result }()
		return nil
	default:
		return ErrSerializerFull
	}
}

// Close stops the serializer. Queued work completes with
// ErrSerializerClosed.
func (s *Serializer) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

// Closed returns true once Close has been called.
func (s *Serializer) Closed() bool { return s.closed.Load() }

// drain fails all remaining queued work with err.
func (s *Serializer) drain(err error) {
	for {
		select {
		case j := <-s.queue:
			select {
			case j.result <- err:
			default:
			}
			close(j.result)
		default:
			return
		}
	}
}
