// Package progress simulates a self-dismissing, time-bounded notification
// on top of a host progress API that has no native auto-expire concept.
//
// The simulation animates a determinate indicator from 0% to 100% over a
// fixed duration using periodic ticks, optionally holding at 100% for a
// final stretch before the host dismisses the notification.
package progress

import (
	"context"
	"errors"
	"time"
)

// ErrNilReporter is returned when Run is invoked without a reporter.
var ErrNilReporter = errors.New("progress: nil reporter")

// Defaults applied by NewOptions.
const (
	DefaultTicks     = 100
	DefaultEndLength = 300 * time.Millisecond
)

// Reporter receives incremental progress updates. host.ProgressTask
// satisfies it.
type Reporter interface {
	// Report advances the indicator by increment percentage points and
	// replaces the secondary message.
	Report(increment float64, message string)
}

// Update is a per-tick snapshot passed to the UpdateMessage callback.
// It is recreated every tick and discarded after the callback returns.
type Update struct {
	// Tick is the 1-based index of the current animation step.
	Tick int

	// Percent is the completion percentage after this tick.
	Percent float64

	// Elapsed is the scheduled time since the run started.
	Elapsed time.Duration

	// Remaining is the scheduled time until the run resolves.
	Remaining time.Duration
}

// ElapsedSeconds returns the elapsed time in whole seconds.
func (u Update) ElapsedSeconds() int { return int(u.Elapsed / time.Second) }

// RemainingSeconds returns the remaining time in whole seconds.
func (u Update) RemainingSeconds() int { return int(u.Remaining / time.Second) }

// Options configures a run. Construct with NewOptions so unset fields get
// their defaults; an explicit WithEndLength(0) is honored as zero.
type Options struct {
	// Ticks is the number of animation steps.
	Ticks int

	// EndLength is the time reserved at the end of the run during which
	// the indicator rests at 100%.
	EndLength time.Duration

	// Cancellable asks the host to offer a cancel affordance on the
	// notification. Run itself never reads it; cancelling is
	// host-controlled dismissal and does not stop the ticking.
	Cancellable bool

	// UpdateMessage formats the secondary message for each tick. Nil
	// leaves every tick message empty.
	UpdateMessage func(Update) string
}

// Option mutates Options.
type Option func(*Options)

// NewOptions applies the defaults, then each option in order.
func NewOptions(opts ...Option) Options {
	o := Options{
		Ticks:     DefaultTicks,
		EndLength: DefaultEndLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTicks sets the number of animation steps.
func WithTicks(n int) Option {
	return func(o *Options) { o.Ticks = n }
}

// WithEndLength sets the 100% hold period.
func WithEndLength(d time.Duration) Option {
	return func(o *Options) { o.EndLength = d }
}

// WithCancellable sets whether the host shows a cancel affordance.
func WithCancellable(c bool) Option {
	return func(o *Options) { o.Cancellable = c }
}

// WithUpdateMessage sets the per-tick message formatter.
func WithUpdateMessage(fn func(Update) string) Option {
	return func(o *Options) { o.UpdateMessage = fn }
}

// Run animates r from 0% to 100% over duration.
//
// An immediate zero report suppresses the host's indeterminate animation.
// Ticks then fire every (duration-EndLength)/Ticks, each advancing the
// indicator by 100/Ticks points, and when EndLength > 0 a one-shot at
// duration-EndLength reports whatever remains to pin the indicator at
// exactly 100%. Run returns only after the full duration has elapsed,
// with the ticker stopped; when EndLength is zero any ticks the scheduler
// has not yet delivered are emitted at the deadline, so exactly Ticks
// increments are always reported.
//
// Degenerate numeric inputs do not fail: non-positive durations, tick
// counts, or intervals collapse to fire-immediately schedules. The
// context is not polled during the run; a cancelled context does not
// shorten the notification.
func Run(ctx context.Context, r Reporter, duration time.Duration, o Options) error {
	if r == nil {
		return ErrNilReporter
	}

	ticks := o.Ticks
	if ticks < 1 {
		ticks = 1
	}
	endLength := o.EndLength
	if endLength < 0 {
		endLength = 0
	}

	window := duration - endLength
	interval := window / time.Duration(ticks)
	if interval <= 0 {
		interval = time.Millisecond
	}

	r.Report(0, "")

	tick := 0
	percent := 0.0
	emit := func() {
		tick++
		next := 100 * float64(tick) / float64(ticks)
		if next > 100 {
			next = 100
		}
		inc := next - percent
		percent = next

		msg := ""
		if o.UpdateMessage != nil {
			elapsed := time.Duration(tick) * interval
			u := Update{
				Tick:      tick,
				Percent:   percent,
				Elapsed:   elapsed,
				Remaining: duration - elapsed,
			}
			if u.Remaining < 0 {
				u.Remaining = 0
			}
			msg = o.UpdateMessage(u)
		}
		r.Report(inc, msg)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var hold <-chan time.Time
	if endLength > 0 {
		holdTimer := time.NewTimer(window)
		defer holdTimer.Stop()
		hold = holdTimer.C
	}

	done := time.NewTimer(duration)
	defer done.Stop()

	for {
		select {
		case <-ticker.C:
			if tick < ticks && percent < 100 {
				emit()
			}
		case <-hold:
			hold = nil
			inc := 100 - percent
			percent = 100
			r.Report(inc, "")
		case <-done.C:
			if endLength <= 0 {
				for tick < ticks {
					emit()
				}
			}
			return nil
		}
	}
}
