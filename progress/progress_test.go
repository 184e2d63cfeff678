package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

type report struct {
	increment float64
	message   string
	at        time.Duration
}

// recorder captures every report with its offset from recorder creation.
type recorder struct {
	mu    sync.Mutex
	start time.Time
	got   []report
}

func newRecorder() *recorder {
	return &recorder{start: time.Now()}
}

func (r *recorder) Report(increment float64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, report{increment: increment, message: message, at: time.Since(r.start)})
}

func (r *recorder) reports() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]report, len(r.got))
	copy(out, r.got)
	return out
}

func (r *recorder) total() float64 {
	sum := 0.0
	for _, rep := range r.reports() {
		sum += rep.increment
	}
	return sum
}

func TestRunExactTickSchedule(t *testing.T) {
	rec := newRecorder()
	opts := NewOptions(WithTicks(10), WithEndLength(0))

	start := time.Now()
	if err := Run(context.Background(), rec, time.Second, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Run resolved after %v, want at least 1s", elapsed)
	}

	reports := rec.reports()
	if len(reports) != 11 {
		t.Fatalf("len(reports) = %d, want 11 (initial zero plus 10 ticks)", len(reports))
	}
	if reports[0].increment != 0 {
		t.Errorf("reports[0].increment = %v, want 0", reports[0].increment)
	}
	for i, rep := range reports[1:] {
		if rep.increment != 10 {
			t.Errorf("reports[%d].increment = %v, want exactly 10", i+1, rep.increment)
		}
	}
	if total := rec.total(); total != 100 {
		t.Errorf("total = %v, want exactly 100", total)
	}
}

func TestRunSumsToHundred(t *testing.T) {
	for _, ticks := range []int{1, 3, 7, 25} {
		t.Run(fmt.Sprintf("ticks=%d", ticks), func(t *testing.T) {
			rec := newRecorder()
			opts := NewOptions(WithTicks(ticks), WithEndLength(0))
			if err := Run(context.Background(), rec, 80*time.Millisecond, opts); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			reports := rec.reports()
			if len(reports) != ticks+1 {
				t.Fatalf("len(reports) = %d, want %d", len(reports), ticks+1)
			}
			if total := rec.total(); math.Abs(total-100) > 1e-9 {
				t.Errorf("total = %v, want 100", total)
			}
		})
	}
}

func TestRunHoldPinsAtHundred(t *testing.T) {
	const (
		duration  = 500 * time.Millisecond
		endLength = 200 * time.Millisecond
		window    = duration - endLength
	)
	rec := newRecorder()
	opts := NewOptions(WithTicks(4), WithEndLength(endLength))

	start := time.Now()
	if err := Run(context.Background(), rec, duration, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < duration {
		t.Errorf("Run resolved after %v, want at least %v", elapsed, duration)
	}

	reports := rec.reports()
	if len(reports) < 2 {
		t.Fatalf("len(reports) = %d, want at least 2", len(reports))
	}

	sum := 0.0
	reached := time.Duration(-1)
	for _, rep := range reports {
		sum += rep.increment
		if sum > 100+1e-9 {
			t.Fatalf("cumulative progress %v exceeds 100", sum)
		}
		if reached < 0 && sum > 100-1e-9 {
			reached = rep.at
		}
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("final progress = %v, want 100", sum)
	}
	if reached < 0 {
		t.Fatal("progress never reached 100")
	}
	if reached < window {
		t.Errorf("progress reached 100 at %v, want no earlier than %v", reached, window)
	}
	if slack := reached - window; slack > 100*time.Millisecond {
		t.Errorf("progress reached 100 at %v, want near %v", reached, window)
	}
}

func TestRunUpdateMessage(t *testing.T) {
	const duration = 120 * time.Millisecond

	rec := newRecorder()
	var updates []Update
	opts := NewOptions(
		WithTicks(4),
		WithEndLength(0),
		WithUpdateMessage(func(u Update) string {
			updates = append(updates, u)
			return fmt.Sprintf("%d%% done", int(u.Percent))
		}),
	)

	if err := Run(context.Background(), rec, duration, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	reports := rec.reports()
	if len(reports) != 5 {
		t.Fatalf("len(reports) = %d, want 5", len(reports))
	}
	wantMsgs := []string{"", "25% done", "50% done", "75% done", "100% done"}
	for i, rep := range reports {
		if rep.message != wantMsgs[i] {
			t.Errorf("reports[%d].message = %q, want %q", i, rep.message, wantMsgs[i])
		}
	}

	if len(updates) != 4 {
		t.Fatalf("len(updates) = %d, want 4", len(updates))
	}
	interval := duration / 4
	for i, u := range updates {
		wantTick := i + 1
		if u.Tick != wantTick {
			t.Errorf("updates[%d].Tick = %d, want %d", i, u.Tick, wantTick)
		}
		wantElapsed := time.Duration(wantTick) * interval
		if u.Elapsed != wantElapsed {
			t.Errorf("updates[%d].Elapsed = %v, want %v", i, u.Elapsed, wantElapsed)
		}
		if want := duration - wantElapsed; u.Remaining != want {
			t.Errorf("updates[%d].Remaining = %v, want %v", i, u.Remaining, want)
		}
	}
	if updates[3].Percent != 100 {
		t.Errorf("updates[3].Percent = %v, want 100", updates[3].Percent)
	}
}

func TestRunNilReporter(t *testing.T) {
	err := Run(context.Background(), nil, 10*time.Millisecond, NewOptions())
	if !errors.Is(err, ErrNilReporter) {
		t.Fatalf("Run(nil reporter) error = %v, want %v", err, ErrNilReporter)
	}
}

func TestRunDegenerateInputs(t *testing.T) {
	t.Run("zero duration", func(t *testing.T) {
		rec := newRecorder()
		opts := NewOptions(WithTicks(5), WithEndLength(0))

		start := time.Now()
		if err := Run(context.Background(), rec, 0, opts); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("degenerate run took %v, want immediate", elapsed)
		}

		reports := rec.reports()
		if len(reports) != 6 {
			t.Fatalf("len(reports) = %d, want 6", len(reports))
		}
		if total := rec.total(); total != 100 {
			t.Errorf("total = %v, want 100", total)
		}
	})

	t.Run("zero ticks clamps to one", func(t *testing.T) {
		rec := newRecorder()
		opts := NewOptions(WithTicks(0), WithEndLength(0))
		if err := Run(context.Background(), rec, 20*time.Millisecond, opts); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		reports := rec.reports()
		if len(reports) != 2 {
			t.Fatalf("len(reports) = %d, want 2", len(reports))
		}
		if reports[1].increment != 100 {
			t.Errorf("reports[1].increment = %v, want 100", reports[1].increment)
		}
	})

	t.Run("negative end length treated as zero", func(t *testing.T) {
		rec := newRecorder()
		opts := NewOptions(WithTicks(2), WithEndLength(-50*time.Millisecond))
		if err := Run(context.Background(), rec, 40*time.Millisecond, opts); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got := len(rec.reports()); got != 3 {
			t.Fatalf("len(reports) = %d, want 3", got)
		}
		if total := rec.total(); total != 100 {
			t.Errorf("total = %v, want 100", total)
		}
	})
}

func TestRunCancelledContextStillRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newRecorder()
	start := time.Now()
	if err := Run(ctx, rec, 100*time.Millisecond, NewOptions(WithTicks(4), WithEndLength(0))); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Run resolved after %v, want the full duration despite cancellation", elapsed)
	}
	if total := rec.total(); total != 100 {
		t.Errorf("total = %v, want 100", total)
	}
}

func TestUpdateSeconds(t *testing.T) {
	u := Update{Elapsed: 2500 * time.Millisecond, Remaining: 7499 * time.Millisecond}
	if got := u.ElapsedSeconds(); got != 2 {
		t.Errorf("ElapsedSeconds() = %d, want 2", got)
	}
	if got := u.RemainingSeconds(); got != 7 {
		t.Errorf("RemainingSeconds() = %d, want 7", got)
	}
}

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	if o.Ticks != DefaultTicks {
		t.Errorf("Ticks = %d, want %d", o.Ticks, DefaultTicks)
	}
	if o.EndLength != DefaultEndLength {
		t.Errorf("EndLength = %v, want %v", o.EndLength, DefaultEndLength)
	}
	if o.Cancellable {
		t.Error("Cancellable = true, want false")
	}
	if o.UpdateMessage != nil {
		t.Error("UpdateMessage != nil, want nil")
	}
}

func TestNewOptionsOverrides(t *testing.T) {
	o := NewOptions(
		WithTicks(7),
		WithEndLength(0),
		WithCancellable(true),
		WithUpdateMessage(func(Update) string { return "x" }),
	)
	if o.Ticks != 7 {
		t.Errorf("Ticks = %d, want 7", o.Ticks)
	}
	if o.EndLength != 0 {
		t.Errorf("EndLength = %v, want explicit 0", o.EndLength)
	}
	if !o.Cancellable {
		t.Error("Cancellable = false, want true")
	}
	if o.UpdateMessage == nil {
		t.Error("UpdateMessage = nil, want set")
	}
}
