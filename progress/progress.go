// Package progress provides the two cross-cutting primitives every pipeline
// stage observes: a process-wide cancellation flag driven by the terminal
// signal, and a tick-per-unit reporter that drives an optional progress bar
// and/or Prometheus counters. Grounded on the cancellation flag and wide
// progress bar described for the original solrcopy (src/bars.rs), adapted
// from a single global into an explicit handle passed down from the
// orchestrator, per the "the cancellation flag is the only legitimate
// process-global" resolution.
package progress

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
)

// Cancellation tracks whether a termination signal has been observed. The
// first signal cancels ctx cooperatively; a second signal exits the process
// immediately with status 130.
type Cancellation struct {
	flag   atomic.Bool
	signal atomic.Int32
	cancel context.CancelFunc
}

// Watch derives a cancellable context from parent and arranges for the
// first os.Interrupt to cancel it; a second os.Interrupt calls os.Exit(130).
func Watch(parent context.Context) (context.Context, *Cancellation) {
	ctx, cancel := context.WithCancel(parent)
	c := &Cancellation{cancel: cancel}

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt)
	go func() {
		for range ch {
			n := c.signal.Add(1)
			c.flag.Store(true)
			c.cancel()
			if n >= 2 {
				os.Exit(130)
			}
		}
	}()

	return ctx, c
}

// Cancelled reports whether at least one termination signal was observed.
func (c *Cancellation) Cancelled() bool { return c.flag.Load() }

// Reporter accepts one tick per completed unit of work (one Documents
// written, one entry loaded) and fans it out to whichever sinks were
// configured. A Reporter with no sinks silently discards ticks, satisfying
// the "must tolerate being ignored" requirement for quiet mode.
type Reporter struct {
	ch      chan struct{}
	bar     *progressbar.ProgressBar
	counter prometheus.Counter
	done    chan struct{}
}

// NewReporter constructs a Reporter feeding the given sinks; either may be
// nil. total is not used: the bar's own total (see NewBar) governs how it
// renders.
func NewReporter(total int64, bar *progressbar.ProgressBar, counter prometheus.Counter) *Reporter {
	r := &Reporter{
		ch:      make(chan struct{}, 64),
		bar:     bar,
		counter: counter,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Reporter) loop() {
	defer close(r.done)
	for range r.ch {
		if r.bar != nil {
			r.bar.Add(1)
		}
		if r.counter != nil {
			r.counter.Inc()
		}
	}
}

// Tick signals one completed unit. It never blocks the caller for long: the
// channel is buffered, and a full buffer simply drops the tick rather than
// stalling a worker, since progress reporting is best-effort.
func (r *Reporter) Tick() {
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

// Close stops the reporter and waits for its loop to drain.
func (r *Reporter) Close() {
	close(r.ch)
	<-r.done
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// NewBar builds a wide terminal progress bar for total units, matching the
// original's "wide bar" presentation; total of 0 renders a spinner.
func NewBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
	)
}
