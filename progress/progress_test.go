package progress

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReporterTicksIncrementCounter(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_ticks_total"})
	r := NewReporter(0, nil, counter)
	r.Tick()
	r.Tick()
	r.Tick()
	r.Close()

	if got := testutil.ToFloat64(counter); got != 3 {
		t.Fatalf("counter = %v, want 3", got)
	}
}

func TestReporterToleratesNoSinks(t *testing.T) {
	r := NewReporter(0, nil, nil)
	r.Tick()
	r.Tick()
	r.Close()
}

func TestWatchStartsUncancelled(t *testing.T) {
	ctx, c := Watch(context.Background())
	if c.Cancelled() {
		t.Fatal("Cancelled() = true before any signal")
	}
	select {
	case <-ctx.Done():
		t.Fatal("context already done before any signal")
	default:
	}
}
