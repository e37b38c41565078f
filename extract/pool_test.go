package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mecenat/solrcopy/page"
	"github.com/mecenat/solrcopy/transport"
)

func TestPoolRunExtractsDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"numFound":2,"start":0,"docs":[{"id":"a"}]}}`))
	}))
	defer srv.Close()

	steps := make(chan page.Step, 2)
	steps <- page.Step{Offset: 0, URL: srv.URL}
	steps <- page.Step{Offset: 1, URL: srv.URL}
	close(steps)

	out := make(chan Documents, 2)
	pool := NewPool(Options{}, func() *transport.Transport {
		return transport.New(transport.Config{MaxRetries: 1, TimeoutSeconds: 5}, nil)
	})

	if err := pool.Run(context.Background(), 2, steps, out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(out)

	var got []Documents
	for d := range out {
		got = append(got, d)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want 2", len(got))
	}
	for _, d := range got {
		if string(d.JSON) != `[{"id":"a"}]` {
			t.Fatalf("JSON = %q, want %q", d.JSON, `[{"id":"a"}]`)
		}
	}
}

func TestPoolRunTerminatesWorkerAfterMaxErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	steps := make(chan page.Step, 3)
	steps <- page.Step{Offset: 0, URL: srv.URL}
	steps <- page.Step{Offset: 1, URL: srv.URL}
	steps <- page.Step{Offset: 2, URL: srv.URL}
	close(steps)

	out := make(chan Documents, 3)
	pool := NewPool(Options{MaxErrors: 2}, func() *transport.Transport {
		return transport.New(transport.Config{MaxRetries: 1, TimeoutSeconds: 5}, nil)
	})

	// A single worker exceeding its own max_errors must stop that goroutine
	// quietly (Run returns nil), not fail the whole pool: with only one
	// worker pulling from steps, the third step is left undrained.
	if err := pool.Run(context.Background(), 1, steps, out); err != nil {
		t.Fatalf("Run() error = %v, want nil once a worker exceeds its own max_errors", err)
	}
	close(out)

	if len(out) != 0 {
		t.Fatalf("got %d documents, want 0 since every response was unparseable", len(out))
	}
	if len(steps) != 1 {
		t.Fatalf("steps channel has %d entries left, want 1 (worker stopped after max_errors)", len(steps))
	}
}
