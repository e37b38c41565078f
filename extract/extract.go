// Package extract implements the extractor pool: parallel workers that turn
// planned page.Steps into raw documents-array JSON, defending against
// Solr Cloud shard-replica divergence by re-probing a step until its
// numFound matches the run's high-water mark. Grounded on the original
// solrcopy's download loop (src/fetch.rs) and the errgroup worker-pool
// pattern used for concurrent Solr job fan-out.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mecenat/solrcopy/page"
	"github.com/mecenat/solrcopy/transport"
)

// Documents is one extracted page: the raw documents-array JSON text for
// the step at Offset, ready to be handed to an archive writer.
type Documents struct {
	Offset uint64
	JSON   []byte
}

var numFoundPattern = regexp.MustCompile(`"numFound":(\d+)`)

// Options configures one extractor worker's behavior.
type Options struct {
	// MustMatch is the probe's high-water-mark numFound. Zero disables the
	// shard-consistency workaround entirely.
	MustMatch uint64
	MaxErrors int
	Logger    *slog.Logger
}

const workaroundAttempts = 13

// Pool runs N workers pulling page.Steps from steps and pushing Documents
// onto out. Each worker owns its own *transport.Transport and its own error
// budget; a worker that exceeds MaxErrors terminates without affecting its
// peers, matching the "errors local to one unit of work" propagation rule.
type Pool struct {
	opts         Options
	newTransport func() *transport.Transport
}

// NewPool constructs a Pool. newTransport is called once per spawned worker.
func NewPool(opts Options, newTransport func() *transport.Transport) *Pool {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool{opts: opts, newTransport: newTransport}
}

// Run drains steps with workers goroutines and sends each successfully
// extracted Documents onto out. A worker that exceeds its own error budget
// logs and returns nil, exiting only that goroutine: Run itself only
// returns a non-nil error for failures outside any single worker's budget
// (none currently originate here, but the errgroup shape is kept so a
// future whole-stage failure propagates the same way C6/C9 do).
func (p *Pool) Run(ctx context.Context, workers int, steps <-chan page.Step, out chan<- Documents) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.worker(gctx, steps, out)
		})
	}
	return g.Wait()
}

func (p *Pool) worker(ctx context.Context, steps <-chan page.Step, out chan<- Documents) error {
	t := p.newTransport()
	var errCount int

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-steps:
			if !ok {
				return nil
			}

			body, err := p.fetch(ctx, t, s)
			if err != nil {
				errCount++
				p.opts.Logger.Warn("extract: step failed", "offset", s.Offset, "error", err)
				if p.opts.MaxErrors > 0 && errCount >= p.opts.MaxErrors {
					p.opts.Logger.Error("extract: worker exceeded max_errors, terminating", "max_errors", p.opts.MaxErrors, "error", err)
					return nil
				}
				continue
			}

			docs, err := docsSubstring(body)
			if err != nil {
				errCount++
				p.opts.Logger.Warn("extract: unparseable response", "offset", s.Offset, "error", err)
				if p.opts.MaxErrors > 0 && errCount >= p.opts.MaxErrors {
					p.opts.Logger.Error("extract: worker exceeded max_errors, terminating", "max_errors", p.opts.MaxErrors, "error", err)
					return nil
				}
				continue
			}

			select {
			case out <- Documents{Offset: s.Offset, JSON: []byte(docs)}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// fetch GETs the step URL, and if the shard-consistency workaround is
// enabled, re-issues the GET up to 13 times with a 1..13-second backoff
// until the response's numFound matches MustMatch, abandoning the attempt
// (and returning the last response body regardless) after the 13th try.
func (p *Pool) fetch(ctx context.Context, t *transport.Transport, s page.Step) (string, error) {
	body, err := t.Get(ctx, s.URL)
	if err != nil {
		return "", err
	}
	if p.opts.MustMatch == 0 {
		return body, nil
	}

	for attempt := 1; ; attempt++ {
		n, ok := parseNumFound(body)
		if ok && n == p.opts.MustMatch {
			return body, nil
		}

		if attempt > workaroundAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}

		body, err = t.Get(ctx, s.URL)
		if err != nil {
			return "", err
		}
	}
	return body, nil
}

func parseNumFound(body string) (uint64, bool) {
	m := numFoundPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// docsSubstring isolates the raw documents array text between the "docs":
// key and the envelope's closing "}}", matching probe's parsing convention.
func docsSubstring(body string) (string, error) {
	start := strings.Index(body, `"docs":`)
	if start < 0 {
		return "", fmt.Errorf("extract: missing docs array in response")
	}
	start += len(`"docs":`)
	end := strings.LastIndex(body, "}}")
	if end < 0 || end <= start {
		return "", fmt.Errorf("extract: malformed response envelope")
	}
	return body[start:end], nil
}
