// Package load implements the restore-side loader pool: parallel workers
// that POST decoded archive entries to a Solr update handler under a
// configurable commit discipline. Grounded on the original solrcopy's
// put_content/restore_main (src/restore.rs) and commit handling
// (src/commit.rs), generalized from one sequential loop into an
// errgroup-managed worker pool matching the extractor pool's shape.
package load

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mecenat/solrcopy/archive"
	"github.com/mecenat/solrcopy/solrerr"
	"github.com/mecenat/solrcopy/transport"
)

// Entry is one unit of restore work: a decoded archive entry ready to POST.
type Entry = archive.ReadEntry

// Options configures one restore run's loader pool.
type Options struct {
	UpdateURL     string
	CommitURL     string // <base>/<core>/update; target of the final hard commit
	CommitMode    CommitMode
	NoFinalCommit bool
	MaxErrors     int

	DelayBefore     time.Duration
	DelayPerRequest time.Duration
	DelayAfter      time.Duration

	DisableReplication bool
	ReplicationURL     string // base core URL; /replication?command=... is appended

	Logger *slog.Logger
}

// Pool drives N workers over a channel of Entry, applying the configured
// commit mode to every POST and issuing a final hard commit unless
// disabled. errCount is shared across all workers and checked before every
// unit of work; once it reaches Options.MaxErrors a worker returns an error,
// which cancels the shared context and with it the other workers' in-flight
// POSTs.
type Pool struct {
	opts     Options
	newTransport func() *transport.Transport
	errCount atomic.Int64
	loaded   atomic.Int64
}

// NewPool constructs a Pool. newTransport is called once per worker so each
// worker owns an independent *transport.Transport, matching the
// one-transport-per-goroutine rule used by the extractor pool.
func NewPool(opts Options, newTransport func() *transport.Transport) *Pool {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool{opts: opts, newTransport: newTransport}
}

// Loaded returns the number of documents in the entries successfully posted
// so far.
func (p *Pool) Loaded() int64 { return p.loaded.Load() }

// Run drains entries with workers goroutines, applies the replication guard
// around the whole run if configured, and issues the final commit. It
// returns the first fatal error, if any stage-level failure occurred; a
// per-entry error only counts against MaxErrors and does not itself fail Run
// unless the budget is exhausted.
func (p *Pool) Run(ctx context.Context, workers int, entries <-chan Entry) error {
	if workers < 1 {
		workers = 1
	}

	if p.opts.DisableReplication {
		t := p.newTransport()
		if _, err := t.Get(ctx, p.opts.ReplicationURL+"/replication?command=disablereplication"); err != nil {
			p.opts.Logger.Warn("load: disablereplication failed", "error", err)
		}
		defer func() {
			if _, err := t.Get(ctx, p.opts.ReplicationURL+"/replication?command=enablereplication"); err != nil {
				p.opts.Logger.Warn("load: enablereplication failed", "error", err)
			}
		}()
	}

	if p.opts.DelayBefore > 0 {
		time.Sleep(p.opts.DelayBefore)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.worker(gctx, entries)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if p.opts.DelayAfter > 0 {
		time.Sleep(p.opts.DelayAfter)
	}

	if !p.opts.NoFinalCommit {
		t := p.newTransport()
		if err := commit(ctx, t, p.opts.CommitURL); err != nil {
			return fmt.Errorf("load: final commit: %w", err)
		}
	}
	return nil
}

func (p *Pool) worker(ctx context.Context, entries <-chan Entry) error {
	t := p.newTransport()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if int(p.errCount.Load()) >= p.opts.MaxErrors && p.opts.MaxErrors > 0 {
				return fmt.Errorf("load: worker exceeded max_errors (%d)", p.opts.MaxErrors)
			}

			url := p.postURL()
			if _, err := t.Post(ctx, url, "application/json", []byte(e.JSON)); err != nil {
				n := p.errCount.Add(1)
				p.opts.Logger.Warn("load: entry post failed", "archive", e.ArchiveName, "entry", e.EntryName, "error", describeError(err))
				if p.opts.MaxErrors > 0 && int(n) >= p.opts.MaxErrors {
					return fmt.Errorf("load: max_errors (%d) exceeded: %w", p.opts.MaxErrors, err)
				}
				continue
			}

			p.loaded.Add(countDocs(e.JSON))
			if p.opts.DelayPerRequest > 0 {
				time.Sleep(p.opts.DelayPerRequest)
			}
		}
	}
}

func (p *Pool) postURL() string {
	sep := "?"
	if strings.Contains(p.opts.UpdateURL, "?") {
		sep = "&"
	}
	mode := p.opts.CommitMode
	if mode == nil {
		mode = None{}
	}
	return p.opts.UpdateURL + mode.Param(sep)
}

// commit posts the explicit commit command to the core's plain update
// handler (<base>/<core>/update), not the /update/json/docs handler: that
// handler maps a posted JSON object straight to a document, so {"commit":{}}
// sent there would be indexed as a document rather than executed.
func commit(ctx context.Context, t *transport.Transport, commitURL string) error {
	_, err := t.Post(ctx, commitURL, "application/json", []byte(`{"commit":{}}`))
	return err
}

// countDocs returns the number of documents in one entry's JSON array, or 0
// when the text is not a JSON array.
func countDocs(text string) int64 {
	var docs []json.RawMessage
	if err := json.Unmarshal([]byte(text), &docs); err != nil {
		return 0
	}
	return int64(len(docs))
}

// describeError prefers the decoded Solr error envelope, when the failure
// carried one, over the raw response body.
func describeError(err error) error {
	var te *transport.Error
	if !errors.As(err, &te) || len(te.Body) == 0 {
		return err
	}
	if solrErr, ok := solrerr.Decode(te.Body); ok {
		return solrErr
	}
	return err
}
