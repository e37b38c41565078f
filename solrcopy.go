// Package solrcopy streams documents out of an Apache Solr core into
// compressed archives and back, through the core's public query and update
// handlers. Backup and Restore are the two entry points; everything else is
// wired internally from the sub-packages transport, probe, slice, page,
// extract, archive, load and progress.
package solrcopy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/mecenat/solrcopy/archive"
	"github.com/mecenat/solrcopy/extract"
	"github.com/mecenat/solrcopy/load"
	"github.com/mecenat/solrcopy/page"
	"github.com/mecenat/solrcopy/probe"
	"github.com/mecenat/solrcopy/progress"
	"github.com/mecenat/solrcopy/queryurl"
	"github.com/mecenat/solrcopy/slice"
	"github.com/mecenat/solrcopy/transport"
)

// Config describes one backup or restore run. Not every field is used by
// both operations; Backup reads the backup-specific fields, Restore the
// restore-specific ones, and both read the shared Solr/transport/progress
// fields and MaxErrors.
type Config struct {
	BaseURL string // e.g. "http://localhost:8983/solr"
	Core    string

	Transport transport.Config

	Readers int // extractor / archive-reader worker count
	Writers int // archive-writer / loader worker count

	Logger *slog.Logger
	Bar    bool // render a terminal progress bar
	Quiet  bool

	// Backup-specific.
	Skip             uint64
	Limit            uint64
	NumDocs          uint64
	Select           []string
	Query            string // q template, may reference {begin}/{end}; defaults to "*:*"
	Filter           string
	SliceMode        slice.Mode
	SliceBegin       string
	SliceEnd         string
	SliceStep        uint64
	WorkaroundShards int
	ArchiveDir       string
	ArchiveFiles     int
	Compression      archive.Method
	MaxErrors        int // also read by Restore, as the loader's shared budget

	// Restore-specific.
	RestoreDir     string
	Pattern        string
	Order          archive.Order
	CommitMode     load.CommitMode
	NoFinalCommit  bool
	DisableReplication bool
	DelayBefore     time.Duration
	DelayPerRequest time.Duration
	DelayAfter      time.Duration
}

// Result summarizes one completed or aborted run.
type Result struct {
	Count    int64
	Elapsed  time.Duration
	Aborted  bool
}

func (c Config) selectHandlerURL() string {
	return fmt.Sprintf("%s/%s/select", c.BaseURL, c.Core)
}

// query returns the user's q template, defaulting to "*:*" when unset.
func (c Config) query() string {
	if c.Query != "" {
		return c.Query
	}
	return "*:*"
}

// queryTemplate builds the select URL (minus start/rows, which page.Planner
// appends per step) for one slice: the query template with s's bounds
// substituted for {begin}/{end}, the user filter, and the probed field list.
func (c Config) queryTemplate(s slice.Slice, fields []string) string {
	q := queryurl.SubstituteSlice(c.query(), s.Begin, s.End)
	b := queryurl.New().Q(q).AddFilter(c.Filter).Fields(fields)
	return b.BuildURL(c.selectHandlerURL())
}

func (c Config) updateURL() string {
	return fmt.Sprintf("%s/%s/update/json/docs?overwrite=true", c.BaseURL, c.Core)
}

// commitURL is the plain update handler the final hard commit targets,
// distinct from updateURL's /update/json/docs document endpoint.
func (c Config) commitURL() string {
	return fmt.Sprintf("%s/%s/update", c.BaseURL, c.Core)
}

func (c Config) coreURL() string {
	return fmt.Sprintf("%s/%s", c.BaseURL, c.Core)
}

// Backup runs the full extract pipeline: probe, slice, page, extract,
// archive. It returns once every planned step has either produced an
// ArchiveEntry or surfaced a fatal error, or the context was cancelled.
func Backup(ctx context.Context, cfg Config) (Result, error) {
	start := time.Now()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancellation := progress.Watch(ctx)

	newTransport := func() *transport.Transport { return transport.New(cfg.Transport, logger) }
	probeTransport := newTransport()

	probeQuery := queryurl.SubstituteSlice(cfg.query(), cfg.SliceBegin, cfg.SliceEnd)
	probeURL := queryurl.New().Q(probeQuery).AddFilter(cfg.Filter).Page(0, 1).BuildURL(cfg.selectHandlerURL())
	schema, err := probe.Probe(ctx, probe.FromTransport(probeTransport), probeURL, probe.Options{
		Skip:             cfg.Skip,
		Select:           cfg.Select,
		WorkaroundShards: cfg.WorkaroundShards,
		Logger:           logger,
	})
	if err != nil {
		return Result{}, fmt.Errorf("solrcopy: probe: %w", err)
	}

	limit := cfg.Limit
	if limit == 0 || limit > schema.NumFound {
		limit = schema.NumFound
	}

	slicer := slice.Planner{Begin: cfg.SliceBegin, End: cfg.SliceEnd, Step: cfg.SliceStep, Mode: cfg.SliceMode}
	sliceIter, err := slicer.Iterator()
	if err != nil {
		return Result{}, fmt.Errorf("solrcopy: slice planner: %w", err)
	}

	readers := max1(cfg.Readers)
	writers := max1(cfg.Writers)
	stepQueue := make(chan page.Step, readers*4)
	docsQueue := make(chan extract.Documents, writers*3)

	var bar *progressbar.ProgressBar
	if cfg.Bar && !cfg.Quiet {
		bar = progress.NewBar(int64(limit-cfg.Skip), "backup")
	}
	reporter := progress.NewReporter(int64(limit-cfg.Skip), bar, nil)
	defer reporter.Close()

	g, gctx := errgroup.WithContext(ctx)

	// C3 -> C4 producer: walk every slice, plan every page, feed stepQueue.
	g.Go(func() error {
		defer close(stepQueue)
		first := true
		for s, ok := sliceIter(); ok; s, ok = sliceIter() {
			skip := uint64(0)
			if first {
				skip = cfg.Skip
			}
			template := cfg.queryTemplate(s, schema.Fields)
			planner := page.Planner{Skip: skip, Limit: limit, NumDocs: cfg.NumDocs, URL: template}
			next := planner.Iterator()
			for step, ok := next(); ok; step, ok = next() {
				select {
				case stepQueue <- step:
				case <-gctx.Done():
					return nil
				}
			}
			first = false
		}
		return nil
	})

	// C5: extractor pool.
	extractPool := extract.NewPool(extract.Options{
		MustMatch: matchTarget(cfg.WorkaroundShards, schema.NumFound),
		MaxErrors: cfg.MaxErrors,
		Logger:    logger,
	}, newTransport)
	g.Go(func() error {
		defer close(docsQueue)
		return extractPool.Run(gctx, readers, stepQueue, docsQueue)
	})

	// C6: archive writer pool, one Writer per worker goroutine.
	var loaded atomic.Int64
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			w := archive.NewWriter(cfg.ArchiveDir, cfg.Core, schema.NumFound, cfg.Compression, cfg.ArchiveFiles, logger)
			defer w.Close()
			for {
				select {
				case <-gctx.Done():
					return nil
				case d, ok := <-docsQueue:
					if !ok {
						return nil
					}
					if err := w.Write(archive.Entry{Offset: d.Offset, JSON: d.JSON}); err != nil {
						logger.Error("solrcopy: archive write failed, worker terminating", "error", err)
						return nil
					}
					loaded.Add(countDocs(d.JSON))
					reporter.Tick()
				}
			}
		})
	}

	runErr := g.Wait()

	res := Result{Count: loaded.Load(), Elapsed: time.Since(start)}
	if cancellation.Cancelled() {
		res.Aborted = true
		return res, nil
	}
	if runErr != nil {
		return res, fmt.Errorf("solrcopy: backup: %w", runErr)
	}
	return res, nil
}

// Restore runs the full load pipeline: enumerate, read, load.
func Restore(ctx context.Context, cfg Config) (Result, error) {
	start := time.Now()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancellation := progress.Watch(ctx)

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = cfg.Core + "*.zip"
	}
	paths, err := archive.Enumerate(cfg.RestoreDir, pattern, cfg.Order)
	if err != nil {
		return Result{}, fmt.Errorf("solrcopy: enumerating archives: %w", err)
	}
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("solrcopy: found no archives to restore from in %s matching %s", cfg.RestoreDir, pattern)
	}

	readers := max1(cfg.Readers)
	writers := max1(cfg.Writers)
	entries := make(chan load.Entry, writers*3)

	var bar *progressbar.ProgressBar
	if cfg.Bar && !cfg.Quiet {
		bar = progress.NewBar(0, "restore")
	}
	reporter := progress.NewReporter(0, bar, nil)
	defer reporter.Close()

	g, gctx := errgroup.WithContext(ctx)
	readGroup, rctx := errgroup.WithContext(gctx)

	pathQueue := make(chan string, readers*4)
	readGroup.Go(func() error {
		defer close(pathQueue)
		for _, p := range paths {
			select {
			case pathQueue <- p:
			case <-rctx.Done():
				return nil
			}
		}
		return nil
	})

	// C8: archive reader pool.
	for i := 0; i < readers; i++ {
		readGroup.Go(func() error {
			for {
				select {
				case <-rctx.Done():
					return nil
				case p, ok := <-pathQueue:
					if !ok {
						return nil
					}
					err := archive.ReadArchive(p, logger, func(e archive.ReadEntry) error {
						select {
						case entries <- e:
							return nil
						case <-rctx.Done():
							return rctx.Err()
						}
					})
					if err != nil {
						logger.Warn("solrcopy: skipping unreadable archive", "path", filepath.Base(p), "error", err)
					}
				}
			}
		})
	}

	// Closes entries once every reader worker has exited, so the loader
	// pool below sees a well-formed drain-then-close rather than racing it.
	g.Go(func() error {
		defer close(entries)
		return readGroup.Wait()
	})

	loaderPool := load.NewPool(load.Options{
		UpdateURL:          cfg.updateURL(),
		CommitURL:          cfg.commitURL(),
		CommitMode:         cfg.CommitMode,
		NoFinalCommit:      cfg.NoFinalCommit,
		MaxErrors:          cfg.MaxErrors,
		DelayBefore:        cfg.DelayBefore,
		DelayPerRequest:    cfg.DelayPerRequest,
		DelayAfter:         cfg.DelayAfter,
		DisableReplication: cfg.DisableReplication,
		ReplicationURL:     cfg.coreURL(),
		Logger:             logger,
	}, func() *transport.Transport { return transport.New(cfg.Transport, logger) })

	loadErr := loaderPool.Run(gctx, writers, entries)

	runErr := g.Wait()
	if runErr == nil {
		runErr = loadErr
	}

	res := Result{Count: loaderPool.Loaded(), Elapsed: time.Since(start)}
	if cancellation.Cancelled() {
		res.Aborted = true
		return res, nil
	}
	if runErr != nil {
		return res, fmt.Errorf("solrcopy: restore: %w", runErr)
	}
	return res, nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// countDocs returns the number of documents in one page's JSON array, or 0
// when the text is not a JSON array.
func countDocs(text []byte) int64 {
	var docs []json.RawMessage
	if err := json.Unmarshal(text, &docs); err != nil {
		return 0
	}
	return int64(len(docs))
}

func matchTarget(workaroundShards int, numFound uint64) uint64 {
	if workaroundShards <= 0 {
		return 0
	}
	return numFound
}


