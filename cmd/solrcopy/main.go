// Command solrcopy backs up and restores Apache Solr core documents through
// the core's HTTP query and update handlers. Grounded on the teacher pack's
// CLI conventions: spf13/pflag for flag parsing and fatih/color for status
// output (vjache-cie), wired to the solrcopy package's Backup/Restore entry
// points.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/mecenat/solrcopy"
	"github.com/mecenat/solrcopy/archive"
	"github.com/mecenat/solrcopy/config"
	"github.com/mecenat/solrcopy/load"
	"github.com/mecenat/solrcopy/slice"
	"github.com/mecenat/solrcopy/transport"
)

const (
	exitOK            = 0
	exitConfigError   = 1
	exitRunError      = 2
	exitAbortedSignal = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitConfigError
	}

	cmd := args[0]
	switch cmd {
	case "backup":
		return runBackup(args[1:])
	case "restore":
		return runRestore(args[1:])
	default:
		printUsage()
		return exitConfigError
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: solrcopy <backup|restore> [flags]")
}

func sharedFlags(fs *pflag.FlagSet) (configPath *string, url, core *string, timeout, retries, readers, writers *int, quiet, bar *bool) {
	configPath = fs.String("config", "", "path to a YAML config file")
	url = fs.String("url", "", "Solr base URL, e.g. http://localhost:8983/solr")
	core = fs.String("core", "", "Solr core name")
	timeout = fs.Int("timeout", 60, "HTTP timeout in seconds")
	retries = fs.Int("retries", 4, "transport retry budget")
	readers = fs.Int("readers", 4, "reader/extractor worker count")
	writers = fs.Int("writers", 2, "writer/loader worker count")
	quiet = fs.Bool("quiet", false, "suppress progress output")
	bar = fs.Bool("bar", true, "render a terminal progress bar")
	return
}

func baseConfig(runID string, configPath, url, core string, timeout, retries int, quiet bool) (solrcopy.Config, error) {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return solrcopy.Config{}, err
	}
	fileCfg = fileCfg.ApplyEnv()

	resolvedURL := firstNonEmpty(url, fileCfg.URL)
	resolvedCore := firstNonEmpty(core, fileCfg.Core)
	if resolvedURL == "" || resolvedCore == "" {
		return solrcopy.Config{}, fmt.Errorf("--url and --core are required (or set in --config / %s)", config.EnvURL)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("run_id", runID)

	return solrcopy.Config{
		BaseURL: resolvedURL,
		Core:    resolvedCore,
		Transport: transport.Config{
			TimeoutSeconds: timeout,
			MaxRetries:     retries,
			BasicAuthUser:  fileCfg.BasicUser,
			BasicAuthPass:  fileCfg.BasicPass,
			Release:        true,
		},
		Logger: logger,
		Quiet:  quiet,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func runBackup(args []string) int {
	runID := uuid.NewString()
	fs := pflag.NewFlagSet("backup", pflag.ContinueOnError)
	configPath, url, core, timeout, retries, readers, writers, quiet, bar := sharedFlags(fs)

	dir := fs.String("dir", "", "output directory for archives")
	skip := fs.Uint64("skip", 0, "number of documents to skip")
	limit := fs.Uint64("limit", 0, "maximum number of documents to back up (0 = all)")
	numDocs := fs.Uint64("num-docs", 500, "documents per page request")
	query := fs.String("query", "*:*", "Solr q template; may reference {begin}/{end} for slice bounds")
	filter := fs.String("filter", "", "Solr fq filter query")
	archiveFiles := fs.Int("archive-files", 50, "entries per archive file before rotation")
	compression := fs.String("compression", "stored", "compression method: stored, deflate, zstd")
	maxErrors := fs.Int("max-errors", 10, "per-worker error budget before aborting")
	workaroundShards := fs.Int("workaround-shards", 0, "repeat the probe 5*N+1 times to defend against shard divergence")
	sliceMode := fs.String("slice-mode", "none", "slicing mode: none, range, minute, hour, day")
	sliceBegin := fs.String("slice-begin", "", "slice range/time begin")
	sliceEnd := fs.String("slice-end", "", "slice range/time end")
	sliceStep := fs.Uint64("slice-step", 1, "slice step size")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return exitConfigError
	}

	cfg, err := baseConfig(runID, *configPath, *url, *core, *timeout, *retries, *quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	method, err := archive.ParseMethod(*compression)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	mode, err := parseSliceMode(*sliceMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	resolvedDir := firstNonEmpty(*dir, os.Getenv(config.EnvDir))
	if resolvedDir == "" {
		resolvedDir = "."
	}

	cfg.Readers = *readers
	cfg.Writers = *writers
	cfg.Bar = *bar
	cfg.Skip = *skip
	cfg.Limit = *limit
	cfg.NumDocs = *numDocs
	cfg.Query = *query
	cfg.Filter = *filter
	cfg.SliceMode = mode
	cfg.SliceBegin = *sliceBegin
	cfg.SliceEnd = *sliceEnd
	cfg.SliceStep = *sliceStep
	cfg.ArchiveDir = resolvedDir
	cfg.ArchiveFiles = *archiveFiles
	cfg.Compression = method
	cfg.MaxErrors = *maxErrors
	cfg.WorkaroundShards = *workaroundShards

	result, err := solrcopy.Backup(context.Background(), cfg)
	return report("backup", result, err)
}

func runRestore(args []string) int {
	runID := uuid.NewString()
	fs := pflag.NewFlagSet("restore", pflag.ContinueOnError)
	configPath, url, core, timeout, retries, readers, writers, quiet, bar := sharedFlags(fs)

	dir := fs.String("dir", "", "directory to read archives from")
	pattern := fs.String("pattern", "", "glob pattern for archive files (default <core>*.zip)")
	order := fs.String("order", "none", "archive processing order: none, asc, desc")
	commitMode := fs.String("commit-mode", "hard", "commit mode: none, soft, hard, within:<ms>")
	noFinalCommit := fs.Bool("no-final-commit", false, "skip the final hard commit after restore")
	maxErrors := fs.Int("max-errors", 10, "shared error budget before aborting")
	disableReplication := fs.Bool("disable-replication", false, "toggle replication off for the duration of the restore")
	delayBefore := fs.Duration("delay-before", 0, "sleep before starting the restore")
	delayPerRequest := fs.Duration("delay-per-request", 0, "sleep after each document POST")
	delayAfter := fs.Duration("delay-after", 0, "sleep after the restore, before the final commit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return exitConfigError
	}

	cfg, err := baseConfig(runID, *configPath, *url, *core, *timeout, *retries, *quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	ord, err := archive.ParseOrder(*order)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	mode, err := parseCommitMode(*commitMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("config error: %v", err))
		return exitConfigError
	}

	resolvedDir := firstNonEmpty(*dir, os.Getenv(config.EnvDir))
	if resolvedDir == "" {
		resolvedDir = "."
	}

	cfg.Readers = *readers
	cfg.Writers = *writers
	cfg.Bar = *bar
	cfg.RestoreDir = resolvedDir
	cfg.Pattern = *pattern
	cfg.Order = ord
	cfg.CommitMode = mode
	cfg.NoFinalCommit = *noFinalCommit
	cfg.MaxErrors = *maxErrors
	cfg.DisableReplication = *disableReplication
	cfg.DelayBefore = *delayBefore
	cfg.DelayPerRequest = *delayPerRequest
	cfg.DelayAfter = *delayAfter

	result, err := solrcopy.Restore(context.Background(), cfg)
	return report("restore", result, err)
}

func report(op string, result solrcopy.Result, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%s failed: %v", op, err))
		return exitRunError
	}
	if result.Aborted {
		fmt.Fprintln(os.Stderr, color.YellowString("%s aborted by user after %d documents", op, result.Count))
		return exitAbortedSignal
	}
	fmt.Println(color.GreenString("%s completed: %d documents in %s", op, result.Count, result.Elapsed.Round(time.Millisecond)))
	return exitOK
}

func parseSliceMode(name string) (slice.Mode, error) {
	switch name {
	case "", "none":
		return slice.None, nil
	case "range":
		return slice.Range, nil
	case "minute":
		return slice.Minute, nil
	case "hour":
		return slice.Hour, nil
	case "day":
		return slice.Day, nil
	default:
		return slice.None, fmt.Errorf("unknown slice mode %q", name)
	}
}

func parseCommitMode(name string) (load.CommitMode, error) {
	switch {
	case name == "none":
		return load.None{}, nil
	case name == "soft":
		return load.Soft{}, nil
	case name == "hard", name == "":
		return load.Hard{}, nil
	case len(name) > 6 && name[:6] == "within":
		var ms int
		rest := name[6:]
		if len(rest) > 0 && rest[0] == ':' {
			rest = rest[1:]
		}
		if _, err := fmt.Sscanf(rest, "%d", &ms); err != nil {
			return nil, fmt.Errorf("invalid within commit mode %q: %w", name, err)
		}
		return load.Within{Millis: ms}, nil
	default:
		return nil, fmt.Errorf("unknown commit mode %q", name)
	}
}
