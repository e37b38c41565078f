// Package transport provides the single HTTP client used by every stage of
// the backup/restore pipeline: the schema probe, the extractor pool, the
// loader pool and the replication-toggle calls. It wraps
// hashicorp/go-retryablehttp the same way the solr client package wraps it
// for its RetryableConnection, generalized from a Solr-aware connection to a
// plain GET/POST transport that classifies errors and retries with backoff.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// env var names recognized at construction time.
const (
	EnvTimeoutSeconds = "SOLR_COPY_TIMEOUT"
	EnvMaxRetries     = "SOLR_COPY_RETRIES"
)

// Config controls one Transport's timeout, retry budget and credentials.
// Zero-value fields fall back to the package defaults, which themselves can
// be overridden by SOLR_COPY_TIMEOUT / SOLR_COPY_RETRIES.
type Config struct {
	TimeoutSeconds int
	MaxRetries     int
	BasicAuthUser  string
	BasicAuthPass  string
	// Release selects the production backoff multiplier (5s) over the
	// debug one (1s), matching the k≈1/k≈5 distinction in the retry design.
	Release bool
}

func (c Config) withDefaults() Config {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = envInt(EnvTimeoutSeconds, 60)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = envInt(EnvMaxRetries, 4)
	}
	return c
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Transport performs GET and POST requests against a Solr handler URL with
// a bounded retry budget and linear, jittered backoff. One Transport is owned
// by exactly one worker goroutine; it is never shared across workers.
type Transport struct {
	client        *retryablehttp.Client
	cfg           Config
	logger        *slog.Logger
	lastRetryNum  atomic.Int64
}

// New builds a Transport from cfg. A nil logger discards all transport logs.
func New(cfg Config, logger *slog.Logger) *Transport {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	rc.RetryMax = cfg.MaxRetries

	multiplier := time.Duration(1)
	if cfg.Release {
		multiplier = 5
	}
	rc.RetryWaitMin = multiplier * time.Second
	rc.RetryWaitMax = multiplier * time.Second * time.Duration(cfg.MaxRetries+1)
	rc.Backoff = retryablehttp.LinearJitterBackoff
	rc.CheckRetry = checkRetry
	rc.Logger = slogAdapter{logger}

	t := &Transport{client: rc, cfg: cfg, logger: logger}
	rc.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, retryNumber int) {
		t.lastRetryNum.Store(int64(retryNumber))
	}
	return t
}

// checkRetry classifies a response/error as retryable, generalizing
// spec's rule: network errors, 503, and any non-fatal status while budget
// remains are retryable; 5xx once the budget is spent is fatal.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
		return true, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// LastRetryCount reports the retry attempt number of the most recently
// issued request, for logging and tests. go-retryablehttp does not expose
// this directly, so it is captured via RequestLogHook; zero before any
// request has been made.
func (t *Transport) LastRetryCount() int {
	return int(t.lastRetryNum.Load())
}

// Get performs an HTTP GET against url and returns the decoded response body.
func (t *Transport) Get(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("transport: building GET request: %w", err)
	}
	t.setAuth(req)
	return t.do(req)
}

// Post performs an HTTP POST against url with the given content type and body.
func (t *Transport) Post(ctx context.Context, url, contentType string, body []byte) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("transport: building POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	t.setAuth(req)
	return t.do(req)
}

func (t *Transport) setAuth(req *retryablehttp.Request) {
	if t.cfg.BasicAuthUser != "" {
		req.SetBasicAuth(t.cfg.BasicAuthUser, t.cfg.BasicAuthPass)
	}
}

func (t *Transport) do(req *retryablehttp.Request) (string, error) {
	res, err := t.client.Do(req)
	if err != nil {
		return "", &Error{Retryable: false, Cause: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &Error{Retryable: false, Cause: err}
	}

	if res.StatusCode >= 400 {
		return "", &Error{Status: res.StatusCode, Retryable: false, Cause: fmt.Errorf("solr returned %d: %s", res.StatusCode, body), Body: body}
	}

	return string(body), nil
}

// Error carries a human-readable cause and an optional HTTP status code.
// Callers may downgrade a fatal Error to a skipped item if their own retry
// policy allows it.
type Error struct {
	Status    int
	Retryable bool
	Cause     error
	// Body holds the raw response body for 4xx/5xx responses, so callers
	// can attempt their own richer decoding (see solrerr.Decode).
	Body []byte
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: status %d: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("transport: %v", e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// slogAdapter lets go-retryablehttp log through the caller's *slog.Logger
// at debug level, matching the rule that retryable errors log at debug
// while fatal ones are surfaced to the caller for error-level logging.
type slogAdapter struct{ logger *slog.Logger }

func (a slogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
