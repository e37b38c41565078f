// Package probe issues the diagnostic query used to plan a backup: it
// derives the document count (numFound) and the default field list from a
// single-row query, and can repeat the probe to defeat stale numFound
// answers from a divergent Solr Cloud replica. Grounded on the original
// solrcopy's inspect_core/parse_core_schema (src/fetch.rs).
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/mecenat/solrcopy/transport"
)

// CoreSchema is an immutable snapshot of one probe: the document count and
// the ordered field names to select, with underscore-prefixed (Solr
// internal) fields already filtered out.
type CoreSchema struct {
	NumFound uint64
	Fields   []string
}

var (
	numFoundPattern = regexp.MustCompile(`"numFound":(\d+)`)
	fieldNamePattern = regexp.MustCompile(`"(\w+)":`)
)

// Getter performs the single GET used by one probe attempt. It exists so
// tests can substitute a fake without standing up an httptest.Server for
// every case; production callers pass transport.Transport.Get.
type Getter func(ctx context.Context, url string) (string, error)

// Options configures one Probe call.
type Options struct {
	// Skip is the user-supplied --skip; numFound must exceed it.
	Skip uint64
	// Select, if non-empty, overrides the parsed field list entirely.
	Select []string
	// WorkaroundShards, when > 0, repeats the probe 5*WorkaroundShards+1
	// times and keeps the highest numFound observed, defending against
	// shard replicas answering with stale counts.
	WorkaroundShards int
	Logger           *slog.Logger
}

// Probe issues queryURL (expected to carry start=0&rows=1) against get and
// derives a CoreSchema, applying the shard-divergence workaround when
// configured.
func Probe(ctx context.Context, get Getter, queryURL string, opts Options) (CoreSchema, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := 1
	if opts.WorkaroundShards > 0 {
		attempts = opts.WorkaroundShards*5 + 1
	}

	var best CoreSchema
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := get(ctx, queryURL)
		if err != nil {
			lastErr = err
			logger.Debug("probe attempt failed", "attempt", attempt, "error", err)
			continue
		}

		schema, err := parseSchema(body, opts.Select)
		if err != nil {
			lastErr = err
			logger.Debug("probe attempt unparseable", "attempt", attempt, "error", err)
			continue
		}

		logger.Debug("probe attempt succeeded", "attempt", attempt, "num_found", schema.NumFound)
		if schema.NumFound > best.NumFound {
			best = schema
		}
	}

	if best.NumFound == 0 {
		if lastErr != nil {
			return CoreSchema{}, fmt.Errorf("probe: all attempts failed: %w", lastErr)
		}
		return CoreSchema{}, fmt.Errorf("probe: core is empty")
	}

	if best.NumFound <= opts.Skip {
		return CoreSchema{}, fmt.Errorf("probe: requested %d in skip but found %d docs with the query", opts.Skip, best.NumFound)
	}

	return best, nil
}

// parseSchema decodes numFound and, unless an explicit select list was
// given, the field names from the first returned document. Parsing is
// intentionally a structural regex/substring scan rather than a full JSON
// unmarshal of the documents array, since documents carry unknown fields
// that must be preserved verbatim by later stages; the envelope itself
// (responseHeader/response wrapper) is not expected to vary, so deriving
// numFound and the docs substring this way is safe and fast.
func parseSchema(body string, explicitSelect []string) (CoreSchema, error) {
	numFound, err := parseNumFound(body)
	if err != nil {
		return CoreSchema{}, err
	}
	if numFound < 1 {
		return CoreSchema{}, fmt.Errorf("probe: core is empty")
	}

	if len(explicitSelect) > 0 {
		return CoreSchema{NumFound: numFound, Fields: explicitSelect}, nil
	}

	fields, err := parseFieldNames(body)
	if err != nil {
		return CoreSchema{}, err
	}
	return CoreSchema{NumFound: numFound, Fields: fields}, nil
}

func parseNumFound(body string) (uint64, error) {
	m := numFoundPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, fmt.Errorf("probe: numFound missing from response: %s", truncate(body))
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("probe: numFound not numeric in response: %w", err)
	}
	return n, nil
}

// docsSubstring isolates the raw documents array text between the "docs":
// key and the envelope's closing "}}", matching the extractor's parsing
// convention so probe and extract stay consistent about where the docs
// array lives in the response.
func docsSubstring(body string) (string, bool) {
	start := strings.Index(body, `"docs":`)
	if start < 0 {
		return "", false
	}
	start += len(`"docs":`)
	end := strings.LastIndex(body, "}}")
	if end < 0 || end <= start {
		return "", false
	}
	return body[start:end], true
}

func parseFieldNames(body string) ([]string, error) {
	row, ok := docsSubstring(body)
	if !ok {
		return nil, fmt.Errorf("probe: missing fields to parse in response: %s", truncate(body))
	}

	matches := fieldNamePattern.FindAllStringSubmatch(row, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("probe: missing fields to parse in response")
	}

	seen := make(map[string]bool, len(matches))
	var fields []string
	for _, m := range matches {
		name := m[1]
		if strings.HasPrefix(name, "_") || seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("probe: missing fields to parse in response")
	}
	return fields, nil
}

func truncate(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// FromTransport adapts a transport.Transport into a Getter.
func FromTransport(t *transport.Transport) Getter {
	return t.Get
}
