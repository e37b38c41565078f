// Package archive implements the on-disk container format shared by backup
// and restore: bounded-size ZIP files holding one JSON entry per page of
// documents. Grounded on the original solrcopy's Archiver (src/save.rs),
// generalized from its single stored-only method to three selectable
// compression methods.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Method selects how entries are compressed within one archive.
type Method int

const (
	Stored Method = iota
	Deflate
	Zstd
)

const zstdMethodID = 93

func init() {
	zip.RegisterCompressor(zstdMethodID, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	})
	zip.RegisterDecompressor(zstdMethodID, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(errReader{err})
		}
		return zr.IOReadCloser()
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func (m Method) zipMethod() uint16 {
	switch m {
	case Deflate:
		return zip.Deflate
	case Zstd:
		return zstdMethodID
	default:
		return zip.Store
	}
}

func (m Method) extension() string {
	if m == Zstd {
		return "zstd"
	}
	return "zip"
}

// Entry is one write into an open archive: the JSON payload for the page
// beginning at Offset.
type Entry struct {
	Offset uint64
	JSON   []byte
}

// Writer owns the lifecycle of one worker's sequence of archive files. It is
// not safe for concurrent use; each extractor/writer worker owns one.
type Writer struct {
	dir         string
	prefix      string
	numFound    uint64
	method      Method
	maxEntries  int
	logger      *slog.Logger

	zw         *zip.Writer
	file       *os.File
	entryCount int
}

// NewWriter constructs a Writer that will create files under dir named
// "<prefix>_docs_<numFound>_seq_<padded-offset>.<ext>", rotating to a new
// file every maxEntries entries.
func NewWriter(dir, prefix string, numFound uint64, method Method, maxEntries int, logger *slog.Logger) *Writer {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, prefix: prefix, numFound: numFound, method: method, maxEntries: maxEntries, logger: logger}
}

// Write appends one entry, opening a new archive first if none is open or
// the current one has reached maxEntries.
func (w *Writer) Write(e Entry) error {
	if w.zw == nil || w.entryCount >= w.maxEntries {
		if err := w.Close(); err != nil {
			return err
		}
		if err := w.open(e.Offset); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("docs_at_%09d.json", e.Offset)
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: w.method.zipMethod(),
	})
	if err != nil {
		return fmt.Errorf("archive: creating entry %s: %w", name, err)
	}
	if _, err := fw.Write(e.JSON); err != nil {
		return fmt.Errorf("archive: writing entry %s: %w", name, err)
	}
	if err := w.zw.Flush(); err != nil {
		return fmt.Errorf("archive: flushing entry %s: %w", name, err)
	}

	w.entryCount++
	return nil
}

func (w *Writer) open(offset uint64) error {
	name := fmt.Sprintf("%s_docs_%d_seq_%09d.%s", w.prefix, w.numFound, offset, w.method.extension())
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: creating %s: %w", path, err)
	}

	w.file = f
	w.zw = zip.NewWriter(f)
	w.entryCount = 0
	return nil
}

// Close finalizes the currently open archive, if any. It is idempotent: a
// second call with nothing open is a no-op.
func (w *Writer) Close() error {
	if w.zw == nil {
		return nil
	}
	err := w.zw.Close()
	w.zw = nil

	cerr := w.file.Close()
	w.file = nil
	w.entryCount = 0

	if err != nil {
		return fmt.Errorf("archive: finalizing archive: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("archive: closing archive file: %w", cerr)
	}
	return nil
}

// ParseMethod maps a user-facing name to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "", "stored", "store":
		return Stored, nil
	case "deflate":
		return Deflate, nil
	case "zstd":
		return Zstd, nil
	default:
		return Stored, fmt.Errorf("archive: unknown compression method %q", name)
	}
}
