package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
)

// ReadEntry is one decoded entry read back from an archive file, paired
// with its originating archive and entry name for logging.
type ReadEntry struct {
	ArchiveName string
	EntryName   string
	JSON        string
}

// ReadArchive opens path and decodes every entry into a ReadEntry, calling
// emit for each in zip directory order. Malformed entries are logged and
// skipped; they do not abort the rest of the archive. ReadArchive itself
// returns an error only if the archive cannot be opened at all, which
// callers log and skip, moving on to the next archive, or if emit returns
// an error, which stops reading the archive.
func ReadArchive(path string, logger *slog.Logger, emit func(ReadEntry) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			logger.Warn("archive: skipping unreadable entry", "archive", path, "entry", f.Name, "error", err)
			continue
		}

		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			logger.Warn("archive: skipping truncated entry", "archive", path, "entry", f.Name, "error", err)
			continue
		}

		if err := emit(ReadEntry{ArchiveName: path, EntryName: f.Name, JSON: string(body)}); err != nil {
			return err
		}
	}
	return nil
}
