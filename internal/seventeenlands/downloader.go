package seventeenlands

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

// DefaultFormat is the event format downloaded when none is configured.
const DefaultFormat = "PremierDraft"

// ObjectName returns the game_data object name for a set and event format,
// e.g. game_data_public.BLB.PremierDraft.csv.gz.
func ObjectName(setCode, format string) string {
	return fmt.Sprintf("game_data_public.%s.%s.csv.gz", strings.ToUpper(setCode), format)
}

// Downloader fetches game_data exports from a Source and stores them
// decompressed.
type Downloader struct {
	source Source
	format string
}

// NewDownloader creates a downloader for the given event format.
func NewDownloader(source Source, format string) *Downloader {
	if format == "" {
		format = DefaultFormat
	}
	return &Downloader{source: source, format: format}
}

// Format returns the event format the downloader fetches.
func (d *Downloader) Format() string {
	return d.format
}

// Download fetches the set's game data and writes the decompressed CSV to
// destPath. The file only appears once fully written. A missing object is
// reported as a dataerr.NotFoundError. It returns the decompressed size.
func (d *Downloader) Download(ctx context.Context, setCode, destPath string) (int64, error) {
	name := ObjectName(setCode, d.format)
	location := d.source.Location(name)

	log.Printf("[Downloader] Downloading dataset from: %s", location)

	body, err := d.source.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return 0, dataerr.NotFound(strings.ToLower(setCode), location)
		}
		return 0, fmt.Errorf("failed to download dataset: %w", err)
	}
	defer func() { _ = body.Close() }()

	written, err := decompressTo(body, destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to decompress dataset: %w", err)
	}

	log.Printf("[Downloader] Decompressed %d bytes to %s", written, destPath)
	return written, nil
}

// decompressTo gunzips r into a temp file next to destPath and renames it
// into place.
func decompressTo(r io.Reader, destPath string) (int64, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	written, err := io.Copy(tmp, gr)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to decompress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	return written, nil
}
