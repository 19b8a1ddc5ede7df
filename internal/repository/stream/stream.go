// Package stream reads and writes line-oriented JSON artifacts.
//
// Reads are best-effort: malformed or invalid lines are skipped and counted,
// never aborting the run. Writes are atomic: content lands in a temp file in
// the target directory and replaces the final artifact only on success, so a
// crash mid-write leaves the previous valid output untouched.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// maxLineBytes bounds a single JSONL line (large story slices fit well under this).
const maxLineBytes = 8 * 1024 * 1024

// Stats summarizes one stream read.
type Stats struct {
	Read    int
	Skipped int
}

// Read decodes a JSONL artifact into a slice of T. Each decoded value runs
// through validate (when non-nil); failures are logged, skipped and counted.
// A missing file is fatal: it means an upstream stage never ran.
func Read[T any](path string, validate func(*T) error, logger *zap.Logger) ([]T, Stats, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Stats{}, fmt.Errorf("%w: %s", domain.ErrMissingArtifact, path)
		}
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		items []T
		stats Stats
		line  int
	)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			stats.Skipped++
			logger.Warn("Skipping malformed line",
				zap.String("path", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		if validate != nil {
			if err := validate(&item); err != nil {
				stats.Skipped++
				logger.Warn("Skipping invalid record",
					zap.String("path", path), zap.Int("line", line), zap.Error(err))
				continue
			}
		}
		items = append(items, item)
		stats.Read++
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}

	return items, stats, nil
}

// Write encodes items as one JSON object per line and atomically replaces path.
func Write[T any](path string, items []T) error {
	var buf []byte
	for i := range items {
		line, err := json.Marshal(&items[i])
		if err != nil {
			return fmt.Errorf("marshal item %d: %w", i, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return WriteFileAtomic(path, buf)
}

// WriteJSON atomically writes a single indented JSON document.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// ReadJSON decodes a single JSON document. Missing file maps to
// domain.ErrMissingArtifact like Read.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrMissingArtifact, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place. The rename is atomic on POSIX filesystems; a killed process leaves
// the previous artifact intact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
