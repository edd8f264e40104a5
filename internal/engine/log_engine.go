package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jassi-singh/aether-kv/internal/record"
	"github.com/jassi-singh/aether-kv/internal/storage"
)

const (
	logFileName   = "my-file"
	compactSuffix = ".compact"
	// defaultCompactionFactor is used when OpenLogEngine is given a
	// non-positive compactionFactor.
	defaultCompactionFactor = 3
)

// indexEntry is the in-memory index's value: where the record that
// produced a key's current value lives in the log.
type indexEntry struct {
	offset int64
	size   int64
}

// LogEngine is the append-only log-structured storage engine: a
// LogFile plus an in-memory key->offset index, online compaction and
// redundancy bookkeeping.
type LogEngine struct {
	mu               sync.Mutex
	log              *storage.LogFile
	index            map[string]indexEntry
	redundancy       int
	syncOnWrite      bool
	compactionFactor int
}

// OpenLogEngine opens the log at path (or path/my-file if path names an
// existing directory), replaying it to rebuild the in-memory index, and
// deletes any stale compaction sibling left over from a crash
// mid-compaction. syncOnWrite controls whether every Append is flushed
// and fsynced immediately. compactionFactor is the multiple of the live
// key count past which Set triggers an automatic compaction; a
// non-positive value falls back to defaultCompactionFactor.
func OpenLogEngine(path string, syncOnWrite bool, compactionFactor int) (*LogEngine, error) {
	if compactionFactor <= 0 {
		compactionFactor = defaultCompactionFactor
	}

	logPath, err := resolveLogPath(path)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(logPath + compactSuffix); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: remove stale compaction sibling: %v", ErrIo, err)
	}

	logFile, err := storage.OpenLogFile(logPath, syncOnWrite)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}

	e := &LogEngine{
		log:              logFile,
		index:            make(map[string]indexEntry),
		syncOnWrite:      syncOnWrite,
		compactionFactor: compactionFactor,
	}
	if err := e.replay(); err != nil {
		logFile.Close()
		return nil, err
	}

	slog.Info("engine: log engine opened", "path", logPath, "keys", len(e.index))
	return e, nil
}

// resolveLogPath implements the original store's literal is_dir() rule:
// if path exists and is a directory, the log lives at path/my-file;
// otherwise path itself is the log file, even if nothing exists there
// yet (a non-existent path is never assumed to be a directory).
func resolveLogPath(path string) (string, error) {
	if stat, err := os.Stat(path); err == nil && stat.IsDir() {
		return filepath.Join(path, logFileName), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: create parent dir for %s: %v", ErrIo, path, err)
	}
	return path, nil
}

// replay rebuilds the in-memory index by scanning the log from the
// start.
func (e *LogEngine) replay() error {
	r, err := e.log.Reader()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	offset := int64(0)
	for {
		rec, n, err := record.ReadFrom(r)
		if errors.Is(err, record.ErrEndOfLog) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: replay at offset %d: %v", ErrCorruptLog, offset, err)
		}

		switch rec.Kind {
		case record.KindSet:
			if _, exists := e.index[rec.Key]; exists {
				e.redundancy++
			}
			e.index[rec.Key] = indexEntry{offset: offset, size: n}
		case record.KindRemove:
			if _, exists := e.index[rec.Key]; exists {
				delete(e.index, rec.Key)
			}
			e.redundancy += 2
		case record.KindGet:
			return fmt.Errorf("%w: Get command found in log at offset %d", ErrCorruptLog, offset)
		}
		offset += n
	}
	return nil
}

// Get implements Engine.
func (e *LogEngine) Get(key string) (string, bool, error) {
	e.mu.Lock()
	entry, ok := e.index[key]
	e.mu.Unlock()
	if !ok {
		return "", false, nil
	}

	rec, err := e.readRecordAt(entry)
	if err != nil {
		return "", false, err
	}
	if rec.Kind != record.KindSet {
		return "", false, fmt.Errorf("%w: indexed offset %d for key %q is not a Set record", ErrCorruptLog, entry.offset, key)
	}
	return rec.Value, true, nil
}

// readRecordAt reads and decodes the length-prefixed record stored at
// entry.offset/entry.size.
func (e *LogEngine) readRecordAt(entry indexEntry) (record.Record, error) {
	buf := make([]byte, entry.size)
	if err := e.log.ReadAt(entry.offset, buf); err != nil {
		return record.Record{}, fmt.Errorf("%w: %v", ErrIo, err)
	}
	rec, err := record.DecodePayload(buf[8:])
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	return rec, nil
}

// Set implements Engine.
func (e *LogEngine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	encoded := record.Set(key, value).Encode()
	offset, err := e.log.Append(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}

	if _, exists := e.index[key]; exists {
		e.redundancy++
	}
	e.index[key] = indexEntry{offset: offset, size: int64(len(encoded))}

	if e.redundancy > e.compactionFactor*len(e.index) {
		if err := e.compactLocked(); err != nil {
			return fmt.Errorf("engine: compaction after set: %w", err)
		}
	}
	return nil
}

// Remove implements Engine.
func (e *LogEngine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[key]; !ok {
		return ErrKeyNotFound
	}

	encoded := record.Remove(key).Encode()
	if _, err := e.log.Append(encoded); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}

	delete(e.index, key)
	e.redundancy += 2
	return nil
}

// Compact forces an online compaction regardless of the current
// redundancy level. Exported for tests and operational tooling.
func (e *LogEngine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compactLocked()
}

// compactLocked rewrites the log to contain exactly one Set per live
// key. Must be called with mu held.
func (e *LogEngine) compactLocked() error {
	siblingPath := e.log.Path() + compactSuffix
	sibling, err := storage.OpenLogFile(siblingPath, false)
	if err != nil {
		return fmt.Errorf("%w: open compaction sibling: %v", ErrIo, err)
	}

	newIndex := make(map[string]indexEntry, len(e.index))
	for key, entry := range e.index {
		rec, err := e.readRecordAt(entry)
		if err != nil {
			sibling.Close()
			os.Remove(siblingPath)
			return err
		}
		if rec.Kind != record.KindSet {
			sibling.Close()
			os.Remove(siblingPath)
			return fmt.Errorf("%w: offset %d for key %q is not a Set record", ErrCorruptLog, entry.offset, key)
		}

		raw := make([]byte, entry.size)
		if err := e.log.ReadAt(entry.offset, raw); err != nil {
			sibling.Close()
			os.Remove(siblingPath)
			return fmt.Errorf("%w: %v", ErrIo, err)
		}

		newOffset, err := sibling.Append(raw)
		if err != nil {
			sibling.Close()
			os.Remove(siblingPath)
			return fmt.Errorf("%w: write to compaction sibling: %v", ErrIo, err)
		}
		newIndex[key] = indexEntry{offset: newOffset, size: entry.size}
	}

	if err := sibling.Close(); err != nil {
		os.Remove(siblingPath)
		return fmt.Errorf("%w: close compaction sibling: %v", ErrIo, err)
	}

	oldPath := e.log.Path()
	if err := os.Rename(siblingPath, oldPath); err != nil {
		os.Remove(siblingPath)
		return fmt.Errorf("%w: rename compaction sibling over log: %v", ErrIo, err)
	}

	if err := e.log.Close(); err != nil {
		slog.Warn("engine: error closing pre-compaction log handle", "error", err)
	}
	reopened, err := storage.OpenLogFile(oldPath, e.syncOnWrite)
	if err != nil {
		return fmt.Errorf("%w: reopen log after compaction: %v", ErrIo, err)
	}

	e.log = reopened
	e.index = newIndex
	e.redundancy = 0
	slog.Info("engine: compaction complete", "keys", len(e.index))
	return nil
}

// Close implements Engine.
func (e *LogEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.log.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// Size returns the in-memory index's key count. Exported for tests.
func (e *LogEngine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.index)
}

// LogSize returns the current on-disk size of the log file.
func (e *LogEngine) LogSize() (int64, error) {
	return e.log.Size()
}
