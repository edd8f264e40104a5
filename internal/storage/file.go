// Package storage provides the append-only log file operations the
// storage engines build on: buffered appends with configurable flush
// behavior, a dedicated long-lived read handle, and truncation. The
// rename that completes a compaction is done by the engine.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// LogFile is an append-only file of length-prefixed records. It keeps
// two open handles: a buffered append-only writer and a dedicated
// read-only handle, so that Get never has to reopen the file.
type LogFile struct {
	mu   sync.Mutex
	path string

	writeFile   *os.File
	buffer      *bufio.Writer
	readFile    *os.File
	syncOnWrite bool

	lastSyncTime time.Time
}

// OpenLogFile opens (creating if absent) the log file at path for
// appending, and opens a second read-only handle for ReadAt/Reader.
// syncOnWrite controls whether every Append is immediately flushed and
// fsynced (true, the default this store uses) or left to batch up in
// the buffer until the next Flush, ReadAt, Reader, Truncate or Close
// (false, as the log engine writes its compaction sibling).
func OpenLogFile(path string, syncOnWrite bool) (*LogFile, error) {
	writeFile, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open log file %s for append: %w", path, err)
	}

	readFile, err := os.Open(path)
	if err != nil {
		writeFile.Close()
		return nil, fmt.Errorf("storage: open log file %s for read: %w", path, err)
	}

	stat, err := writeFile.Stat()
	if err != nil {
		slog.Warn("storage: failed to stat log file", "path", path, "error", err)
	} else {
		slog.Info("storage: log file opened", "path", path, "size", stat.Size())
	}

	return &LogFile{
		path:         path,
		writeFile:    writeFile,
		buffer:       bufio.NewWriter(writeFile),
		readFile:     readFile,
		syncOnWrite:  syncOnWrite,
		lastSyncTime: time.Now(),
	}, nil
}

// Path returns the path this log file was opened at.
func (f *LogFile) Path() string { return f.path }

// Size returns the current on-disk size of the log file, including any
// data still sitting in the write buffer.
func (f *LogFile) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizeLocked()
}

func (f *LogFile) sizeLocked() (int64, error) {
	stat, err := f.writeFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat log file: %w", err)
	}
	return stat.Size() + int64(f.buffer.Buffered()), nil
}

// Append writes data to the end of the log and returns the byte offset
// at which it was written. When syncOnWrite is set the data is flushed
// and fsynced before Append returns, so the caller's durability
// guarantee holds as soon as Append succeeds.
func (f *LogFile) Append(data []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	offset, err := f.sizeLocked()
	if err != nil {
		return 0, err
	}

	if _, err := f.buffer.Write(data); err != nil {
		return 0, fmt.Errorf("storage: write to log buffer at offset %d: %w", offset, err)
	}

	if f.syncOnWrite {
		if err := f.flushAndSyncLocked(); err != nil {
			return 0, err
		}
	}
	return offset, nil
}

// Flush flushes and fsyncs any buffered writes.
func (f *LogFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushAndSyncLocked()
}

func (f *LogFile) flushAndSyncLocked() error {
	if err := f.buffer.Flush(); err != nil {
		return fmt.Errorf("storage: flush write buffer: %w", err)
	}
	if err := f.writeFile.Sync(); err != nil {
		return fmt.Errorf("storage: fsync log file: %w", err)
	}
	f.lastSyncTime = time.Now()
	return nil
}

// ReadAt reads exactly len(p) bytes starting at offset using the
// dedicated read handle. If the write buffer holds any unflushed bytes,
// it is flushed first so the read observes them.
func (f *LogFile) ReadAt(offset int64, p []byte) error {
	f.mu.Lock()
	if int64(f.buffer.Buffered()) > 0 {
		if err := f.flushAndSyncLocked(); err != nil {
			f.mu.Unlock()
			return err
		}
	}
	f.mu.Unlock()

	if _, err := f.readFile.ReadAt(p, offset); err != nil {
		return fmt.Errorf("storage: read %d bytes at offset %d: %w", len(p), offset, err)
	}
	return nil
}

// Reader returns an io.Reader over the log file starting at offset 0,
// suitable for a single sequential replay scan. It flushes any buffered
// writes first so the reader observes the full log.
func (f *LogFile) Reader() (io.Reader, error) {
	f.mu.Lock()
	if err := f.flushAndSyncLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	replayFile, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open log file %s for replay: %w", f.path, err)
	}
	return replayFile, nil
}

// Close flushes any buffered data and closes both handles.
func (f *LogFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.flushAndSyncLocked(); err != nil {
		slog.Error("storage: failed to flush before close", "error", err)
	}
	if err := f.writeFile.Close(); err != nil {
		return fmt.Errorf("storage: close write handle: %w", err)
	}
	if err := f.readFile.Close(); err != nil {
		return fmt.Errorf("storage: close read handle: %w", err)
	}
	return nil
}

// Truncate shortens the log to the given size, discarding everything
// after it. Used only by tests simulating a crash mid-record.
func (f *LogFile) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.flushAndSyncLocked(); err != nil {
		return err
	}
	if err := f.writeFile.Truncate(size); err != nil {
		return fmt.Errorf("storage: truncate log file to %d: %w", size, err)
	}
	if _, err := f.writeFile.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("storage: seek to end after truncate: %w", err)
	}
	return nil
}
