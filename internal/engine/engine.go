// Package engine provides the storage engine abstraction shared by the
// two backends this store supports: an append-only log engine with an
// in-memory key directory (LogEngine) and an adapter over an embedded
// B-tree store (AltEngine). Both satisfy Engine, so the server and
// request handler never need to know which one is in use.
package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors. Handlers and CLI entry points use errors.Is against
// these to decide how to report a failure.
var (
	// ErrIo wraps any underlying file or stream error.
	ErrIo = errors.New("engine: io error")
	// ErrCorruptLog marks a decode failure or structural inconsistency
	// in the log (an unexpected record variant at a recorded offset,
	// a short read mid-record, a bad CRC).
	ErrCorruptLog = errors.New("engine: corrupt log")
	// ErrKeyNotFound is returned by Remove on a key that is not live.
	ErrKeyNotFound = errors.New("engine: key not found")
	// ErrEncoding marks stored bytes that are not valid UTF-8 where a
	// string was expected (alt engine only).
	ErrEncoding = errors.New("engine: invalid encoding")
	// ErrConfig marks an unknown engine name. Fatal at startup.
	ErrConfig = errors.New("engine: invalid configuration")
)

// Engine is the capability set both backends implement: get, set,
// remove, each keyed by a UTF-8 string, plus Close to release resources.
type Engine interface {
	// Get returns the value for key and true if key is live, or
	// ("", false, nil) if key has no value. A non-nil error means the
	// lookup itself failed (ErrIo, ErrCorruptLog, ErrEncoding).
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Remove deletes key. Returns ErrKeyNotFound if key is not live.
	Remove(key string) error
	// Close releases the engine's resources (file handles, the
	// embedded database). An engine must not be used after Close.
	Close() error
}

// Name identifies which backend to open.
type Name string

const (
	// NameLog selects the log-structured engine ("kvs" in config and on
	// the CLI).
	NameLog Name = "kvs"
	// NameAlt selects the embedded B-tree adapter ("sled" in config and
	// on the CLI).
	NameAlt Name = "sled"
)

// Open opens the named engine backend rooted at path. syncOnWrite and
// compactionFactor configure the log engine only (fsync-per-append
// durability and the redundancy multiple that triggers online
// compaction); the alt engine has no equivalent knobs and ignores them.
// An unknown name is a fatal ErrConfig.
func Open(name Name, path string, syncOnWrite bool, compactionFactor int) (Engine, error) {
	switch name {
	case NameLog:
		return OpenLogEngine(path, syncOnWrite, compactionFactor)
	case NameAlt:
		return OpenAltEngine(path)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q (want %q or %q)", ErrConfig, name, NameLog, NameAlt)
	}
}
