package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.etcd.io/bbolt"
)

const (
	altFileName = "aether.db"
	altBucket   = "kv"
)

// AltEngine adapts an embedded bbolt database to the Engine interface,
// standing in for the original store's sled backend.
type AltEngine struct {
	db *bbolt.DB
}

// OpenAltEngine opens (creating if absent) a bbolt database inside
// dataDir and ensures its single bucket exists.
func OpenAltEngine(dataDir string) (*AltEngine, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %v", ErrIo, dataDir, err)
	}

	path := filepath.Join(dataDir, altFileName)
	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt db %s: %v", ErrIo, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(altBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", ErrIo, err)
	}

	slog.Info("engine: alt engine opened", "path", path)
	return &AltEngine{db: db}, nil
}

// Get implements Engine.
func (e *AltEngine) Get(key string) (string, bool, error) {
	var value []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(altBucket)).Get([]byte(key))
		if raw != nil {
			value = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrIo, err)
	}
	if value == nil {
		return "", false, nil
	}
	if !utf8.Valid(value) {
		return "", false, fmt.Errorf("%w: value for key %q is not valid UTF-8", ErrEncoding, key)
	}
	return string(value), true, nil
}

// Set implements Engine.
func (e *AltEngine) Set(key, value string) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(altBucket)).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// Remove implements Engine. Unlike bbolt's native Delete, which
// succeeds whether or not the key exists, Remove returns
// ErrKeyNotFound on an absent key so both engines agree on this
// behavior.
func (e *AltEngine) Remove(key string) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(altBucket))
		if bucket.Get([]byte(key)) == nil {
			return ErrKeyNotFound
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		if err == ErrKeyNotFound {
			return ErrKeyNotFound
		}
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// Close implements Engine.
func (e *AltEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}
