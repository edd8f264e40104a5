package engine

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestAltEngine(t *testing.T) *AltEngine {
	t.Helper()
	e, err := OpenAltEngine(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("OpenAltEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAltEngine_SetGetRemove(t *testing.T) {
	e := openTestAltEngine(t)

	if err := e.Set("k1", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := e.Get("k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "v1" {
		t.Errorf("Get(k1) = (%q, %v), want (v1, true)", value, ok)
	}

	if err := e.Remove("k1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	_, ok, err = e.Get("k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get(k1) after remove reported present, want absent")
	}
}

func TestAltEngine_RemoveAbsentKeyReturnsKeyNotFound(t *testing.T) {
	e := openTestAltEngine(t)
	err := e.Remove("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrKeyNotFound", err)
	}
}

func TestAltEngine_GetMissingKeyReturnsFalse(t *testing.T) {
	e := openTestAltEngine(t)
	_, ok, err := e.Get("missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get(missing) reported present, want absent")
	}
}

func TestAltEngine_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	e, err := OpenAltEngine(dir)
	if err != nil {
		t.Fatalf("OpenAltEngine() error = %v", err)
	}
	if err := e.Set("k1", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenAltEngine(dir)
	if err != nil {
		t.Fatalf("OpenAltEngine() (reopen) error = %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get("k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "v1" {
		t.Errorf("Get(k1) after reopen = (%q, %v), want (v1, true)", value, ok)
	}
}
