package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestOverlay_ReadThrough(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("a"), []byte("base"))

	ov := NewOverlay(base)

	val, err := ov.Get([]byte("a"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(val, []byte("base")) {
		t.Errorf("Get() = %q, want %q", val, "base")
	}

	ok, err := ov.Has([]byte("a"))
	if err != nil {
		t.Fatalf("Has() error: %v", err)
	}
	if !ok {
		t.Error("Has() = false for base key")
	}
}

func TestOverlay_StagedWritesShadowBase(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("a"), []byte("base"))

	ov := NewOverlay(base)
	ov.Put([]byte("a"), []byte("staged"))

	val, err := ov.Get([]byte("a"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(val, []byte("staged")) {
		t.Errorf("Get() = %q, want staged value", val)
	}

	// Base remains untouched until Commit.
	baseVal, _ := base.Get([]byte("a"))
	if !bytes.Equal(baseVal, []byte("base")) {
		t.Errorf("base value = %q, should still be %q", baseVal, "base")
	}
}

func TestOverlay_StagedDelete(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("a"), []byte("base"))

	ov := NewOverlay(base)
	ov.Delete([]byte("a"))

	if _, err := ov.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after staged delete: err = %v, want ErrNotFound", err)
	}
	if ok, _ := ov.Has([]byte("a")); ok {
		t.Error("Has() = true after staged delete")
	}

	// Still present in the base.
	if ok, _ := base.Has([]byte("a")); !ok {
		t.Error("staged delete should not touch the base")
	}
}

func TestOverlay_Commit(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("keep"), []byte("1"))
	base.Put([]byte("drop"), []byte("2"))

	ov := NewOverlay(base)
	ov.Put([]byte("new"), []byte("3"))
	ov.Put([]byte("keep"), []byte("updated"))
	ov.Delete([]byte("drop"))

	if err := ov.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	val, err := base.Get([]byte("new"))
	if err != nil {
		t.Fatalf("Get(new) error: %v", err)
	}
	if !bytes.Equal(val, []byte("3")) {
		t.Errorf("new = %q, want %q", val, "3")
	}

	val, _ = base.Get([]byte("keep"))
	if !bytes.Equal(val, []byte("updated")) {
		t.Errorf("keep = %q, want %q", val, "updated")
	}

	if ok, _ := base.Has([]byte("drop")); ok {
		t.Error("deleted key survived Commit()")
	}

	if ov.Len() != 0 {
		t.Errorf("Len() after Commit = %d, want 0", ov.Len())
	}
}

func TestOverlay_Commit_Badger(t *testing.T) {
	dir := t.TempDir()
	base, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer base.Close()

	base.Put([]byte("drop"), []byte("x"))

	ov := NewOverlay(base)
	ov.Put([]byte("a"), []byte("1"))
	ov.Delete([]byte("drop"))

	if err := ov.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	val, err := base.Get([]byte("a"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(val, []byte("1")) {
		t.Errorf("a = %q, want %q", val, "1")
	}
	if ok, _ := base.Has([]byte("drop")); ok {
		t.Error("deleted key survived Commit()")
	}
}

func TestOverlay_Discard(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("a"), []byte("base"))

	ov := NewOverlay(base)
	ov.Put([]byte("a"), []byte("staged"))
	ov.Put([]byte("b"), []byte("new"))
	ov.Discard()

	if ov.Len() != 0 {
		t.Errorf("Len() after Discard = %d, want 0", ov.Len())
	}

	val, _ := ov.Get([]byte("a"))
	if !bytes.Equal(val, []byte("base")) {
		t.Errorf("Get() after Discard = %q, want base value", val)
	}
	if ok, _ := base.Has([]byte("b")); ok {
		t.Error("discarded write reached the base")
	}
}

func TestOverlay_ForEach_MergesStagedAndBase(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("p/a"), []byte("1"))
	base.Put([]byte("p/b"), []byte("2"))
	base.Put([]byte("q/x"), []byte("9"))

	ov := NewOverlay(base)
	ov.Put([]byte("p/b"), []byte("override"))
	ov.Put([]byte("p/c"), []byte("3"))
	ov.Delete([]byte("p/a"))

	got := make(map[string]string)
	err := ov.ForEach([]byte("p/"), func(key, value []byte) error {
		got[string(key)] = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}

	want := map[string]string{
		"p/b": "override",
		"p/c": "3",
	}
	if len(got) != len(want) {
		t.Fatalf("ForEach() saw %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ForEach() %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestOverlay_ForEach_StopEarly(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("p/a"), []byte("1"))
	base.Put([]byte("p/b"), []byte("2"))

	ov := NewOverlay(base)
	stop := errors.New("stop")

	err := ov.ForEach([]byte("p/"), func(key, value []byte) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("ForEach() err = %v, want stop sentinel", err)
	}
}

func TestOverlay_CommitEmpty(t *testing.T) {
	ov := NewOverlay(NewMemory())
	if err := ov.Commit(); err != nil {
		t.Errorf("Commit() on empty overlay: %v", err)
	}
}
