package disk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openWithClock(t *testing.T, cfg Config) (*Store, *fakeClock) {
	t.Helper()
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clk.now
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func TestStoreTTLExpiry(t *testing.T) {
	store, clk := openWithClock(t, Config{Root: t.TempDir(), TTL: time.Minute, MaxEntries: 10})
	ctx := context.Background()

	if err := store.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k1"); err != nil || !ok {
		t.Fatalf("get before expiry: ok=%v err=%v", ok, err)
	}

	clk.advance(2 * time.Minute)
	if _, ok, err := store.Get(ctx, "k1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	} else if ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store, clk := openWithClock(t, Config{Root: t.TempDir(), TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		if err := store.Set(ctx, k, []byte(k+k)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
		clk.advance(time.Second)
	}
	if _, ok, err := store.Get(ctx, "a"); err != nil || !ok {
		t.Fatalf("touch a: ok=%v err=%v", ok, err)
	}
	clk.advance(time.Second)
	if err := store.Set(ctx, "c", []byte("cc")); err != nil {
		t.Fatalf("set c: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, err := store.Get(ctx, k); err != nil || !ok {
			t.Fatalf("expected %s to remain: ok=%v err=%v", k, ok, err)
		}
	}
}

func TestStoreEvictsBySize(t *testing.T) {
	store, clk := openWithClock(t, Config{Root: t.TempDir(), TTL: time.Hour, MaxEntries: 10, MaxBytes: 5})
	ctx := context.Background()

	if err := store.Set(ctx, "old", []byte("123")); err != nil {
		t.Fatalf("set old: %v", err)
	}
	clk.advance(time.Second)
	if err := store.Set(ctx, "new", []byte("456")); err != nil {
		t.Fatalf("set new: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry under byte cap, got %d", store.Len())
	}
	if _, ok, _ := store.Get(ctx, "new"); !ok {
		t.Fatalf("expected newest entry to survive")
	}
}

func TestStoreRestoresAfterClose(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	store, err := Open(Config{Root: root, TTL: time.Minute, MaxEntries: 10})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Set(ctx, "persist", []byte("value")); err != nil {
		t.Fatalf("set persist: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := store.Get(ctx, "persist"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}

	store2, err := Open(Config{Root: root, TTL: time.Minute, MaxEntries: 10})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store2.Close()
	raw, ok, err := store2.Get(ctx, "persist")
	if err != nil || !ok {
		t.Fatalf("expected persisted key: ok=%v err=%v", ok, err)
	}
	if string(raw) != "value" {
		t.Fatalf("unexpected value: %q", string(raw))
	}
}

func TestStoreDropsEntriesWithMissingFiles(t *testing.T) {
	store, _ := openWithClock(t, Config{Root: t.TempDir(), TTL: time.Hour, MaxEntries: 10})
	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := os.Remove(filepath.Join(store.dataDir, hashedName("k"))); err != nil {
		t.Fatalf("remove data file: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected index entry to be dropped")
	}
}

func TestOpenRejectsCorruptIndex(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if _, err := Open(Config{Root: root}); err == nil {
		t.Fatalf("expected corrupt index error")
	}
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected missing root error")
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	root := t.TempDir()
	store, _ := openWithClock(t, Config{Root: root, TTL: time.Hour, MaxEntries: 10})
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.dataDir, hashedName("a"))); !os.IsNotExist(err) {
		t.Fatalf("expected data file of a to be removed, got %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", store.Len())
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Clear(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from clear after close, got %v", err)
	}

	reopened, err := Open(Config{Root: root, TTL: time.Hour, MaxEntries: 10})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Len() != 0 {
		t.Fatalf("expected empty store after clear, got %d entries", reopened.Len())
	}
}
