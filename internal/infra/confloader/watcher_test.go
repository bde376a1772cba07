package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func waitFor(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("callback count = %d, want >= %d", counter.Load(), want)
}

func TestWatchMissingDir(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.Watch("/nonexistent-dir-for-test/config.yaml"); err == nil {
		t.Error("Watch() on missing directory should fail")
	}
}

func TestFileChangeTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange(func(changed string) {
		if changed != path {
			t.Errorf("callback path = %q, want %q", changed, path)
		}
		calls.Add(1)
	})

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w.StartAsync()

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitFor(t, &calls, 1)
}

func TestUnrelatedFileIgnored(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "config.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(watched, []byte("a: 1\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })

	if err := w.Watch(watched); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w.StartAsync()

	// A sibling file in the same directory must not fire callbacks.
	if err := os.WriteFile(other, []byte("b: 2\n"), 0600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callbacks for unrelated file = %d, want 0", got)
	}

	if err := os.WriteFile(watched, []byte("a: 2\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitFor(t, &calls, 1)
}

func TestRecreateTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w.StartAsync()

	// Editor-style save: remove then recreate under the same name.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove config: %v", err)
	}
	if err := os.WriteFile(path, []byte("a: 2\n"), 0600); err != nil {
		t.Fatalf("recreate config: %v", err)
	}
	waitFor(t, &calls, 1)
}

func TestStopEndsStart(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
