package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBurstOfWritesTriggersOneRun(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	w, err := New(root, 100*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watch set time to establish.
	time.Sleep(150 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

// Triggers firing while a regeneration is still running must not start a
// second concurrent run; they coalesce into one follow-up instead.
func TestRunsNeverOverlap(t *testing.T) {
	var (
		active  atomic.Int32
		overlap atomic.Bool
		runs    atomic.Int32
	)
	w, err := New(t.TempDir(), 50*time.Millisecond, func(context.Context) error {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		runs.Add(1)
		time.Sleep(100 * time.Millisecond)
		active.Add(-1)
		return nil
	}, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.watcher.Close()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		w.fireRun(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	w.fireRun(ctx)
	w.fireRun(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runs did not finish")
	}
	if overlap.Load() {
		t.Fatal("regenerations overlapped")
	}
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want initial run plus one coalesced follow-up", got)
	}
}

func TestHiddenFilesIgnored(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	w, err := New(root, 50*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("runs = %d, want 0 for hidden file", got)
	}
}
