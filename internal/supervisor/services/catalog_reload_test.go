// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tomtom215/crossfade/internal/catalog"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(context.Context) (*catalog.Catalog, error) {
	r.calls.Add(1)
	return nil, r.err
}

func waitForCalls(t *testing.T, r *countingReloader, want int32) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for r.calls.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("reload calls = %d, want >= %d", r.calls.Load(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func serveInBackground(t *testing.T, svc *CatalogReloadService) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return func() {
		stop()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	}
}

func TestCatalogReloadService_TriggerCoalesces(t *testing.T) {
	reloader := &countingReloader{}
	svc := NewCatalogReloadService(reloader, "", 0, zerolog.Nop())

	svc.Trigger()
	svc.Trigger()
	svc.Trigger()

	stop := serveInBackground(t, svc)
	waitForCalls(t, reloader, 1)
	time.Sleep(50 * time.Millisecond)
	stop()

	if got := reloader.calls.Load(); got != 1 {
		t.Errorf("reload calls = %d, want 1", got)
	}
}

func TestCatalogReloadService_FailedReloadKeepsRunning(t *testing.T) {
	reloader := &countingReloader{err: errors.New("artifact corrupt")}
	svc := NewCatalogReloadService(reloader, "", 0, zerolog.Nop())
	stop := serveInBackground(t, svc)
	defer stop()

	svc.Trigger()
	waitForCalls(t, reloader, 1)
	svc.Trigger()
	waitForCalls(t, reloader, 2)
}

func TestCatalogReloadService_Throttle(t *testing.T) {
	reloader := &countingReloader{}
	svc := NewCatalogReloadService(reloader, "", 200*time.Millisecond, zerolog.Nop())
	stop := serveInBackground(t, svc)
	defer stop()

	start := time.Now()
	svc.Trigger()
	waitForCalls(t, reloader, 1)
	svc.Trigger()
	waitForCalls(t, reloader, 2)

	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("second reload after %v, want it throttled", elapsed)
	}
}

func TestCatalogReloadService_WatchesArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	reloader := &countingReloader{}
	svc := NewCatalogReloadService(reloader, path, 0, zerolog.Nop())
	stop := serveInBackground(t, svc)
	defer stop()

	// Give the watcher time to register before touching the file.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := reloader.calls.Load(); got != 0 {
		t.Fatalf("reload calls after unrelated write = %d, want 0", got)
	}

	if err := os.WriteFile(path, []byte(`{"tracks":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	waitForCalls(t, reloader, 1)
}

func TestCatalogReloadService_Relevant(t *testing.T) {
	svc := NewCatalogReloadService(&countingReloader{}, "/data/./catalog.json", 0, zerolog.Nop())

	tests := []struct {
		name string
		evt  fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: "/data/catalog.json", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/data/catalog.json", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/data/catalog.json", Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: "/data/catalog.json", Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: "/data/catalog.json.tmp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.relevant(tt.evt); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.evt, got, tt.want)
			}
		})
	}
}
