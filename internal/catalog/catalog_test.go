// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package catalog

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	return []Item{
		{ID: "t1", Title: "One", Artist: "A", Genre: "Rock", Plays: 10, Embedding: []float32{1, 0, 0}},
		{ID: "t2", Title: "Two", Artist: "B", Genre: "Jazz", Plays: 5, Embedding: []float32{0, 1, 0}},
		{ID: "t3", Title: "Three", Artist: "A", Genre: "Rock", Plays: 7, Embedding: []float32{0, 0, 1}},
	}
}

func TestNew(t *testing.T) {
	c, err := New(sampleItems(), "test")
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Dim())
	assert.True(t, c.HasGenres())
	assert.True(t, c.HasArtists())
	assert.Equal(t, int64(3*3*4), c.EmbeddingBytes())

	for i := 0; i < c.Len(); i++ {
		row, ok := c.Lookup(c.Item(i).ID)
		require.True(t, ok)
		assert.Equal(t, i, row, "index must map id back to its own row")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]Item) []Item
		wantErr error
	}{
		{"empty", func([]Item) []Item { return nil }, ErrEmpty},
		{"duplicate id", func(it []Item) []Item { it[2].ID = "t1"; return it }, ErrDuplicateID},
		{"short embedding", func(it []Item) []Item { it[1].Embedding = []float32{1}; return it }, ErrDimensionMismatch},
		{"no embedding", func(it []Item) []Item { it[0].Embedding = nil; return it }, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.mutate(sampleItems()), "test")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestNew_MissingAttributes(t *testing.T) {
	items := sampleItems()
	for i := range items {
		items[i].Genre = ""
	}
	c, err := New(items, "test")
	require.NoError(t, err)
	assert.False(t, c.HasGenres())
	assert.True(t, c.HasArtists())
}

func TestResolve(t *testing.T) {
	c, err := New(sampleItems(), "test")
	require.NoError(t, err)

	rows := c.Resolve([]string{"t3", "unknown", "t1", "t3"})
	assert.Equal(t, []int{2, 0, 2}, rows)
	assert.Empty(t, c.Resolve([]string{"nope"}))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, CosineF32([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, 0.0, CosineF32([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineF32([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineF32([]float32{0, 0}, []float32{1, 0}))

	c, err := New(sampleItems(), "test")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, c.Cosine(0, 1), 1e-9)
	assert.InDelta(t, 1.0, c.Cosine(2, 2), 1e-9)
}

func TestArtifact_Build(t *testing.T) {
	a := &Artifact{
		Version:    1,
		Dimension:  2,
		Tracks:     []ArtifactTrack{{ID: "a"}, {ID: "b"}},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	}
	c, err := a.Build("mem")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	a.Embeddings = a.Embeddings[:1]
	_, err = a.Build("mem")
	assert.ErrorIs(t, err, ErrRowMismatch)

	a.Embeddings = [][]float32{{1, 0, 0}, {0, 1, 0}}
	_, err = a.Build("mem")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	a.Version = 9
	_, err = a.Build("mem")
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	src, err := New(sampleItems(), "test")
	require.NoError(t, err)
	require.NoError(t, WriteArtifact(path, src))

	c, err := FileLoader{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src.Len(), c.Len())
	assert.Equal(t, "Three", c.Item(2).Title)
	assert.Equal(t, []float32{0, 0, 1}, c.Embedding(2))
	assert.Equal(t, "file:"+path, c.Source())
}

func TestFileLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := FileLoader{Path: filepath.Join(dir, "missing.json")}.Load(context.Background())
	assert.ErrorIs(t, err, ErrArtifactMissing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = FileLoader{Path: bad}.Load(context.Background())
	assert.Error(t, err)

	mismatch := filepath.Join(dir, "mismatch.json")
	body := `{"version":1,"dimension":2,"tracks":[{"id":"a"},{"id":"b"}],"embeddings":[[1,0]]}`
	require.NoError(t, os.WriteFile(mismatch, []byte(body), 0o600))
	_, err = FileLoader{Path: mismatch}.Load(context.Background())
	assert.ErrorIs(t, err, ErrRowMismatch)
}

func openMemBadger(t *testing.T) *BadgerStore {
	t.Helper()
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	b := openMemBadger(t)
	ctx := context.Background()

	_, err := b.Load(ctx)
	require.ErrorIs(t, err, ErrArtifactMissing)

	src, err := New(sampleItems(), "test")
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, src))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, src.Len(), got.Len())
	for i := 0; i < src.Len(); i++ {
		assert.Equal(t, *src.Item(i), *got.Item(i))
	}

	// A smaller catalog replaces the old rows entirely.
	smaller, err := New(sampleItems()[:2], "test")
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, smaller))
	got, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

type fakeLoader struct {
	calls atomic.Int32
	cat   *Catalog
	err   error
	gate  chan struct{}
}

func (f *fakeLoader) Load(context.Context) (*Catalog, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.cat, f.err
}

func (f *fakeLoader) String() string { return "fake" }

func TestStore_Reload(t *testing.T) {
	first, err := New(sampleItems(), "first")
	require.NoError(t, err)

	var (
		swaps    int
		lastPrev *Catalog
	)
	loader := &fakeLoader{cat: first}
	s := NewStore(loader, zerolog.Nop(), WithSwapHook(func(prev, _ *Catalog) {
		swaps++
		lastPrev = prev
	}))
	assert.Nil(t, s.Current())

	got, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Same(t, first, s.Current())
	assert.Equal(t, 1, swaps)
	assert.Nil(t, lastPrev)

	// A failing reload keeps the previous catalog serving.
	loader.cat, loader.err = nil, ErrRowMismatch
	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrRowMismatch)
	assert.Same(t, first, s.Current())
	assert.Equal(t, 1, swaps)

	second, err := New(sampleItems(), "second")
	require.NoError(t, err)
	loader.cat, loader.err = second, nil
	_, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, swaps)
	assert.Same(t, first, lastPrev)
}

func TestStore_ReloadCollapsesConcurrentCalls(t *testing.T) {
	c, err := New(sampleItems(), "test")
	require.NoError(t, err)

	loader := &fakeLoader{cat: c, gate: make(chan struct{})}
	s := NewStore(loader, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Reload(context.Background())
		}()
	}
	// Let the goroutines pile up on the in-flight load before releasing it.
	for loader.calls.Load() == 0 {
		runtime.Gosched()
	}
	time.Sleep(50 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	assert.Less(t, loader.calls.Load(), int32(8), "callers waiting on the gate must share its result")
	assert.Same(t, c, s.Current())
}

func TestStore_SnapshotFallback(t *testing.T) {
	ctx := context.Background()
	b := openMemBadger(t)

	src, err := New(sampleItems(), "file:catalog.json")
	require.NoError(t, err)

	// A successful primary load writes a snapshot.
	s := NewStore(&fakeLoader{cat: src}, zerolog.Nop(), WithSnapshots(b))
	_, err = s.Reload(ctx)
	require.NoError(t, err)

	// A fresh process whose artifact is gone serves the snapshot.
	fresh := NewStore(&fakeLoader{err: ErrArtifactMissing}, zerolog.Nop(), WithSnapshots(b))
	got, err := fresh.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, src.Len(), got.Len())
	assert.Equal(t, "badger:memory", got.Source())

	// Any other load error is not masked by the snapshot.
	broken := NewStore(&fakeLoader{err: ErrRowMismatch}, zerolog.Nop(), WithSnapshots(b))
	_, err = broken.Reload(ctx)
	assert.ErrorIs(t, err, ErrRowMismatch)
	assert.Nil(t, broken.Current())
}

func TestCosine_NaNFree(t *testing.T) {
	v := CosineF32([]float32{0, 0, 0}, []float32{0, 0, 0})
	assert.False(t, math.IsNaN(v))
}
