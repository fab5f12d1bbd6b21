// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	snapshotMetaKey   = "catalog:meta"
	snapshotRowPrefix = "catalog:row:"
)

// BadgerConfig configures the snapshot store.
type BadgerConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the store in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	// Default: false
	SyncWrites bool
}

// BadgerStore persists catalog snapshots in BadgerDB so a node can restart
// from its last good catalog without re-reading the JSON artifact.
type BadgerStore struct {
	db   *badger.DB
	name string
}

type snapshotMeta struct {
	Rows      int       `json:"rows"`
	Dimension int       `json:"dimension"`
	Source    string    `json:"source"`
	SavedAt   time.Time `json:"saved_at"`
}

type snapshotRow struct {
	Track     ArtifactTrack `json:"track"`
	Embedding []float32     `json:"embedding"`
}

// OpenBadger opens (or creates) a snapshot store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	name := "badger:" + cfg.Path
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
		name = "badger:memory"
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, name: name}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) String() string { return s.name }

func rowKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%09d", snapshotRowPrefix, i))
}

// Save replaces the stored snapshot with c. Rows are written before the
// meta record, so an interrupted save is detected by Load as a row mismatch.
func (s *BadgerStore) Save(ctx context.Context, c *Catalog) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(snapshotMetaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}); err != nil {
		return fmt.Errorf("clear snapshot meta: %w", err)
	}
	if err := s.db.DropPrefix([]byte(snapshotRowPrefix)); err != nil {
		return fmt.Errorf("drop old snapshot rows: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range c.items {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		it := &c.items[i]
		val, err := json.Marshal(snapshotRow{
			Track:     ArtifactTrack{ID: it.ID, Title: it.Title, Artist: it.Artist, Genre: it.Genre, Plays: it.Plays},
			Embedding: it.Embedding,
		})
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if err := wb.Set(rowKey(i), val); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush snapshot rows: %w", err)
	}

	meta, err := json.Marshal(snapshotMeta{
		Rows:      c.Len(),
		Dimension: c.Dim(),
		Source:    c.Source(),
		SavedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotMetaKey), meta)
	})
}

// Load rebuilds the catalog from the stored snapshot.
func (s *BadgerStore) Load(ctx context.Context) (*Catalog, error) {
	var (
		meta  snapshotMeta
		items []Item
	)

	err := s.db.View(func(txn *badger.Txn) error {
		mi, err := txn.Get([]byte(snapshotMetaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no snapshot in %s", ErrArtifactMissing, s.name)
		}
		if err != nil {
			return err
		}
		if err := mi.Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
			return fmt.Errorf("decode snapshot meta: %w", err)
		}

		items = make([]Item, 0, meta.Rows)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotRowPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row snapshotRow
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &row) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			items = append(items, Item{
				ID:        row.Track.ID,
				Title:     row.Track.Title,
				Artist:    row.Track.Artist,
				Genre:     row.Track.Genre,
				Plays:     row.Track.Plays,
				Embedding: row.Embedding,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(items) != meta.Rows {
		return nil, fmt.Errorf("%w: snapshot declares %d rows, found %d", ErrRowMismatch, meta.Rows, len(items))
	}
	c, err := New(items, s.name)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.name, err)
	}
	if c.Dim() != meta.Dimension {
		return nil, fmt.Errorf("%w: snapshot declares %d, rows have %d", ErrDimensionMismatch, meta.Dimension, c.Dim())
	}
	return c, nil
}
