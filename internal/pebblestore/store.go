// Package pebblestore keeps index pages in a Pebble database instead of
// segment files. Each page is one value under a big-endian (file, page) key,
// so the pages of a file are contiguous in key order.
package pebblestore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"

	"github.com/tuannm99/novaspatial/internal/alias/bx"
	"github.com/tuannm99/novaspatial/internal/storage"
)

const pagePrefix = 'p'

const keySize = 1 + 2 + 4

var _ storage.Store = (*Store)(nil)

type Store struct {
	db  *pebble.DB
	dir string
	// sync makes every SavePage durable on return.
	sync bool
}

type Options struct {
	Sync bool
}

// Open opens (or creates) the Pebble database at dir.
func Open(dir string, opts Options) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open: %w", err)
	}
	slog.Info("pebblestore.open", "dir", dir, "sync", opts.Sync)
	return &Store{db: db, dir: dir, sync: opts.Sync}, nil
}

func (s *Store) Close() error {
	slog.Info("pebblestore.close", "dir", s.dir)
	return s.db.Close()
}

func filePrefix(file uint16) []byte {
	k := make([]byte, 3, keySize)
	k[0] = pagePrefix
	bx.PutU16BE(k[1:], file)
	return k
}

func pageKey(id storage.PageFileID) []byte {
	k := filePrefix(id.File)[:keySize]
	bx.PutU32BE(k[3:], id.Page)
	return k
}

// fileBounds spans every page key of file.
func fileBounds(file uint16) (lower, upper []byte) {
	lower = filePrefix(file)
	upper = append(filePrefix(file), 0xff, 0xff, 0xff, 0xff, 0xff)
	return lower, upper
}

func (s *Store) writeOpts() *pebble.WriteOptions {
	if s.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (s *Store) LoadPage(id storage.PageFileID) (*storage.Page, error) {
	val, closer, err := s.db.Get(pageKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("load %s: %w", id, storage.ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %v", id, storage.ErrStorageIO, err)
	}
	// val is only valid until closer.Close()
	buf := make([]byte, len(val))
	copy(buf, val)
	_ = closer.Close()

	p, err := storage.PageFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if got := p.ID(); got != id {
		slog.Warn("pebblestore.page.misplaced", "want", id.String(), "got", got.String())
		return nil, fmt.Errorf("load %s: %w: header says %s", id, storage.ErrPageCorrupted, got)
	}
	return p, nil
}

func (s *Store) SavePage(id storage.PageFileID, p *storage.Page) error {
	if len(p.Buf) != storage.PageSize {
		return storage.ErrWrongSize
	}
	if err := s.db.Set(pageKey(id), p.Buf, s.writeOpts()); err != nil {
		return fmt.Errorf("save %s: %w: %v", id, storage.ErrStorageIO, err)
	}
	return nil
}

// CountPages returns the number of pages stored for file.
func (s *Store) CountPages(file uint16) (uint32, error) {
	lower, upper := fileBounds(file)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, fmt.Errorf("pebblestore: count: %w", err)
	}
	var n uint32
	for valid := iter.First(); valid; valid = iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, err
	}
	return n, iter.Close()
}

// DropFile deletes every page of file.
func (s *Store) DropFile(file uint16) error {
	lower, upper := fileBounds(file)
	slog.Debug("pebblestore.file.drop", "dir", s.dir, "file", file)
	if err := s.db.DeleteRange(lower, upper, s.writeOpts()); err != nil {
		return fmt.Errorf("pebblestore: drop file %d: %w", file, err)
	}
	return nil
}

// Flush forces buffered writes to disk.
func (s *Store) Flush() error {
	return s.db.Flush()
}
