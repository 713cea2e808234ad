package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/tuannm99/novaspatial/internal"
	"github.com/tuannm99/novaspatial/internal/bufferpool"
	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/cover"
	"github.com/tuannm99/novaspatial/internal/pebblestore"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/storage"
)

var (
	ErrDatabaseClosed = errors.New("novaspatial: database is closed")
	ErrWrongKind      = errors.New("novaspatial: index has a different kind")
)

// pageStore is what the engine needs from a page backend.
type pageStore interface {
	storage.Store
	CountPages(file uint16) (uint32, error)
	DropFile(file uint16) error
}

var (
	_ pageStore = (*storage.SegmentSource)(nil)
	_ pageStore = (*pebblestore.Store)(nil)
)

// Database owns the page backend, the shared buffer pool and the catalog.
// Queries run through Sessions.
type Database struct {
	DataDir string

	store  pageStore
	closer func() error
	pool   *bufferpool.GlobalPool
	cat    *catalog.Catalog
	grid   spatial.Grid
	cover  cover.Options

	// loads serializes index builds and drops.
	loads  sync.Mutex
	closed atomic.Bool
}

// Open prepares the data directory described by cfg.
func Open(cfg *internal.NovaSpatialConfig) (*Database, error) {
	if cfg == nil {
		cfg = internal.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	dir := cfg.Storage.Workdir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db := &Database{
		DataDir: dir,
		grid:    grid,
		cover:   cover.Options{Grid: grid, MaxCells: cfg.Spatial.MaxCoverCells},
		closer:  func() error { return nil },
	}
	switch cfg.Storage.Backend {
	case internal.BackendPebble:
		ps, err := pebblestore.Open(filepath.Join(dir, "pebble"), pebblestore.Options{Sync: cfg.Storage.Sync})
		if err != nil {
			return nil, err
		}
		db.store, db.closer = ps, ps.Close
	default:
		db.store = storage.NewSegmentSource(filepath.Join(dir, "pages"))
	}

	db.cat, err = catalog.Open(dir)
	if err != nil {
		_ = db.closer()
		return nil, err
	}
	db.pool = bufferpool.NewGlobalPool(db.store, cfg.Storage.PoolCapacity)

	slog.Info("engine.open",
		"dir", dir,
		"backend", cfg.Storage.Backend,
		"pool", cfg.Storage.PoolCapacity,
		"indexes", len(db.cat.List()),
	)
	return db, nil
}

func (db *Database) check() error {
	if db.closed.Load() {
		return ErrDatabaseClosed
	}
	return nil
}

func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	slog.Info("engine.close", "dir", db.DataDir, "pool", db.pool.Stats())
	return db.closer()
}

func (db *Database) Grid() spatial.Grid { return db.grid }

func (db *Database) CoverOptions() cover.Options { return db.cover }

func (db *Database) PoolStats() bufferpool.Stats { return db.pool.Stats() }

// Indexes lists the catalog.
func (db *Database) Indexes() ([]catalog.IndexMeta, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	return db.cat.List(), nil
}

func (db *Database) Index(name string) (catalog.IndexMeta, error) {
	if err := db.check(); err != nil {
		return catalog.IndexMeta{}, err
	}
	return db.cat.Get(name)
}

// DropIndex removes the index from the catalog and deletes its pages.
func (db *Database) DropIndex(name string) error {
	if err := db.check(); err != nil {
		return err
	}
	db.loads.Lock()
	defer db.loads.Unlock()

	m, err := db.cat.Drop(name)
	if err != nil {
		return err
	}
	return db.dropFile(m.File)
}

func (db *Database) dropFile(file uint16) error {
	db.pool.DropFile(file)
	if err := db.store.DropFile(file); err != nil {
		return fmt.Errorf("drop file %d: %w", file, err)
	}
	return nil
}

// FilePages reports how many pages the index occupies in the backend.
func (db *Database) FilePages(name string) (uint32, error) {
	m, err := db.Index(name)
	if err != nil {
		return 0, err
	}
	return db.store.CountPages(m.File)
}

// DumpPage writes a debug view of one page of the index. Page 0 is the
// meta page.
func (db *Database) DumpPage(w io.Writer, name string, page uint32) error {
	m, err := db.Index(name)
	if err != nil {
		return err
	}
	p, err := db.store.LoadPage(storage.PageFileID{File: m.File, Page: page})
	if err != nil {
		return err
	}
	return p.Debug(w)
}
