package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/spatialtree"
	"github.com/tuannm99/novaspatial/internal/storage"
)

// Place is one object handed to LoadSpatial. Depth 0 stores it under its
// leaf cell; a smaller depth stores it under that ancestor instead.
type Place struct {
	PK      int64
	Point   spatial.Point
	Depth   int
	Payload []byte
}

// ScalarRow is one row handed to LoadScalar.
type ScalarRow struct {
	Key     int64
	Payload []byte
}

// build writes a fresh file with fill, then points the catalog entry name
// at it and drops the file it replaced.
func (db *Database) build(ctx context.Context, name string, kind catalog.Kind, fill func(file uint16) (btree.BuildResult, int, error)) (catalog.IndexMeta, error) {
	if err := db.check(); err != nil {
		return catalog.IndexMeta{}, err
	}
	if err := catalog.ValidateName(name); err != nil {
		return catalog.IndexMeta{}, err
	}
	db.loads.Lock()
	defer db.loads.Unlock()

	file, err := db.cat.AllocFile()
	if err != nil {
		return catalog.IndexMeta{}, err
	}
	// a reused id may still have cached pages
	db.pool.DropFile(file)

	start := time.Now()
	res, keySize, err := fill(file)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if derr := db.store.DropFile(file); derr != nil {
			slog.Warn("engine.load.cleanup", "file", file, "err", derr)
		}
		return catalog.IndexMeta{}, fmt.Errorf("load %s: %w", name, err)
	}

	m := catalog.IndexMeta{
		Name:     name,
		Kind:     kind,
		File:     file,
		FileBase: storage.FileBase(file),
		RootPage: res.Root.Page,
		Height:   res.Height,
		Rows:     res.Rows,
		KeySize:  keySize,
	}
	if kind == catalog.KindSpatial {
		m.Grid = db.grid.Ints()
	}
	stored, prev, replaced, err := db.cat.Replace(m)
	if err != nil {
		_ = db.store.DropFile(file)
		return catalog.IndexMeta{}, err
	}
	if replaced {
		if err := db.dropFile(prev.File); err != nil {
			slog.Warn("engine.load.drop_previous", "index", name, "file", prev.File, "err", err)
		}
	}
	slog.Info("engine.load",
		"index", name,
		"kind", kind,
		"file", file,
		"rows", res.Rows,
		"height", res.Height,
		"pages", res.LeafPages+res.InnerPages,
		"took", time.Since(start),
	)
	return stored, nil
}

// LoadSpatial builds (or rebuilds) a spatial index over places. Every place
// carries its point as the first bytes of the row payload.
func (db *Database) LoadSpatial(ctx context.Context, name string, places []Place) (catalog.IndexMeta, error) {
	if len(places) == 0 {
		return catalog.IndexMeta{}, fmt.Errorf("load %s: %w", name, btree.ErrEmptyTree)
	}
	entries := make([]spatialtree.Entry[int64], 0, len(places))
	for i, p := range places {
		c, err := spatial.MakeCell(p.Point, db.grid)
		if err != nil {
			return catalog.IndexMeta{}, fmt.Errorf("place %d (pk %d): %w", i, p.PK, err)
		}
		if p.Depth < 0 || p.Depth > spatial.MaxDepth {
			return catalog.IndexMeta{}, fmt.Errorf("place %d (pk %d): %w: depth %d", i, p.PK, spatial.ErrInvalidCell, p.Depth)
		}
		if p.Depth > 0 {
			c = c.Parent(p.Depth)
		}
		payload := append(spatialtree.EncodePoint(p.Point), p.Payload...)
		entries = append(entries, spatialtree.Entry[int64]{Cell: c, PK: p.PK, Payload: payload})
	}

	codec := spatialtree.KeyCodec[int64]{PK: btree.Int64Codec{}}
	return db.build(ctx, name, catalog.KindSpatial, func(file uint16) (btree.BuildResult, int, error) {
		res, err := spatialtree.Build(db.store, file, btree.Int64Codec{}, entries, btree.BuildOptions{})
		return res, codec.Size(), err
	})
}

// LoadScalar builds (or rebuilds) a scalar index keyed by int64.
func (db *Database) LoadScalar(ctx context.Context, name string, rows []ScalarRow) (catalog.IndexMeta, error) {
	if len(rows) == 0 {
		return catalog.IndexMeta{}, fmt.Errorf("load %s: %w", name, btree.ErrEmptyTree)
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b ScalarRow) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})

	codec := btree.Int64Codec{}
	return db.build(ctx, name, catalog.KindScalar, func(file uint16) (btree.BuildResult, int, error) {
		b := btree.NewBuilder[int64](db.store, file, codec, btree.BuildOptions{})
		for _, r := range sorted {
			if err := b.Add(r.Key, r.Payload); err != nil {
				return btree.BuildResult{}, 0, err
			}
		}
		res, err := b.Finish()
		return res, codec.Size(), err
	})
}

// DefaultImportQuery reads a table shaped like places(id, lat, lon, payload).
const DefaultImportQuery = "SELECT id, lat, lon, payload FROM places"

// ReadSQLite runs query against the SQLite database at path. The query must
// return pk, latitude and longitude columns, optionally followed by a
// payload column.
func ReadSQLite(ctx context.Context, path, query string) ([]Place, error) {
	if query == "" {
		query = DefaultImportQuery
	}
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = sdb.Close() }()

	rows, err := sdb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sqlite: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) < 3 || len(cols) > 4 {
		return nil, fmt.Errorf("query sqlite: want 3 or 4 columns (pk, lat, lon[, payload]), got %d", len(cols))
	}

	var places []Place
	for rows.Next() {
		var p Place
		dst := []any{&p.PK, &p.Point.Latitude, &p.Point.Longitude}
		if len(cols) == 4 {
			dst = append(dst, &p.Payload)
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, fmt.Errorf("scan sqlite row %d: %w", len(places), err)
		}
		if err := p.Point.Check(); err != nil {
			return nil, fmt.Errorf("sqlite row %d (pk %d): %w", len(places), p.PK, err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return places, nil
}

// ImportSQLite loads a spatial index from a SQLite query.
func (db *Database) ImportSQLite(ctx context.Context, name, path, query string) (catalog.IndexMeta, error) {
	places, err := ReadSQLite(ctx, path, query)
	if err != nil {
		return catalog.IndexMeta{}, err
	}
	slog.Info("engine.import.sqlite", "index", name, "path", path, "rows", len(places))
	return db.LoadSpatial(ctx, name, places)
}
