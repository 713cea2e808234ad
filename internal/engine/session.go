package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/spatialtree"
)

// Session holds open trees for one caller. Trees keep private caches, so
// a Session must not be shared between goroutines.
type Session struct {
	ID uuid.UUID

	db      *Database
	spatial map[string]openSpatial
	scalar  map[string]openScalar
}

type openSpatial struct {
	meta catalog.IndexMeta
	tree *spatialtree.Tree[int64]
}

type openScalar struct {
	meta catalog.IndexMeta
	tree *btree.IndexTree[int64]
}

func (db *Database) NewSession() *Session {
	s := &Session{
		ID:      uuid.New(),
		db:      db,
		spatial: map[string]openSpatial{},
		scalar:  map[string]openScalar{},
	}
	slog.Debug("engine.session.new", "session", s.ID.String())
	return s
}

// current reports whether a cached tree still matches the catalog entry.
func current(cached, meta catalog.IndexMeta) bool {
	return cached.File == meta.File && cached.RootPage == meta.RootPage && cached.UpdatedAt.Equal(meta.UpdatedAt)
}

func (s *Session) meta(name string, kind catalog.Kind) (catalog.IndexMeta, error) {
	m, err := s.db.Index(name)
	if err != nil {
		return catalog.IndexMeta{}, err
	}
	if m.Kind != kind {
		return catalog.IndexMeta{}, fmt.Errorf("%w: %s is %s, want %s", ErrWrongKind, name, m.Kind, kind)
	}
	return m, nil
}

// SpatialIndex opens the named spatial index, reusing the session's tree
// while the catalog entry is unchanged.
func (s *Session) SpatialIndex(name string) (*spatialtree.Tree[int64], error) {
	m, err := s.meta(name, catalog.KindSpatial)
	if err != nil {
		return nil, err
	}
	if o, ok := s.spatial[name]; ok && current(o.meta, m) {
		return o.tree, nil
	}

	grid := s.db.grid
	if len(m.Grid) > 0 {
		if grid, err = spatial.GridFromInts(m.Grid); err != nil {
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
	}
	opts := spatialtree.Options{Grid: grid, Cover: s.db.cover}
	t, err := spatialtree.Open(s.db.pool, m.Root(), btree.Int64Codec{}, opts)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	s.spatial[name] = openSpatial{meta: m, tree: t}
	slog.Debug("engine.session.open_spatial", "session", s.ID.String(), "index", name, "root", m.Root().String())
	return t, nil
}

// ScalarIndex opens the named scalar index.
func (s *Session) ScalarIndex(name string) (*btree.IndexTree[int64], error) {
	m, err := s.meta(name, catalog.KindScalar)
	if err != nil {
		return nil, err
	}
	if o, ok := s.scalar[name]; ok && current(o.meta, m) {
		return o.tree, nil
	}
	t, err := btree.Open[int64](s.db.pool, m.Root(), btree.Int64Codec{})
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	s.scalar[name] = openScalar{meta: m, tree: t}
	slog.Debug("engine.session.open_scalar", "session", s.ID.String(), "index", name, "root", m.Root().String())
	return t, nil
}

// Hit is one spatial query result.
type Hit struct {
	PK      int64          `json:"pk" yaml:"pk"`
	Cell    spatial.Cell   `json:"cell" yaml:"cell"`
	Point   *spatial.Point `json:"point,omitempty" yaml:"point,omitempty"`
	Payload []byte         `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func toHit(r spatialtree.Row[int64]) Hit {
	h := Hit{PK: r.PK, Cell: r.Cell}
	if p, ok := r.Point(); ok {
		h.Point = &p
		if extra := r.Payload[spatialtree.PointSize:]; len(extra) > 0 {
			h.Payload = bytes.Clone(extra)
		}
	} else if len(r.Payload) > 0 {
		h.Payload = bytes.Clone(r.Payload)
	}
	return h
}

// QueryOptions tune a spatial query. A zero Limit means no limit.
type QueryOptions struct {
	Limit int
	// Exact drops range hits whose stored point is outside the radius.
	Exact bool
}

// collector gathers hits and aborts the search when ctx is done. Results are
// all or nothing: an error discards everything collected so far.
type collector struct {
	ctx   context.Context
	limit int
	hits  []Hit
	err   error
}

func (c *collector) visit(r spatialtree.Row[int64]) bool {
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.hits = append(c.hits, toHit(r))
	return c.limit <= 0 || len(c.hits) < c.limit
}

func (c *collector) result(_ bool, err error) ([]Hit, error) {
	if err == nil {
		err = c.err
	}
	if err != nil {
		return nil, err
	}
	if c.hits == nil {
		c.hits = []Hit{}
	}
	return c.hits, nil
}

func (s *Session) spatialQuery(ctx context.Context, name string, opts QueryOptions) (*spatialtree.Tree[int64], *collector, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	t, err := s.SpatialIndex(name)
	if err != nil {
		return nil, nil, err
	}
	return t, &collector{ctx: ctx, limit: opts.Limit}, nil
}

// QueryPoint returns rows whose cell contains p or is contained in p's leaf.
func (s *Session) QueryPoint(ctx context.Context, name string, p spatial.Point, opts QueryOptions) ([]Hit, error) {
	t, c, err := s.spatialQuery(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return c.result(t.ForPoint(p, c.visit))
}

// QueryCell returns rows intersecting cell.
func (s *Session) QueryCell(ctx context.Context, name string, cell spatial.Cell, opts QueryOptions) ([]Hit, error) {
	t, c, err := s.spatialQuery(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return c.result(t.ForCell(cell, c.visit))
}

// QueryRect returns rows inside the covering of r, one per primary key.
func (s *Session) QueryRect(ctx context.Context, name string, r spatial.Rect, opts QueryOptions) ([]Hit, error) {
	t, c, err := s.spatialQuery(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return c.result(t.ForRect(r, c.visit))
}

// QueryRange returns rows inside the covering of the circle, one per
// primary key. With opts.Exact, hits beyond the radius are dropped.
func (s *Session) QueryRange(ctx context.Context, name string, center spatial.Point, meters float64, opts QueryOptions) ([]Hit, error) {
	t, c, err := s.spatialQuery(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	if opts.Exact {
		return c.result(t.ForRangeExact(center, meters, c.visit))
	}
	return c.result(t.ForRange(center, meters, c.visit))
}

// QueryPolygon returns rows whose stored point lies inside ring, one per
// primary key. Rows stored without a point are returned when their cell
// meets the ring's bounding box.
func (s *Session) QueryPolygon(ctx context.Context, name string, ring []spatial.Point, opts QueryOptions) ([]Hit, error) {
	t, c, err := s.spatialQuery(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return c.result(t.ForPolygon(ring, c.visit))
}

// QueryRectPKs returns the distinct primary keys inside the covering of r
// in ascending order.
func (s *Session) QueryRectPKs(ctx context.Context, name string, r spatial.Rect) ([]int64, error) {
	t, err := s.SpatialIndex(name)
	if err != nil {
		return nil, err
	}
	var pks []int64
	_, err = t.ForRectPK0(r, func(pk int64) bool {
		pks = append(pks, pk)
		return ctx.Err() == nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return pks, nil
}

// ScalarHit is one scalar index row.
type ScalarHit struct {
	Key     int64  `json:"key" yaml:"key"`
	Payload []byte `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// ScalarRange returns rows with lo <= key <= hi in key order.
func (s *Session) ScalarRange(ctx context.Context, name string, lo, hi int64, limit int) ([]ScalarHit, error) {
	t, err := s.ScalarIndex(name)
	if err != nil {
		return nil, err
	}
	out := []ScalarHit{}
	for row, err := range t.RowsFrom(lo) {
		if err != nil {
			return nil, err
		}
		if row.Key > hi {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := ScalarHit{Key: row.Key}
		if len(row.Payload) > 0 {
			h.Payload = bytes.Clone(row.Payload)
		}
		out = append(out, h)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CheckIndex walks the whole index and verifies its structure.
func (s *Session) CheckIndex(name string) (btree.Report, error) {
	m, err := s.db.Index(name)
	if err != nil {
		return btree.Report{}, err
	}
	switch m.Kind {
	case catalog.KindSpatial:
		t, err := s.SpatialIndex(name)
		if err != nil {
			return btree.Report{}, err
		}
		return t.Index().Validate()
	default:
		t, err := s.ScalarIndex(name)
		if err != nil {
			return btree.Report{}, err
		}
		return t.Validate()
	}
}
