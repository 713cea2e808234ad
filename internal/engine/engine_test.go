package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspatial/internal"
	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

func openDB(t *testing.T, backend string) *Database {
	t.Helper()
	cfg := internal.DefaultConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.Workdir = t.TempDir()
	cfg.Storage.PoolCapacity = 8
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// gridPlaces lays out 20x20 points 0.01 degrees apart from (48, 44).
func gridPlaces() []Place {
	var out []Place
	for i := range 20 {
		for j := range 20 {
			out = append(out, Place{
				PK:      int64(i*100 + j),
				Point:   spatial.Point{Latitude: 48 + float64(i)*0.01, Longitude: 44 + float64(j)*0.01},
				Payload: []byte{byte(i), byte(j)},
			})
		}
	}
	return out
}

func pks(hits []Hit) []int64 {
	out := make([]int64, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.PK)
	}
	return out
}

func forEachBackend(t *testing.T, fn func(t *testing.T, db *Database)) {
	for _, backend := range []string{internal.BackendSegment, internal.BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			fn(t, openDB(t, backend))
		})
	}
}

func TestEngine_SpatialQueries(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *Database) {
		ctx := context.Background()
		places := gridPlaces()
		m, err := db.LoadSpatial(ctx, "places", places)
		require.NoError(t, err)
		require.Equal(t, catalog.KindSpatial, m.Kind)
		require.Equal(t, len(places), m.Rows)
		require.Equal(t, spatial.DefaultGrid.Ints(), m.Grid)

		s := db.NewSession()

		// point
		target := places[5*20+7]
		hits, err := s.QueryPoint(ctx, "places", target.Point, QueryOptions{})
		require.NoError(t, err)
		require.Contains(t, pks(hits), target.PK)
		for _, h := range hits {
			if h.PK == target.PK {
				require.NotNil(t, h.Point)
				require.True(t, h.Point.Equal(target.Point))
				require.Equal(t, []byte{5, 7}, h.Payload)
			}
		}

		// cell of that hit
		cell, err := spatial.MakeCell(target.Point, db.Grid())
		require.NoError(t, err)
		hits, err = s.QueryCell(ctx, "places", cell.Parent(3), QueryOptions{})
		require.NoError(t, err)
		require.Contains(t, pks(hits), target.PK)

		// rect: every place inside must come back exactly once
		r := spatial.Rect{MinLat: 48.045, MinLon: 44.025, MaxLat: 48.125, MaxLon: 44.155}
		hits, err = s.QueryRect(ctx, "places", r, QueryOptions{})
		require.NoError(t, err)
		got := pks(hits)
		seen := map[int64]bool{}
		for _, pk := range got {
			require.False(t, seen[pk], "duplicate pk %d", pk)
			seen[pk] = true
		}
		var inside []int64
		for _, p := range places {
			if r.Contains(p.Point) {
				inside = append(inside, p.PK)
				require.True(t, seen[p.PK], "rect misses pk %d", p.PK)
			}
		}
		require.NotEmpty(t, inside)

		sortedPKs, err := s.QueryRectPKs(ctx, "places", r)
		require.NoError(t, err)
		require.True(t, slices.IsSorted(sortedPKs))
		require.ElementsMatch(t, got, sortedPKs)

		// exact range equals the brute-force answer
		center := places[10*20+10].Point
		const meters = 2500.0
		hits, err = s.QueryRange(ctx, "places", center, meters, QueryOptions{Exact: true})
		require.NoError(t, err)
		var want []int64
		for _, p := range places {
			if spatial.Haversine(center, p.Point) <= meters {
				want = append(want, p.PK)
			}
		}
		require.ElementsMatch(t, want, pks(hits))

		loose, err := s.QueryRange(ctx, "places", center, meters, QueryOptions{})
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(loose), len(hits))

		limited, err := s.QueryRange(ctx, "places", center, meters, QueryOptions{Limit: 3})
		require.NoError(t, err)
		require.Len(t, limited, 3)

		rep, err := s.CheckIndex("places")
		require.NoError(t, err)
		require.Equal(t, len(places), rep.Rows)

		st := db.PoolStats()
		assert.Equal(t, 8, st.Capacity)
		assert.Positive(t, st.Misses)
	})
}

func TestEngine_QueryPolygon(t *testing.T) {
	db := openDB(t, internal.BackendSegment)
	ctx := context.Background()
	places := gridPlaces()
	_, err := db.LoadSpatial(ctx, "places", places)
	require.NoError(t, err)

	// square around rows 5..9 and columns 5..9
	ring := []spatial.Point{
		{Latitude: 48.045, Longitude: 44.045},
		{Latitude: 48.095, Longitude: 44.045},
		{Latitude: 48.095, Longitude: 44.095},
		{Latitude: 48.045, Longitude: 44.095},
	}
	var want []int64
	for i := 5; i < 10; i++ {
		for j := 5; j < 10; j++ {
			want = append(want, int64(i*100+j))
		}
	}
	hits, err := db.NewSession().QueryPolygon(ctx, "places", ring, QueryOptions{})
	require.NoError(t, err)
	got := pks(hits)
	slices.Sort(got)
	require.Equal(t, want, got)

	_, err = db.NewSession().QueryPolygon(ctx, "places", ring[:2], QueryOptions{})
	require.ErrorIs(t, err, spatial.ErrInvalidPoint)
}

func TestEngine_CoarsePlacesFoundFromLeafQueries(t *testing.T) {
	db := openDB(t, internal.BackendSegment)
	ctx := context.Background()
	p := spatial.Point{Latitude: 51.5, Longitude: -0.12}
	_, err := db.LoadSpatial(ctx, "regions", []Place{
		{PK: 1, Point: p, Depth: 2},
		{PK: 2, Point: p},
	})
	require.NoError(t, err)

	hits, err := db.NewSession().QueryPoint(ctx, "regions", p, QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, pks(hits))
	require.Equal(t, uint8(2), hits[0].Cell.Depth)

	_, err = db.LoadSpatial(ctx, "bad", []Place{{PK: 1, Point: p, Depth: 9}})
	require.ErrorIs(t, err, spatial.ErrInvalidCell)
	_, err = db.LoadSpatial(ctx, "bad", []Place{{PK: 1, Point: spatial.Point{Latitude: 99}}})
	require.ErrorIs(t, err, spatial.ErrInvalidPoint)
	_, err = db.LoadSpatial(ctx, "bad", nil)
	require.ErrorIs(t, err, btree.ErrEmptyTree)
	_, err = db.Index("bad")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEngine_ReloadReplacesFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *Database) {
		ctx := context.Background()
		places := gridPlaces()
		first, err := db.LoadSpatial(ctx, "places", places)
		require.NoError(t, err)

		s := db.NewSession()
		hits, err := s.QueryPoint(ctx, "places", places[0].Point, QueryOptions{})
		require.NoError(t, err)
		require.Contains(t, pks(hits), places[0].PK)

		second, err := db.LoadSpatial(ctx, "places", places[1:])
		require.NoError(t, err)
		require.NotEqual(t, first.File, second.File)
		require.True(t, second.CreatedAt.Equal(first.CreatedAt))

		n, err := db.store.CountPages(first.File)
		require.NoError(t, err)
		require.Zero(t, n)
		n, err = db.FilePages("places")
		require.NoError(t, err)
		require.Positive(t, n)

		// the same session picks up the new tree
		hits, err = s.QueryPoint(ctx, "places", places[0].Point, QueryOptions{})
		require.NoError(t, err)
		require.NotContains(t, pks(hits), places[0].PK)
	})
}

func TestEngine_ScalarRange(t *testing.T) {
	db := openDB(t, internal.BackendSegment)
	ctx := context.Background()
	var rows []ScalarRow
	for k := int64(99); k >= 0; k -= 3 {
		rows = append(rows, ScalarRow{Key: k, Payload: []byte{byte(k)}})
	}
	_, err := db.LoadScalar(ctx, "ages", rows)
	require.NoError(t, err)

	s := db.NewSession()
	got, err := s.ScalarRange(ctx, "ages", 10, 30, 0)
	require.NoError(t, err)
	var keys []int64
	for _, h := range got {
		keys = append(keys, h.Key)
		require.Equal(t, []byte{byte(h.Key)}, h.Payload)
	}
	require.Equal(t, []int64{12, 15, 18, 21, 24, 27, 30}, keys)

	got, err = s.ScalarRange(ctx, "ages", 10, 30, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.ScalarRange(ctx, "ages", 1000, 2000, 0)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = s.SpatialIndex("ages")
	require.ErrorIs(t, err, ErrWrongKind)
	_, err = s.QueryPoint(ctx, "ages", spatial.Point{}, QueryOptions{})
	require.ErrorIs(t, err, ErrWrongKind)
	_, err = s.ScalarIndex("missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	rep, err := s.CheckIndex("ages")
	require.NoError(t, err)
	require.Equal(t, len(rows), rep.Rows)
}

func TestEngine_CancelledQueryReturnsNothing(t *testing.T) {
	db := openDB(t, internal.BackendSegment)
	_, err := db.LoadSpatial(context.Background(), "places", gridPlaces())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hits, err := db.NewSession().QueryRect(ctx, "places", spatial.Rect{MinLat: 48, MinLon: 44, MaxLat: 48.2, MaxLon: 44.2}, QueryOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, hits)
}

func TestEngine_DropAndClose(t *testing.T) {
	db := openDB(t, internal.BackendSegment)
	ctx := context.Background()
	m, err := db.LoadSpatial(ctx, "places", gridPlaces())
	require.NoError(t, err)

	require.NoError(t, db.DropIndex("places"))
	require.ErrorIs(t, db.DropIndex("places"), catalog.ErrNotFound)
	n, err := db.store.CountPages(m.File)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = db.NewSession().QueryPoint(ctx, "places", spatial.Point{Latitude: 48, Longitude: 44}, QueryOptions{})
	require.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	_, err = db.Indexes()
	require.ErrorIs(t, err, ErrDatabaseClosed)
	_, err = db.LoadScalar(ctx, "x", []ScalarRow{{Key: 1}})
	require.ErrorIs(t, err, ErrDatabaseClosed)
}

func TestEngine_ReopenKeepsCatalog(t *testing.T) {
	cfg := internal.DefaultConfig()
	cfg.Storage.Workdir = t.TempDir()
	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.LoadSpatial(context.Background(), "places", gridPlaces())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	list, err := db.Indexes()
	require.NoError(t, err)
	require.Len(t, list, 1)

	p := gridPlaces()[42].Point
	hits, err := db.NewSession().QueryPoint(context.Background(), "places", p, QueryOptions{})
	require.NoError(t, err)
	require.Contains(t, pks(hits), gridPlaces()[42].PK)
}

func TestEngine_ImportSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.db")
	sdb, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = sdb.Exec(`CREATE TABLE places (id INTEGER PRIMARY KEY, lat REAL, lon REAL, payload BLOB)`)
	require.NoError(t, err)
	for _, row := range []struct {
		id       int64
		lat, lon float64
		payload  []byte
	}{
		{1, 48.7139, 44.4984, []byte("volgograd")},
		{2, 51.5, -0.12, nil},
		{3, -33.86, 151.2, []byte("sydney")},
	} {
		_, err = sdb.Exec(`INSERT INTO places (id, lat, lon, payload) VALUES (?, ?, ?, ?)`, row.id, row.lat, row.lon, row.payload)
		require.NoError(t, err)
	}
	require.NoError(t, sdb.Close())

	db := openDB(t, internal.BackendSegment)
	ctx := context.Background()
	m, err := db.ImportSQLite(ctx, "cities", path, "")
	require.NoError(t, err)
	require.Equal(t, 3, m.Rows)

	hits, err := db.NewSession().QueryPoint(ctx, "cities", spatial.Point{Latitude: -33.86, Longitude: 151.2}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, int64(3), hits[0].PK)
	require.Equal(t, []byte("sydney"), hits[0].Payload)

	_, err = db.ImportSQLite(ctx, "cities2", path, "SELECT id, lat FROM places")
	require.Error(t, err)
}
