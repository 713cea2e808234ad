package spatialtree

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/cover"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/storage"
)

// Row is one stored object reference.
type Row[PK constraints.Integer] struct {
	ID      storage.RecordID
	Cell    spatial.Cell
	PK      PK
	Payload []byte
}

// Point decodes the payload point, if the row carries one.
func (r Row[PK]) Point() (spatial.Point, bool) {
	return DecodePoint(r.Payload)
}

// Visit receives matching rows. Returning false stops the search.
type Visit[PK constraints.Integer] func(Row[PK]) bool

type Options struct {
	Grid  spatial.Grid
	Cover cover.Options
}

func DefaultOptions() Options {
	return Options{Grid: spatial.DefaultGrid, Cover: cover.DefaultOptions()}
}

// Tree is a read-only spatial index. Like the underlying IndexTree it is
// meant for one session at a time.
type Tree[PK constraints.Integer] struct {
	idx   *btree.IndexTree[Key[PK]]
	codec KeyCodec[PK]
	opts  Options
}

func newTree[PK constraints.Integer](idx *btree.IndexTree[Key[PK]], codec KeyCodec[PK], opts Options) *Tree[PK] {
	if opts.Grid == (spatial.Grid{}) {
		opts.Grid = spatial.DefaultGrid
	}
	opts.Cover.Grid = opts.Grid
	return &Tree[PK]{idx: idx, codec: codec, opts: opts}
}

// Open opens the spatial tree rooted at root.
func Open[PK constraints.Integer](src storage.Source, root storage.PageFileID, pk btree.Codec[PK], opts Options) (*Tree[PK], error) {
	codec := KeyCodec[PK]{PK: pk}
	idx, err := btree.Open[Key[PK]](src, root, codec)
	if err != nil {
		return nil, err
	}
	return newTree(idx, codec, opts), nil
}

// OpenFile opens the spatial tree described by the meta page of file.
func OpenFile[PK constraints.Integer](src storage.Source, file uint16, pk btree.Codec[PK], opts Options) (*Tree[PK], error) {
	codec := KeyCodec[PK]{PK: pk}
	idx, _, err := btree.OpenFile[Key[PK]](src, file, codec)
	if err != nil {
		return nil, err
	}
	return newTree(idx, codec, opts), nil
}

func (t *Tree[PK]) Index() *btree.IndexTree[Key[PK]] { return t.idx }

func (t *Tree[PK]) Grid() spatial.Grid { return t.opts.Grid }

func (t *Tree[PK]) row(r btree.Row[Key[PK]]) Row[PK] {
	return Row[PK]{ID: r.ID, Cell: r.Key.Cell, PK: r.Key.PK, Payload: r.Payload}
}

func (t *Tree[PK]) seekKey(c spatial.Cell) Key[PK] {
	return Key[PK]{Cell: c, PK: minPK[PK]()}
}

// MinCell and MaxCell return the cells of the first and last rows.
func (t *Tree[PK]) MinCell() (spatial.Cell, error) {
	k, err := t.idx.MinKey()
	return k.Cell, err
}

func (t *Tree[PK]) MaxCell() (spatial.Cell, error) {
	k, err := t.idx.MaxKey()
	return k.Cell, err
}

// Entry is one row handed to Build.
type Entry[PK constraints.Integer] struct {
	Cell    spatial.Cell
	PK      PK
	Payload []byte
}

// Build sorts entries and bulk-loads them into file through sink.
func Build[PK constraints.Integer](sink storage.Sink, file uint16, pk btree.Codec[PK], entries []Entry[PK], opts btree.BuildOptions) (btree.BuildResult, error) {
	codec := KeyCodec[PK]{PK: pk}
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry[PK]) int {
		return codec.Compare(Key[PK]{Cell: a.Cell, PK: a.PK}, Key[PK]{Cell: b.Cell, PK: b.PK})
	})

	b := btree.NewBuilder[Key[PK]](sink, file, codec, opts)
	for i, e := range sorted {
		if !e.Cell.Valid() {
			return btree.BuildResult{}, fmt.Errorf("entry %d: %w: %s", i, spatial.ErrInvalidCell, e.Cell)
		}
		if err := b.Add(Key[PK]{Cell: e.Cell, PK: e.PK}, e.Payload); err != nil {
			return btree.BuildResult{}, err
		}
	}
	res, err := b.Finish()
	if err != nil {
		return btree.BuildResult{}, err
	}
	slog.Info("spatialtree.build", "file", file, "rows", res.Rows, "height", res.Height)
	return res, nil
}
