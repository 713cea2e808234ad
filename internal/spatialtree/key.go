// Package spatialtree answers spatial queries over a B+tree whose rows are
// keyed by (cell, primary key). Objects may be stored under coarse cells, so
// searches look for rows at every ancestor depth of the query cell.
package spatialtree

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/tuannm99/novaspatial/internal/alias/bx"
	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

// Key orders rows by cell, then by the first primary key column.
type Key[PK constraints.Integer] struct {
	Cell spatial.Cell
	PK   PK
}

// KeyCodec stores a Key as the 5-byte cell followed by the PK encoding.
type KeyCodec[PK constraints.Integer] struct {
	PK btree.Codec[PK]
}

func (c KeyCodec[PK]) Size() int { return spatial.CellSize + c.PK.Size() }

func (c KeyCodec[PK]) Encode(dst []byte, k Key[PK]) {
	k.Cell.Encode(dst)
	c.PK.Encode(dst[spatial.CellSize:], k.PK)
}

func (c KeyCodec[PK]) Decode(src []byte) Key[PK] {
	return Key[PK]{Cell: spatial.DecodeCell(src), PK: c.PK.Decode(src[spatial.CellSize:])}
}

func (c KeyCodec[PK]) Compare(a, b Key[PK]) int {
	if r := a.Cell.Compare(b.Cell); r != 0 {
		return r
	}
	return c.PK.Compare(a.PK, b.PK)
}

// minPK is the smallest value of PK, the tie-break used to seek the first
// row of a cell.
func minPK[PK constraints.Integer]() PK {
	var zero PK
	if ^zero > zero {
		return 0
	}
	m := ^zero
	for m<<1 < 0 {
		m <<= 1
	}
	return m
}

// PointSize is the width of an encoded point payload.
const PointSize = 16

// EncodePoint stores p as two little-endian float64 values.
func EncodePoint(p spatial.Point) []byte {
	buf := make([]byte, PointSize)
	bx.PutU64(buf, math.Float64bits(p.Latitude))
	bx.PutU64(buf[8:], math.Float64bits(p.Longitude))
	return buf
}

// DecodePoint reads a point payload prefix. It fails on short payloads.
func DecodePoint(b []byte) (spatial.Point, bool) {
	if len(b) < PointSize {
		return spatial.Point{}, false
	}
	p := spatial.Point{
		Latitude:  math.Float64frombits(bx.U64(b)),
		Longitude: math.Float64frombits(bx.U64(b[8:])),
	}
	return p, p.Valid()
}
