package btree

import (
	"cmp"

	"github.com/tuannm99/novaspatial/internal/alias/bx"
	"github.com/tuannm99/novaspatial/internal/storage"
)

// Codec is the fixed-width key format of a tree.
type Codec[K any] interface {
	Size() int
	Encode(dst []byte, k K)
	Decode(src []byte) K
	Compare(a, b K) int
}

// Int64Codec stores int64 keys little-endian.
type Int64Codec struct{}

func (Int64Codec) Size() int                  { return 8 }
func (Int64Codec) Encode(dst []byte, k int64) { bx.PutI64(dst, k) }
func (Int64Codec) Decode(src []byte) int64    { return bx.I64(src) }
func (Int64Codec) Compare(a, b int64) int     { return cmp.Compare(a, b) }

// Uint32Codec stores uint32 keys little-endian.
type Uint32Codec struct{}

func (Uint32Codec) Size() int                   { return 4 }
func (Uint32Codec) Encode(dst []byte, k uint32) { bx.PutU32(dst, k) }
func (Uint32Codec) Decode(src []byte) uint32    { return bx.U32(src) }
func (Uint32Codec) Compare(a, b uint32) int     { return cmp.Compare(a, b) }

// Inner rows are [key][child PageFileID]; leaf rows are [key][payload].

func encodeInnerEntry[K any](c Codec[K], key K, child storage.PageFileID) []byte {
	buf := make([]byte, c.Size()+storage.PageFileIDSize)
	c.Encode(buf, key)
	child.Encode(buf[c.Size():])
	return buf
}

func encodeLeafEntry[K any](c Codec[K], key K, payload []byte) []byte {
	buf := make([]byte, c.Size()+len(payload))
	c.Encode(buf, key)
	copy(buf[c.Size():], payload)
	return buf
}
