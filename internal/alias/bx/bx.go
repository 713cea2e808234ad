// Package bx holds the byte helpers shared by the page and key codecs.
// Page headers and row fields are little-endian; cell digits are read
// big-endian so that the integer order equals the digit order.
package bx

import "encoding/binary"

var (
	LE = binary.LittleEndian
	BE = binary.BigEndian
)

func U16(b []byte) uint16 { return LE.Uint16(b) }
func U32(b []byte) uint32 { return LE.Uint32(b) }
func U64(b []byte) uint64 { return LE.Uint64(b) }
func I32(b []byte) int32  { return int32(U32(b)) }
func I64(b []byte) int64  { return int64(U64(b)) }

func PutU16(b []byte, v uint16) { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { LE.PutUint64(b, v) }
func PutI32(b []byte, v int32)  { PutU32(b, uint32(v)) }
func PutI64(b []byte, v int64)  { PutU64(b, uint64(v)) }

func U16At(b []byte, off int) uint16       { return U16(b[off:]) }
func U32At(b []byte, off int) uint32       { return U32(b[off:]) }
func PutU16At(b []byte, off int, v uint16) { PutU16(b[off:], v) }
func PutU32At(b []byte, off int, v uint32) { PutU32(b[off:], v) }

func U16BE(b []byte) uint16       { return BE.Uint16(b) }
func U32BE(b []byte) uint32       { return BE.Uint32(b) }
func PutU16BE(b []byte, v uint16) { BE.PutUint16(b, v) }
func PutU32BE(b []byte, v uint32) { BE.PutUint32(b, v) }

// SortableI64 flips the sign bit so that big-endian bytes of the result
// sort like the signed value. Used for external store keys.
func SortableI64(v int64) uint64 { return uint64(v) ^ (1 << 63) }

func PutSortableI64(b []byte, v int64) { BE.PutUint64(b, SortableI64(v)) }

func SortableI64Of(b []byte) int64 { return int64(BE.Uint64(b) ^ (1 << 63)) }
