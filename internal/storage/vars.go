package storage

import (
	"errors"
	"fmt"
)

const (
	OneB  = 1 << 0  // 1
	OneKB = 1 << 10 // 1,024
	OneMB = 1 << 20 // 1,048,576
	OneGB = 1 << 30 // 1,073,741,824

	SegmentSize       = 1 << 30                // 1,073,741,824 (1 GiB)
	PageSize          = 1 << 13                // 8,192 (8 KiB)
	MaxPagePerSegment = SegmentSize / PageSize // 131,072 pages/segment
	HeaderSize        = 16                     // flags, page, lower, upper, special, file, pad
	SlotSize          = 4                      // 2 * uint16: offset, length
	OpaqueSize        = 16                     // tree special area at the end of a page
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// PageKind tells tree pages apart.
type PageKind uint8

const (
	KindUnknown PageKind = iota
	KindLeaf
	KindInner
)

func (k PageKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindInner:
		return "inner"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

var (
	ErrPageNotFound  = errors.New("storage: page not found")
	ErrPageCorrupted = errors.New("storage: page is corrupted")
	ErrStorageIO     = errors.New("storage: I/O error")
	ErrTupleTooLarge = errors.New("storage: tuple too large for a page")
	ErrNoSpace       = errors.New("storage: not enough free space")
	ErrBadSlot       = errors.New("storage: invalid slot")
	ErrWrongSize     = errors.New("storage: buffer size != PageSize")
)
