package storage

import (
	"fmt"

	"github.com/tuannm99/novaspatial/internal/alias/bx"
)

// PageFileIDSize is the on-page width of a PageFileID.
const PageFileIDSize = 6

// PageFileID addresses a page inside one of the data files.
type PageFileID struct {
	File uint16
	Page uint32
}

// InvalidPage is the zero link; page 0 of every file is reserved for it.
var InvalidPage = PageFileID{}

func (id PageFileID) Valid() bool { return id.Page != 0 }

func (id PageFileID) String() string {
	return fmt.Sprintf("%d:%d", id.File, id.Page)
}

func (id PageFileID) Encode(dst []byte) {
	bx.PutU16(dst, id.File)
	bx.PutU32(dst[2:], id.Page)
}

func DecodePageFileID(src []byte) PageFileID {
	return PageFileID{File: bx.U16(src), Page: bx.U32(src[2:])}
}

// RecordID addresses one row: its page and slot.
type RecordID struct {
	PageFileID
	Slot uint16
}

func (r RecordID) String() string {
	return fmt.Sprintf("%d:%d/%d", r.File, r.Page, r.Slot)
}
