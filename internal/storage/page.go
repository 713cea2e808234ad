package storage

import (
	"github.com/tuannm99/novaspatial/internal/alias/bx"
)

// Header offsets
const (
	offFlags   = 0
	offPageID  = 2
	offLower   = 6
	offUpper   = 8
	offSpecial = 10
	offFile    = 12
)

// Page flags
const (
	FlagTree uint16 = 1 << 0
)

type Slot struct {
	Offset uint16
	Length uint16
}

// +------------------+ 0
// | PageHeaderData   |
// | LinePointers[]   | <-- pd_lower
// +------------------+
// |   Free space     |
// +------------------+ <-- pd_upper
// |  Tuple Data      |
// |  (grows down)    |
// +------------------+ <-- pd_special
// |  Tree opaque     |
// +------------------+ PageSize (8192)
//
// Pages are written once by the tree builder and only read afterwards, so
// there is no delete or in-place update.
type Page struct {
	Buf []byte // fixed-size 8KB
}

// NewPage formats buf as an empty page without a special area.
func NewPage(buf []byte, id PageFileID) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	p := &Page{Buf: buf}
	p.init(id, PageSize)
	return p, nil
}

// PageFrom wraps bytes read from disk and checks the header bounds.
func PageFrom(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	p := &Page{Buf: buf}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) flags() uint16       { return bx.U16At(p.Buf, offFlags) }
func (p *Page) setFlags(v uint16)   { bx.PutU16At(p.Buf, offFlags, v) }
func (p *Page) lower() uint16       { return bx.U16At(p.Buf, offLower) }
func (p *Page) setLower(v uint16)   { bx.PutU16At(p.Buf, offLower, v) }
func (p *Page) upper() uint16       { return bx.U16At(p.Buf, offUpper) }
func (p *Page) setUpper(v uint16)   { bx.PutU16At(p.Buf, offUpper, v) }
func (p *Page) special() uint16     { return bx.U16At(p.Buf, offSpecial) }
func (p *Page) setSpecial(v uint16) { bx.PutU16At(p.Buf, offSpecial, v) }

func (p *Page) specialOff() int { return int(p.special()) }

// ID returns the page's own address as written in the header.
func (p *Page) ID() PageFileID {
	return PageFileID{File: bx.U16At(p.Buf, offFile), Page: bx.U32At(p.Buf, offPageID)}
}

func (p *Page) init(id PageFileID, special int) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	bx.PutU32At(p.Buf, offPageID, id.Page)
	bx.PutU16At(p.Buf, offFile, id.File)
	p.setLower(HeaderSize)
	p.setUpper(uint16(special))
	p.setSpecial(uint16(special))
}

func (p *Page) check() error {
	lo, up, sp := int(p.lower()), int(p.upper()), p.specialOff()
	if lo < HeaderSize || lo > up || up > sp || sp > PageSize || (lo-HeaderSize)%SlotSize != 0 {
		return ErrPageCorrupted
	}
	return nil
}

func (p *Page) IsUninitialized() bool {
	return p.lower() == 0 && p.upper() == 0
}

func (p *Page) FreeSpace() int {
	return int(p.upper()) - int(p.lower())
}

func (p *Page) NumSlots() int {
	return (int(p.lower()) - HeaderSize) / SlotSize
}

func (p *Page) slotOff(idx int) int {
	return HeaderSize + idx*SlotSize
}

func (p *Page) getSlot(i int) (Slot, error) {
	if i < 0 || i >= p.NumSlots() {
		return Slot{}, ErrBadSlot
	}
	o := p.slotOff(i)
	return Slot{
		Offset: bx.U16At(p.Buf, o),
		Length: bx.U16At(p.Buf, o+2),
	}, nil
}

func (p *Page) appendSlot(off, length uint16) int {
	i := p.NumSlots()
	o := p.slotOff(i)
	bx.PutU16At(p.Buf, o, off)
	bx.PutU16At(p.Buf, o+2, length)
	p.setLower(p.lower() + SlotSize)
	return i
}

// InsertTuple appends tup and returns its slot.
func (p *Page) InsertTuple(tup []byte) (int, error) {
	maxInline := p.specialOff() - HeaderSize - SlotSize
	if len(tup) == 0 || len(tup) > maxInline {
		return -1, ErrTupleTooLarge
	}
	if p.FreeSpace() < len(tup)+SlotSize {
		return -1, ErrNoSpace
	}
	u := int(p.upper()) - len(tup)
	copy(p.Buf[u:], tup)
	p.setUpper(uint16(u))
	return p.appendSlot(uint16(u), uint16(len(tup))), nil
}

// ReadTuple returns the bytes of slot. The slice aliases the page.
func (p *Page) ReadTuple(slot int) ([]byte, error) {
	s, err := p.getSlot(slot)
	if err != nil {
		return nil, err
	}
	start, end := int(s.Offset), int(s.Offset)+int(s.Length)
	if s.Length == 0 || start < int(p.upper()) || end > p.specialOff() {
		return nil, ErrPageCorrupted
	}
	return p.Buf[start:end], nil
}

// Clone copies the page into a fresh buffer.
func (p *Page) Clone() *Page {
	buf := make([]byte, PageSize)
	copy(buf, p.Buf)
	return &Page{Buf: buf}
}
