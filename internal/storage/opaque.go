package storage

// tree special area layout
const (
	offOpKind  = 0
	offOpLevel = 1
	offOpPrev  = 4
	offOpNext  = offOpPrev + PageFileIDSize
)

// TreeOpaque is the special area of a tree page. Leaves are level 0; Prev
// and Next link the pages of one level in key order.
type TreeOpaque struct {
	Kind  PageKind
	Level uint8
	Prev  PageFileID
	Next  PageFileID
}

func (o TreeOpaque) IsLeaf() bool { return o.Kind == KindLeaf }

// NewTreePage formats buf as a tree page carrying op.
func NewTreePage(buf []byte, id PageFileID, op TreeOpaque) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	p := &Page{Buf: buf}
	p.init(id, PageSize-OpaqueSize)
	p.setFlags(p.flags() | FlagTree)
	p.SetOpaque(op)
	return p, nil
}

func (p *Page) IsTree() bool {
	return p.flags()&FlagTree != 0 && p.specialOff() == PageSize-OpaqueSize
}

// Opaque decodes the special area. It fails on pages that are not tree pages.
func (p *Page) Opaque() (TreeOpaque, error) {
	if !p.IsTree() {
		return TreeOpaque{}, ErrPageCorrupted
	}
	b := p.Buf[p.specialOff():]
	op := TreeOpaque{
		Kind:  PageKind(b[offOpKind]),
		Level: b[offOpLevel],
		Prev:  DecodePageFileID(b[offOpPrev:]),
		Next:  DecodePageFileID(b[offOpNext:]),
	}
	if op.Kind != KindLeaf && op.Kind != KindInner {
		return TreeOpaque{}, ErrPageCorrupted
	}
	if (op.Kind == KindLeaf) != (op.Level == 0) {
		return TreeOpaque{}, ErrPageCorrupted
	}
	return op, nil
}

func (p *Page) SetOpaque(op TreeOpaque) {
	b := p.Buf[PageSize-OpaqueSize:]
	b[offOpKind] = byte(op.Kind)
	b[offOpLevel] = op.Level
	op.Prev.Encode(b[offOpPrev:])
	op.Next.Encode(b[offOpNext:])
}
