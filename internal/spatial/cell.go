package spatial

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/novaspatial/internal/alias/bx"
)

const (
	// CellSize is the encoded width of a Cell: four digits plus depth.
	CellSize = GridLevels + 1

	// MaxDepth marks a leaf cell.
	MaxDepth = GridLevels
)

var ErrInvalidCell = errors.New("spatial: invalid cell")

// Cell is a hierarchical grid cell. ID holds one Hilbert digit per level,
// coarsest first; digits at or past Depth are always zero.
type Cell struct {
	ID    [GridLevels]byte
	Depth uint8
}

// NewCell builds a cell of the given depth, zeroing the unused digits.
func NewCell(id [GridLevels]byte, depth int) Cell {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	for i := depth; i < GridLevels; i++ {
		id[i] = 0
	}
	return Cell{ID: id, Depth: uint8(depth)}
}

// CellFromR32 rebuilds a leaf cell from its raw 32-bit value.
func CellFromR32(v uint32) Cell {
	var c Cell
	bx.PutU32BE(c.ID[:], v)
	c.Depth = MaxDepth
	return c
}

// R32 reinterprets the four id bytes as one big-endian value, so that R32
// order equals digit order.
func (c Cell) R32() uint32 {
	return bx.U32BE(c.ID[:])
}

func (c Cell) Valid() bool {
	if c.Depth == 0 || c.Depth > MaxDepth {
		return false
	}
	for i := int(c.Depth); i < GridLevels; i++ {
		if c.ID[i] != 0 {
			return false
		}
	}
	return true
}

// Compare orders cells by all four digits, then by depth.
func (c Cell) Compare(o Cell) int {
	for i := range GridLevels {
		if c.ID[i] != o.ID[i] {
			if c.ID[i] < o.ID[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case c.Depth < o.Depth:
		return -1
	case c.Depth > o.Depth:
		return 1
	}
	return 0
}

func (c Cell) Less(o Cell) bool { return c.Compare(o) < 0 }

// Intersect reports whether one cell is an ancestor of (or equal to) the other.
func (c Cell) Intersect(o Cell) bool {
	d := min(c.Depth, o.Depth)
	for i := range int(d) {
		if c.ID[i] != o.ID[i] {
			return false
		}
	}
	return true
}

// Parent returns the ancestor of c at the given depth.
func (c Cell) Parent(depth int) Cell {
	if depth >= int(c.Depth) {
		return c
	}
	return NewCell(c.ID, depth)
}

// Encode writes the 5-byte wire form into dst.
func (c Cell) Encode(dst []byte) {
	_ = dst[CellSize-1]
	copy(dst, c.ID[:])
	dst[GridLevels] = c.Depth
}

func DecodeCell(src []byte) Cell {
	_ = src[CellSize-1]
	var c Cell
	copy(c.ID[:], src[:GridLevels])
	c.Depth = src[GridLevels]
	return c
}

// String formats the cell as hex digits and depth, e.g. "1a2b3c4d/4".
func (c Cell) String() string {
	return hex.EncodeToString(c.ID[:]) + "/" + strconv.Itoa(int(c.Depth))
}

// ParseCell accepts the String form. Without "/depth" the depth is 4.
func ParseCell(s string) (Cell, error) {
	s = strings.TrimSpace(s)
	depth := MaxDepth
	if i := strings.IndexByte(s, '/'); i >= 0 {
		d, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Cell{}, fmt.Errorf("%w: %q: %v", ErrInvalidCell, s, err)
		}
		depth = d
		s = s[:i]
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != GridLevels {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	var c Cell
	copy(c.ID[:], raw)
	c.Depth = uint8(depth)
	if !c.Valid() {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	return c, nil
}

func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cell) UnmarshalText(b []byte) error {
	v, err := ParseCell(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MinCell and MaxCell bound every valid cell.
var (
	MinCell = Cell{Depth: 1}
	MaxCell = Cell{ID: [GridLevels]byte{0xff, 0xff, 0xff, 0xff}, Depth: MaxDepth}
)
