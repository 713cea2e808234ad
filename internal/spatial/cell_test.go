package spatial

import (
	"encoding/json"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_CompareOrder(t *testing.T) {
	a := NewCell([4]byte{1, 2, 0, 0}, 2)
	b := NewCell([4]byte{1, 2, 3, 4}, 4)
	c := NewCell([4]byte{1, 3, 0, 0}, 2)

	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.Equal(t, 0, b.Compare(b))

	// same digits, shallower first
	d1 := NewCell([4]byte{7, 0, 0, 0}, 1)
	d2 := NewCell([4]byte{7, 0, 0, 0}, 2)
	require.Equal(t, -1, d1.Compare(d2))
	require.Equal(t, 1, d2.Compare(d1))
}

func TestCell_NewCellZeroesTail(t *testing.T) {
	c := NewCell([4]byte{9, 8, 7, 6}, 2)
	require.Equal(t, [4]byte{9, 8, 0, 0}, c.ID)
	require.True(t, c.Valid())

	bad := Cell{ID: [4]byte{9, 8, 7, 0}, Depth: 2}
	require.False(t, bad.Valid())
	require.False(t, Cell{}.Valid())
}

func TestCell_IntersectReflexiveSymmetric(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	cells := make([]Cell, 0, 200)
	for range 200 {
		var id [4]byte
		for i := range id {
			id[i] = byte(rnd.Intn(3))
		}
		cells = append(cells, NewCell(id, 1+rnd.Intn(4)))
	}
	for _, a := range cells {
		require.True(t, a.Intersect(a))
		for _, b := range cells {
			require.Equal(t, a.Intersect(b), b.Intersect(a), "%s %s", a, b)
		}
	}
}

func TestCell_IntersectAncestor(t *testing.T) {
	leaf := NewCell([4]byte{0x9c, 0xa3, 0x43, 0xb1}, 4)
	for d := 1; d <= 4; d++ {
		p := leaf.Parent(d)
		assert.True(t, p.Intersect(leaf))
		assert.Equal(t, d, int(p.Depth))
	}
	other := NewCell([4]byte{0x9c, 0xa4, 0, 0}, 2)
	assert.False(t, other.Intersect(leaf))
	assert.True(t, other.Intersect(leaf.Parent(1)))
}

func TestCell_R32RoundTripAndOrder(t *testing.T) {
	c := NewCell([4]byte{0x12, 0x34, 0x56, 0x78}, 4)
	require.Equal(t, uint32(0x12345678), c.R32())
	require.Equal(t, c, CellFromR32(c.R32()))

	raw := []uint32{5, 0x01000000, 0xff, 0x00010000, 0xffffffff, 0}
	cells := make([]Cell, len(raw))
	for i, v := range raw {
		cells[i] = CellFromR32(v)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })
	for i := range raw {
		require.Equal(t, raw[i], cells[i].R32())
	}
}

func TestCell_EncodeDecodeAndString(t *testing.T) {
	c := NewCell([4]byte{0xab, 0x01, 0, 0}, 2)
	buf := make([]byte, CellSize)
	c.Encode(buf)
	require.Equal(t, []byte{0xab, 0x01, 0, 0, 2}, buf)
	require.Equal(t, c, DecodeCell(buf))

	require.Equal(t, "ab010000/2", c.String())
	parsed, err := ParseCell("ab010000/2")
	require.NoError(t, err)
	require.Equal(t, c, parsed)

	leaf, err := ParseCell("9ca343b1")
	require.NoError(t, err)
	require.Equal(t, uint8(4), leaf.Depth)

	_, err = ParseCell("ab010001/2")
	require.ErrorIs(t, err, ErrInvalidCell)
	_, err = ParseCell("zz")
	require.ErrorIs(t, err, ErrInvalidCell)

	data, err := json.Marshal(map[string]Cell{"c": c})
	require.NoError(t, err)
	require.JSONEq(t, `{"c":"ab010000/2"}`, string(data))
	var back map[string]Cell
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, c, back["c"])
}
