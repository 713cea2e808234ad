package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	defaultID = PageFileID{File: 3, Page: 7}

	slot1Data = []byte("data string of slot 1")
	slot2Data = []byte("data string of slot 2")
)

func newTreePage(t *testing.T, op TreeOpaque) *Page {
	t.Helper()
	p, err := NewTreePage(make([]byte, PageSize), defaultID, op)
	require.NoError(t, err)
	return p
}

func TestPlainPage(t *testing.T) {
	p, err := NewPage(make([]byte, PageSize), defaultID)
	require.NoError(t, err)

	assert.Equal(t, uint16(PageSize), p.upper())
	assert.Equal(t, uint16(HeaderSize), p.lower())
	assert.Equal(t, 0, p.NumSlots())
	assert.Equal(t, defaultID, p.ID())
	assert.False(t, p.IsTree())

	_, err = p.Opaque()
	require.ErrorIs(t, err, ErrPageCorrupted)

	_, err = NewPage(make([]byte, 10), defaultID)
	require.ErrorIs(t, err, ErrWrongSize)
}

func TestTuples(t *testing.T) {
	p := newTreePage(t, TreeOpaque{Kind: KindLeaf})

	slot, err := p.InsertTuple(slot1Data)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	slot, err = p.InsertTuple(slot2Data)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	assert.Equal(t, 2, p.NumSlots())
	assert.Equal(t, uint16(HeaderSize+2*SlotSize), p.lower())
	assert.Equal(t, uint16(PageSize-OpaqueSize-len(slot1Data)-len(slot2Data)), p.upper())

	got, err := p.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, slot1Data, got)
	got, err = p.ReadTuple(1)
	require.NoError(t, err)
	assert.Equal(t, slot2Data, got)

	_, err = p.ReadTuple(-1)
	require.ErrorIs(t, err, ErrBadSlot)
	_, err = p.ReadTuple(2)
	require.ErrorIs(t, err, ErrBadSlot)

	_, err = p.InsertTuple(nil)
	require.ErrorIs(t, err, ErrTupleTooLarge)
	require.NotEmpty(t, p.DebugString())
}

func TestPageFillsUp(t *testing.T) {
	p := newTreePage(t, TreeOpaque{Kind: KindLeaf})
	row := make([]byte, 100)
	n := 0
	for {
		_, err := p.InsertTuple(row)
		if err != nil {
			require.ErrorIs(t, err, ErrNoSpace)
			break
		}
		n++
	}
	assert.Equal(t, (PageSize-HeaderSize-OpaqueSize)/(100+SlotSize), n)
	assert.Less(t, p.FreeSpace(), 100+SlotSize)
}

func TestOpaqueRoundTrip(t *testing.T) {
	op := TreeOpaque{
		Kind:  KindInner,
		Level: 2,
		Prev:  PageFileID{File: 3, Page: 6},
		Next:  PageFileID{File: 3, Page: 9},
	}
	p := newTreePage(t, op)
	got, err := p.Opaque()
	require.NoError(t, err)
	assert.Equal(t, op, got)
	assert.False(t, got.IsLeaf())

	again, err := PageFrom(p.Clone().Buf)
	require.NoError(t, err)
	got, err = again.Opaque()
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestOpaqueRejectsBadKind(t *testing.T) {
	p := newTreePage(t, TreeOpaque{Kind: KindLeaf, Level: 1})
	_, err := p.Opaque()
	require.ErrorIs(t, err, ErrPageCorrupted)

	p = newTreePage(t, TreeOpaque{Kind: PageKind(9)})
	_, err = p.Opaque()
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestPageFromRejectsGarbage(t *testing.T) {
	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0xff
	}
	_, err := PageFrom(buf)
	require.ErrorIs(t, err, ErrPageCorrupted)

	_, err = PageFrom(make([]byte, PageSize))
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestPageFileIDEncoding(t *testing.T) {
	id := PageFileID{File: 0x0102, Page: 0x03040506}
	b := make([]byte, PageFileIDSize)
	id.Encode(b)
	assert.Equal(t, []byte{0x02, 0x01, 0x06, 0x05, 0x04, 0x03}, b)
	assert.Equal(t, id, DecodePageFileID(b))
	assert.True(t, id.Valid())
	assert.False(t, InvalidPage.Valid())
	assert.Equal(t, "258:50595078", id.String())
	assert.Equal(t, "1:2/3", RecordID{PageFileID: PageFileID{File: 1, Page: 2}, Slot: 3}.String())
}
