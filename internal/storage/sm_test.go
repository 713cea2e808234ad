package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLeaf(t *testing.T, s Sink, id PageFileID, rows ...string) {
	t.Helper()
	p, err := NewTreePage(make([]byte, PageSize), id, TreeOpaque{Kind: KindLeaf})
	require.NoError(t, err)
	for _, r := range rows {
		_, err := p.InsertTuple([]byte(r))
		require.NoError(t, err)
	}
	require.NoError(t, s.SavePage(id, p))
}

func TestSegmentSourceRoundTrip(t *testing.T) {
	src := NewSegmentSource(t.TempDir())
	id := PageFileID{File: 1, Page: 3}
	writeLeaf(t, src, id, "alpha", "beta")

	p, err := src.LoadPage(id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID())
	row, err := p.ReadTuple(1)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(row))

	n, err := src.CountPages(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), n)
}

func TestSegmentSourceMissingPage(t *testing.T) {
	src := NewSegmentSource(t.TempDir())

	_, err := src.LoadPage(PageFileID{File: 9, Page: 1})
	require.ErrorIs(t, err, ErrPageNotFound)

	writeLeaf(t, src, PageFileID{File: 9, Page: 1}, "x")
	_, err = src.LoadPage(PageFileID{File: 9, Page: 2})
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestSegmentSourceHoleIsCorrupt(t *testing.T) {
	src := NewSegmentSource(t.TempDir())
	writeLeaf(t, src, PageFileID{File: 1, Page: 4}, "x")

	// pages 1..3 are a zero-filled hole in the segment
	_, err := src.LoadPage(PageFileID{File: 1, Page: 2})
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestSegmentSourceMisplacedPage(t *testing.T) {
	src := NewSegmentSource(t.TempDir())
	p, err := NewTreePage(make([]byte, PageSize), PageFileID{File: 1, Page: 5}, TreeOpaque{Kind: KindLeaf})
	require.NoError(t, err)
	require.NoError(t, src.SavePage(PageFileID{File: 1, Page: 2}, p))

	_, err = src.LoadPage(PageFileID{File: 1, Page: 2})
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestMoveAndDropFile(t *testing.T) {
	dir := t.TempDir()
	src := NewSegmentSource(dir)
	writeLeaf(t, src, PageFileID{File: 2, Page: 1}, "old")
	writeLeaf(t, src, PageFileID{File: 7, Page: 1}, "new")

	// page ids are file-local, so the moved page still names file 7
	require.NoError(t, src.MoveFile(7, 2))
	_, err := os.Stat(filepath.Join(dir, FileBase(7)))
	require.ErrorIs(t, err, os.ErrNotExist)

	raw := make([]byte, PageSize)
	require.NoError(t, NewStorageManager().ReadPage(src.FileSet(2), 1, raw))
	p, err := PageFrom(raw)
	require.NoError(t, err)
	row, err := p.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, "new", string(row))

	require.NoError(t, src.DropFile(2))
	segs, err := ListSegments(src.FileSet(2))
	require.NoError(t, err)
	assert.Empty(t, segs)

	require.ErrorIs(t, src.MoveFile(7, 2), ErrPageNotFound)
}

func TestSegmentNames(t *testing.T) {
	assert.Equal(t, "file_00012", FileBase(12))
	assert.Equal(t, "base", SegFileName("base", 0))
	assert.Equal(t, "base.3", SegFileName("base", 3))

	n, ok := segmentNumber("base", "base.12")
	assert.True(t, ok)
	assert.Equal(t, int32(12), n)
	_, ok = segmentNumber("base", "base.x")
	assert.False(t, ok)
	_, ok = segmentNumber("base", "other")
	assert.False(t, ok)
}

func TestMemStore(t *testing.T) {
	m := NewMemStore()
	writeLeaf(t, m, PageFileID{File: 1, Page: 1}, "a")
	assert.Equal(t, 1, m.Len())

	p, err := m.LoadPage(PageFileID{File: 1, Page: 1})
	require.NoError(t, err)
	row, err := p.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, "a", string(row))

	_, err = m.LoadPage(PageFileID{File: 1, Page: 2})
	require.ErrorIs(t, err, ErrPageNotFound)
}
