package pebblestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspatial/internal/btree"
	"github.com/tuannm99/novaspatial/internal/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPage(t *testing.T, id storage.PageFileID, tuple string) *storage.Page {
	t.Helper()
	p, err := storage.NewPage(make([]byte, storage.PageSize), id)
	require.NoError(t, err)
	_, err = p.InsertTuple([]byte(tuple))
	require.NoError(t, err)
	return p
}

func TestStore_SaveLoad(t *testing.T) {
	s := openStore(t)
	id := storage.PageFileID{File: 3, Page: 9}
	require.NoError(t, s.SavePage(id, newPage(t, id, "hello")))

	p, err := s.LoadPage(id)
	require.NoError(t, err)
	require.Equal(t, id, p.ID())
	tup, err := p.ReadTuple(0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(tup))

	_, err = s.LoadPage(storage.PageFileID{File: 3, Page: 10})
	require.ErrorIs(t, err, storage.ErrPageNotFound)

	require.ErrorIs(t, s.SavePage(id, &storage.Page{Buf: make([]byte, 10)}), storage.ErrWrongSize)
}

func TestStore_MisplacedPage(t *testing.T) {
	s := openStore(t)
	other := storage.PageFileID{File: 1, Page: 2}
	require.NoError(t, s.SavePage(storage.PageFileID{File: 1, Page: 5}, newPage(t, other, "x")))

	_, err := s.LoadPage(storage.PageFileID{File: 1, Page: 5})
	require.ErrorIs(t, err, storage.ErrPageCorrupted)
}

func TestStore_CountAndDropAreScopedToFile(t *testing.T) {
	s := openStore(t)
	for _, file := range []uint16{1, 2, 0xffff} {
		for page := uint32(0); page < 4; page++ {
			id := storage.PageFileID{File: file, Page: page}
			require.NoError(t, s.SavePage(id, newPage(t, id, "t")))
		}
	}
	// a page number that would break a naive bound
	big := storage.PageFileID{File: 2, Page: 0xffffffff}
	require.NoError(t, s.SavePage(big, newPage(t, big, "t")))

	n, err := s.CountPages(2)
	require.NoError(t, err)
	require.Equal(t, uint32(5), n)

	require.NoError(t, s.DropFile(2))
	n, err = s.CountPages(2)
	require.NoError(t, err)
	require.Zero(t, n)

	for _, file := range []uint16{1, 0xffff} {
		n, err = s.CountPages(file)
		require.NoError(t, err)
		require.Equal(t, uint32(4), n)
	}
}

func TestStore_ServesBTree(t *testing.T) {
	s := openStore(t)
	b := btree.NewBuilder[int64](s, 7, btree.Int64Codec{}, btree.BuildOptions{MaxLeafRows: 8, MaxInnerRows: 4})
	for k := range int64(500) {
		require.NoError(t, b.Add(k*2, nil))
	}
	_, err := b.Finish()
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	tree, meta, err := btree.OpenFile[int64](s, 7, btree.Int64Codec{})
	require.NoError(t, err)
	require.Equal(t, 500, meta.Rows)

	rid, ok, err := tree.LowerBound(301)
	require.NoError(t, err)
	require.True(t, ok)
	row, err := tree.LoadRow(rid)
	require.NoError(t, err)
	require.Equal(t, int64(302), row.Key)

	rep, err := tree.Validate()
	require.NoError(t, err)
	require.Equal(t, 500, rep.Rows)
}
