package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspatial/internal/storage"
)

func spatialMeta(name string, file uint16) IndexMeta {
	return IndexMeta{
		Name:     name,
		Kind:     KindSpatial,
		File:     file,
		FileBase: storage.FileBase(file),
		RootPage: 7,
		Height:   2,
		Rows:     1000,
		KeySize:  13,
		Grid:     []int{16, 16, 16, 16},
	}
}

func TestCatalog_RegisterGetListReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	require.Empty(t, c.List())

	f1, err := c.AllocFile()
	require.NoError(t, err)
	f2, err := c.AllocFile()
	require.NoError(t, err)
	require.Equal(t, uint16(1), f1)
	require.Equal(t, uint16(2), f2)

	m, err := c.Register(spatialMeta("places", f1))
	require.NoError(t, err)
	require.False(t, m.CreatedAt.IsZero())
	require.Equal(t, storage.PageFileID{File: 1, Page: 7}, m.Root())

	_, err = c.Register(IndexMeta{Name: "ages", Kind: KindScalar, File: f2, RootPage: 1, Height: 1, Rows: 3, KeySize: 8})
	require.NoError(t, err)

	_, err = c.Register(spatialMeta("places", 9))
	require.ErrorIs(t, err, ErrExists)

	names := []string{}
	for _, m := range c.List() {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"ages", "places"}, names)

	// state survives a reopen, including the file id counter
	c2, err := Open(dir)
	require.NoError(t, err)
	got, err := c2.Get("places")
	require.NoError(t, err)
	assert.Equal(t, KindSpatial, got.Kind)
	assert.Equal(t, []int{16, 16, 16, 16}, got.Grid)
	assert.Equal(t, 1000, got.Rows)
	assert.True(t, got.CreatedAt.Equal(m.CreatedAt))

	f3, err := c2.AllocFile()
	require.NoError(t, err)
	require.Equal(t, uint16(3), f3)
}

func TestCatalog_ReplaceKeepsCreatedAt(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	first, err := c.Register(spatialMeta("places", 1))
	require.NoError(t, err)

	next := spatialMeta("places", 2)
	next.Rows = 5
	stored, prev, replaced, err := c.Replace(next)
	require.NoError(t, err)
	require.True(t, replaced)
	require.Equal(t, uint16(1), prev.File)
	require.Equal(t, uint16(2), stored.File)
	require.True(t, stored.CreatedAt.Equal(first.CreatedAt))
	require.False(t, stored.UpdatedAt.Before(first.UpdatedAt))

	_, _, replaced, err = c.Replace(spatialMeta("fresh", 3))
	require.NoError(t, err)
	require.False(t, replaced)
}

func TestCatalog_AllocSkipsFilesInUse(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = c.Register(spatialMeta("a", 1))
	require.NoError(t, err)
	_, err = c.Register(spatialMeta("b", 2))
	require.NoError(t, err)

	f, err := c.AllocFile()
	require.NoError(t, err)
	require.Equal(t, uint16(3), f)
}

func TestCatalog_Drop(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	_, err = c.Register(spatialMeta("places", 4))
	require.NoError(t, err)

	m, err := c.Drop("places")
	require.NoError(t, err)
	require.Equal(t, uint16(4), m.File)

	_, err = c.Get("places")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.Drop("places")
	require.ErrorIs(t, err, ErrNotFound)

	c2, err := Open(dir)
	require.NoError(t, err)
	require.Empty(t, c2.List())
}

func TestCatalog_Validation(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "has space", "dot.name", "slash/name", string(make([]byte, 65))} {
		_, err := c.Register(IndexMeta{Name: name, Kind: KindScalar})
		require.ErrorIs(t, err, ErrBadName, "name %q", name)
	}
	_, err = c.Register(IndexMeta{Name: "ok", Kind: "hash"})
	require.ErrorIs(t, err, ErrBadKind)

	require.NoError(t, ValidateName("Places_2024-v1"))
}

func TestCatalog_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{nope"), 0o644))
	_, err := Open(dir)
	require.ErrorIs(t, err, ErrBadDocument)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"version":99}`), 0o644))
	_, err = Open(dir)
	require.ErrorIs(t, err, ErrBadDocument)
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	require.NoError(t, writeFileAtomic(path, []byte("1"), 0o644))
	require.NoError(t, writeFileAtomic(path, []byte("22"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "22", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
