package btree

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaspatial/internal/storage"
)

const metaVersion = 1

// ErrNoMeta is returned when page 0 of a file does not hold tree meta.
var ErrNoMeta = errors.New("btree: file has no meta page")

// diskMeta is stored as a single JSON tuple on page 0 of a tree file.
type diskMeta struct {
	Version    int    `json:"version"`
	Root       uint32 `json:"root"`
	Height     int    `json:"height"`
	Rows       int    `json:"rows"`
	KeySize    int    `json:"key_size"`
	NextPageID uint32 `json:"next_page_id"`
}

// Meta is the decoded meta page of a tree file.
type Meta struct {
	Root     storage.PageFileID
	Height   int
	Rows     int
	KeySize  int
	NextPage uint32
}

func metaID(file uint16) storage.PageFileID {
	return storage.PageFileID{File: file}
}

func writeMeta(sink storage.Sink, file uint16, keySize int, res BuildResult) error {
	m := diskMeta{
		Version:    metaVersion,
		Root:       res.Root.Page,
		Height:     res.Height,
		Rows:       res.Rows,
		KeySize:    keySize,
		NextPageID: res.NextPage,
	}
	data, err := json.Marshal(&m)
	if err != nil {
		return err
	}
	p, err := storage.NewPage(make([]byte, storage.PageSize), metaID(file))
	if err != nil {
		return err
	}
	if _, err := p.InsertTuple(data); err != nil {
		return fmt.Errorf("btree: meta tuple: %w", err)
	}
	if err := sink.SavePage(metaID(file), p); err != nil {
		return err
	}
	slog.Debug("btree.meta.saved", "file", file, "root", m.Root, "height", m.Height, "rows", m.Rows)
	return nil
}

// ReadMeta decodes page 0 of file.
func ReadMeta(src storage.Source, file uint16) (Meta, error) {
	p, err := src.LoadPage(metaID(file))
	if err != nil {
		return Meta{}, err
	}
	if p.IsTree() || p.NumSlots() != 1 {
		return Meta{}, fmt.Errorf("%w: file %d", ErrNoMeta, file)
	}
	data, err := p.ReadTuple(0)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: file %d: %v", ErrNoMeta, file, err)
	}
	var m diskMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("%w: file %d: %v", ErrNoMeta, file, err)
	}
	if m.Version <= 0 {
		// written before versioning, same layout
		m.Version = metaVersion
	}
	if m.Version > metaVersion || m.Root == 0 {
		return Meta{}, fmt.Errorf("%w: file %d: version %d root %d", ErrNoMeta, file, m.Version, m.Root)
	}
	return Meta{
		Root:     storage.PageFileID{File: file, Page: m.Root},
		Height:   m.Height,
		Rows:     m.Rows,
		KeySize:  m.KeySize,
		NextPage: m.NextPageID,
	}, nil
}

// OpenFile opens the tree whose root is recorded in the meta page of file.
func OpenFile[K any](src storage.Source, file uint16, codec Codec[K]) (*IndexTree[K], Meta, error) {
	m, err := ReadMeta(src, file)
	if err != nil {
		return nil, Meta{}, err
	}
	if m.KeySize != codec.Size() {
		return nil, m, fmt.Errorf("%w: file %d has %d-byte keys, codec wants %d",
			ErrBadIndex, file, m.KeySize, codec.Size())
	}
	t, err := Open(src, m.Root, codec)
	return t, m, err
}
