package storage

import (
	"fmt"
	"log/slog"
	"sync"
)

// Source hands out pages by address. Pages returned by a Source must not be
// modified by the caller.
type Source interface {
	LoadPage(id PageFileID) (*Page, error)
}

// Sink persists pages produced by the tree builder.
type Sink interface {
	SavePage(id PageFileID, p *Page) error
}

type Store interface {
	Source
	Sink
}

// FileBase is the segment base name of data file n.
func FileBase(file uint16) string {
	return fmt.Sprintf("file_%05d", file)
}

var _ Store = (*SegmentSource)(nil)

// SegmentSource serves pages from 1 GiB segment files under Dir, one
// segment chain per data file.
type SegmentSource struct {
	Dir string
	sm  *StorageManager
}

func NewSegmentSource(dir string) *SegmentSource {
	return &SegmentSource{Dir: dir, sm: NewStorageManager()}
}

func (s *SegmentSource) FileSet(file uint16) LocalFileSet {
	return LocalFileSet{Dir: s.Dir, Base: FileBase(file)}
}

func (s *SegmentSource) LoadPage(id PageFileID) (*Page, error) {
	p, err := s.sm.LoadPage(s.FileSet(id.File), id.Page)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if got := p.ID(); got != id {
		slog.Warn("storage.page.misplaced", "want", id.String(), "got", got.String())
		return nil, fmt.Errorf("load %s: %w: header says %s", id, ErrPageCorrupted, got)
	}
	return p, nil
}

func (s *SegmentSource) SavePage(id PageFileID, p *Page) error {
	if err := s.sm.SavePage(s.FileSet(id.File), id.Page, p); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	return nil
}

func (s *SegmentSource) CountPages(file uint16) (uint32, error) {
	return s.sm.CountPages(s.FileSet(file))
}

// DropFile removes every segment of a data file.
func (s *SegmentSource) DropFile(file uint16) error {
	slog.Debug("storage.file.drop", "dir", s.Dir, "file", file)
	return RemoveAllSegments(s.FileSet(file))
}

// MoveFile renames data file from onto data file to, replacing it.
func (s *SegmentSource) MoveFile(from, to uint16) error {
	slog.Debug("storage.file.move", "dir", s.Dir, "from", from, "to", to)
	return RenameAllSegments(s.FileSet(from), s.FileSet(to))
}

var _ Store = (*MemStore)(nil)

// MemStore keeps pages in memory. Useful for tests and scratch trees.
type MemStore struct {
	mu    sync.RWMutex
	pages map[PageFileID][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{pages: make(map[PageFileID][]byte)}
}

func (m *MemStore) LoadPage(id PageFileID) (*Page, error) {
	m.mu.RLock()
	buf, ok := m.pages[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, ErrPageNotFound)
	}
	return &Page{Buf: buf}, nil
}

func (m *MemStore) SavePage(id PageFileID, p *Page) error {
	if len(p.Buf) != PageSize {
		return ErrWrongSize
	}
	buf := make([]byte, PageSize)
	copy(buf, p.Buf)
	m.mu.Lock()
	m.pages[id] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}
